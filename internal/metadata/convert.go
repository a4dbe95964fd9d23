package metadata

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// Convert turns a value read from a database driver into the field's
// canonical value. SQLite hands back booleans as integers and timestamps or
// UUIDs as text; Postgres may hand back UUIDs as raw bytes.
func (f Field[T]) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok && f.Kind != KindUUID {
		v = string(b)
	}

	switch f.Kind {
	case KindString, KindEnum:
		switch val := v.(type) {
		case string:
			return val, nil
		default:
			return fmt.Sprint(val), nil
		}
	case KindInt:
		switch val := v.(type) {
		case int64:
			return val, nil
		case int:
			return int64(val), nil
		case int32:
			return int64(val), nil
		case float64:
			return int64(val), nil
		case string:
			return strconv.ParseInt(val, 10, 64)
		}
	case KindFloat:
		switch val := v.(type) {
		case float64:
			return val, nil
		case float32:
			return float64(val), nil
		case int64:
			return float64(val), nil
		case string:
			return strconv.ParseFloat(val, 64)
		}
	case KindBool:
		switch val := v.(type) {
		case bool:
			return val, nil
		case int64:
			return val != 0, nil
		case string:
			return strconv.ParseBool(val)
		}
	case KindTime:
		switch val := v.(type) {
		case time.Time:
			return val, nil
		case string:
			return parseTime(val)
		}
	case KindUUID:
		switch val := v.(type) {
		case uuid.UUID:
			return val, nil
		case [16]byte:
			return uuid.UUID(val), nil
		case []byte:
			if len(val) == 16 {
				return uuid.FromBytes(val)
			}
			return uuid.ParseBytes(val)
		case string:
			return uuid.Parse(val)
		}
	}
	return nil, fmt.Errorf("field %s: cannot convert %T to %s", f.Name, v, f.Kind)
}

// IsZero reports whether a canonical value is the zero value of its type.
func IsZero(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case int64:
		return val == 0
	case float64:
		return val == 0
	case bool:
		return !val
	case time.Time:
		return val.IsZero()
	case uuid.UUID:
		return val == uuid.Nil
	default:
		return false
	}
}
