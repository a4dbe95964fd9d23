package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"crudkit/internal/metadata"
)

// Sort orders results by one field.
type Sort struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// PageRequest selects one page of results. Page is 1-based.
type PageRequest struct {
	Page int    `json:"page"`
	Size int    `json:"size"`
	Sort []Sort `json:"sort,omitempty"`
}

// Offset returns the number of records to skip. It saturates at
// math.MaxInt instead of overflowing.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// ParamsRequest is a page descriptor plus the raw request parameters the
// filters are extracted from.
type ParamsRequest struct {
	PageRequest
	Params url.Values
}

// Limits bounds the page size a caller may ask for.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

var DefaultLimits = Limits{DefaultSize: 25, MaxSize: 100}

// ParseParams reads page, size and sort from values. Malformed or
// out-of-range page and size values fall back to their defaults.
func ParseParams(values url.Values, limits Limits) ParamsRequest {
	if limits.DefaultSize <= 0 {
		limits.DefaultSize = DefaultLimits.DefaultSize
	}
	if limits.MaxSize <= 0 {
		limits.MaxSize = DefaultLimits.MaxSize
	}
	req := ParamsRequest{
		PageRequest: PageRequest{Page: 1, Size: limits.DefaultSize},
		Params:      values,
	}

	if s := values.Get("size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			req.Size = min(v, limits.MaxSize)
		}
	}
	if p := values.Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			// (Page-1)*Size must fit in an int
			req.Page = min(v, math.MaxInt/req.Size+1)
		}
	}
	// sort=-created_at,name
	if s := values.Get("sort"); s != "" {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			desc := strings.HasPrefix(part, "-")
			part = strings.TrimPrefix(part, "-")
			if part == "" {
				continue
			}
			req.Sort = append(req.Sort, Sort{Field: part, Desc: desc})
		}
	}
	return req
}

// SanitizeSort drops sort entries naming fields the schema does not declare.
func SanitizeSort[T any](sorts []Sort, s *metadata.Schema[T]) []Sort {
	var out []Sort
	for _, srt := range sorts {
		if s.HasField(srt.Field) {
			out = append(out, srt)
		}
	}
	return out
}
