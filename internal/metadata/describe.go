package metadata

// Description is the JSON view of a schema served by the schema endpoints.
type Description struct {
	Name       string             `json:"name"`
	Table      string             `json:"table"`
	PrimaryKey string             `json:"primary_key"`
	Fields     []FieldDescription `json:"fields"`
}

type FieldDescription struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	GoType string   `json:"go_type"`
	Enum   []string `json:"enum,omitempty"`
	Unique bool     `json:"unique,omitempty"`
}

// Describe returns the description of the schema.
func (s *Schema[T]) Describe() Description {
	d := Description{
		Name:       s.name,
		Table:      s.table,
		PrimaryKey: s.id,
		Fields:     make([]FieldDescription, len(s.fields)),
	}
	for i, f := range s.fields {
		d.Fields[i] = FieldDescription{
			Name:   f.Name,
			Type:   f.Kind.String(),
			GoType: f.Type,
			Enum:   f.Enum,
			Unique: f.Unique,
		}
	}
	return d
}
