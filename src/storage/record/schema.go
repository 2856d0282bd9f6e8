package record

import (
	"errors"
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldTypeInt32   FieldType = "int32"
	FieldTypeFloat64 FieldType = "float64"
	FieldTypeText    FieldType = "text"
	FieldTypeDate    FieldType = "date"
)

// DefaultDateWidth fits dd/mm/yyyy and yyyy-mm-dd.
const DefaultDateWidth = 10

type Field struct {
	Name  string
	Type  FieldType
	Width int
	// Aliases are other column titles accepted for the field on import.
	Aliases []string
}

// Size is the number of bytes the field occupies inside an encoded record.
func (f Field) Size() int {
	switch f.Type {
	case FieldTypeInt32:
		return 4
	case FieldTypeFloat64:
		return 8
	case FieldTypeText, FieldTypeDate:
		return f.Width
	}
	panic("unsupported field type: " + string(f.Type))
}

// Schema is an ordered list of fixed-width fields. Key is the position of
// the int32 primary key.
type Schema struct {
	Fields []Field
	Key    int
}

var ErrInvalidSchema = errors.New("invalid schema")

func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidSchema)
	}
	if s.Key < 0 || s.Key >= len(s.Fields) {
		return fmt.Errorf("%w: key index %d out of range", ErrInvalidSchema, s.Key)
	}
	if s.Fields[s.Key].Type != FieldTypeInt32 {
		return fmt.Errorf(
			"%w: key field %q must be %s, got %s",
			ErrInvalidSchema,
			s.Fields[s.Key].Name,
			FieldTypeInt32,
			s.Fields[s.Key].Type,
		)
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: unnamed field", ErrInvalidSchema)
		}
		for _, name := range append([]string{f.Name}, f.Aliases...) {
			folded := strings.ToLower(strings.TrimSpace(name))
			if _, dup := seen[folded]; dup {
				return fmt.Errorf("%w: duplicate field name %q", ErrInvalidSchema, name)
			}
			seen[folded] = struct{}{}
		}

		switch f.Type {
		case FieldTypeInt32, FieldTypeFloat64:
		case FieldTypeText, FieldTypeDate:
			if f.Width <= 0 {
				return fmt.Errorf("%w: field %q needs a positive width", ErrInvalidSchema, f.Name)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
		}
	}
	return nil
}

// FieldIndex returns the position of the field called name or -1. Names
// and aliases match case-insensitively, ignoring surrounding spaces.
func (s Schema) FieldIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
		for _, alias := range f.Aliases {
			if strings.EqualFold(alias, name) {
				return i
			}
		}
	}
	return -1
}

// SalesSchema is the sales layout the store was first built for:
// id, product name, quantity sold, unit price and sale date.
func SalesSchema() Schema {
	return Schema{
		Fields: []Field{
			{
				Name:    "id",
				Type:    FieldTypeInt32,
				Aliases: []string{"ID de la venta"},
			},
			{
				Name:    "name",
				Type:    FieldTypeText,
				Width:   30,
				Aliases: []string{"Nombre", "Nombre producto", "Producto"},
			},
			{
				Name:    "quantity",
				Type:    FieldTypeInt32,
				Aliases: []string{"Cantidad", "Cantidad vendida"},
			},
			{
				Name:    "price",
				Type:    FieldTypeFloat64,
				Aliases: []string{"Precio", "Precio unitario"},
			},
			{
				Name:    "date",
				Type:    FieldTypeDate,
				Width:   DefaultDateWidth,
				Aliases: []string{"Fecha", "Fecha de venta"},
			},
		},
		Key: 0,
	}
}
