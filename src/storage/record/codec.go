package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrCorruptRecord  = errors.New("corrupt record")
	ErrSchemaMismatch = errors.New("record does not match schema")
)

// Record holds one value per schema field: int32, float64 or string.
type Record []any

// Codec encodes records of a single schema into fixed-width byte windows.
// All integers are little-endian.
type Codec struct {
	schema  Schema
	offsets []int
	size    int
}

func NewCodec(schema Schema) (*Codec, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	offsets := make([]int, len(schema.Fields))
	size := 0
	for i, f := range schema.Fields {
		offsets[i] = size
		size += f.Size()
	}

	return &Codec{
		schema:  schema,
		offsets: offsets,
		size:    size,
	}, nil
}

func (c *Codec) Schema() Schema {
	return c.schema
}

// Size is the encoded length of every record of the schema.
func (c *Codec) Size() int {
	return c.size
}

// Key returns the primary key of a record produced or accepted by this codec.
func (c *Codec) Key(r Record) int32 {
	return r[c.schema.Key].(int32)
}

// Encode writes r into a fresh Size()-byte slice. Text longer than the
// field width is cut at the last whole rune that fits.
func (c *Codec) Encode(r Record) ([]byte, error) {
	buf := make([]byte, c.size)
	if err := c.EncodeTo(buf, r); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo writes r into dst, which must be exactly Size() bytes long.
func (c *Codec) EncodeTo(dst []byte, r Record) error {
	if len(dst) != c.size {
		return fmt.Errorf("encode: destination has %d bytes, want %d", len(dst), c.size)
	}
	if len(r) != len(c.schema.Fields) {
		return fmt.Errorf(
			"%w: got %d values for %d fields",
			ErrSchemaMismatch,
			len(r),
			len(c.schema.Fields),
		)
	}

	for i, f := range c.schema.Fields {
		window := dst[c.offsets[i] : c.offsets[i]+f.Size()]
		switch f.Type {
		case FieldTypeInt32:
			v, ok := r[i].(int32)
			if !ok {
				return fieldTypeError(f, r[i])
			}
			binary.LittleEndian.PutUint32(window, uint32(v))
		case FieldTypeFloat64:
			v, ok := r[i].(float64)
			if !ok {
				return fieldTypeError(f, r[i])
			}
			binary.LittleEndian.PutUint64(window, math.Float64bits(v))
		case FieldTypeText, FieldTypeDate:
			v, ok := r[i].(string)
			if !ok {
				return fieldTypeError(f, r[i])
			}
			clear(window)
			copy(window, truncate(v, f.Width))
		}
	}
	return nil
}

// Decode is the inverse of Encode. Text fields lose their trailing padding.
func (c *Codec) Decode(data []byte) (Record, error) {
	if len(data) != c.size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCorruptRecord, len(data), c.size)
	}

	r := make(Record, len(c.schema.Fields))
	for i, f := range c.schema.Fields {
		window := data[c.offsets[i] : c.offsets[i]+f.Size()]
		switch f.Type {
		case FieldTypeInt32:
			r[i] = int32(binary.LittleEndian.Uint32(window))
		case FieldTypeFloat64:
			r[i] = math.Float64frombits(binary.LittleEndian.Uint64(window))
		case FieldTypeText, FieldTypeDate:
			text := bytes.TrimRight(window, "\x00 ")
			if !utf8.Valid(text) {
				return nil, fmt.Errorf("%w: field %q is not valid utf-8", ErrCorruptRecord, f.Name)
			}
			r[i] = string(text)
		}
	}
	return r, nil
}

// Parse converts textual values, one per field, into a record.
func (c *Codec) Parse(values []string) (Record, error) {
	if len(values) != len(c.schema.Fields) {
		return nil, fmt.Errorf(
			"%w: got %d values for %d fields",
			ErrSchemaMismatch,
			len(values),
			len(c.schema.Fields),
		)
	}

	r := make(Record, len(values))
	for i, f := range c.schema.Fields {
		raw := strings.TrimSpace(values[i])
		switch f.Type {
		case FieldTypeInt32:
			v, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			r[i] = int32(v)
		case FieldTypeFloat64:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			r[i] = v
		case FieldTypeText, FieldTypeDate:
			r[i] = raw
		}
	}
	return r, nil
}

// Format renders r as "name=value" pairs in schema order.
func (c *Codec) Format(r Record) string {
	var sb strings.Builder
	for i, f := range c.schema.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		if i < len(r) {
			fmt.Fprint(&sb, r[i])
		}
	}
	return sb.String()
}

func fieldTypeError(f Field, v any) error {
	return fmt.Errorf("%w: field %q expects %s, got %T", ErrSchemaMismatch, f.Name, f.Type, v)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	cut := width
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
