package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column names one position of a schema
type Column struct {
	Name string
	Type FieldType
}

// Columns is a named schema
type Columns []Column

// Schema returns the column types in order
func (cols Columns) Schema() Schema {
	s := make(Schema, len(cols))
	for i, c := range cols {
		s[i] = c.Type
	}
	return s
}

// Names returns the column names in order
func (cols Columns) Names() []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1
func (cols Columns) Index(name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row is a record whose layout is only known at runtime
type Row []Field

// RowCodec is a Codec for rows of a fixed runtime schema
type RowCodec struct {
	schema Schema
}

// NewRowCodec creates a row codec for schema
func NewRowCodec(schema Schema) *RowCodec {
	return &RowCodec{schema: schema}
}

func (c *RowCodec) Schema() Schema {
	return c.schema
}

func (c *RowCodec) Encode(r Row) []Field {
	return r
}

func (c *RowCodec) Decode(fields []Field) (Row, error) {
	if err := c.schema.Check(fields); err != nil {
		return nil, err
	}
	r := make(Row, len(fields))
	copy(r, fields)
	return r, nil
}

// ParseField parses command line input into a field of type t
func ParseField(t FieldType, s string) (Field, error) {
	switch t {
	case TypeText:
		return Text(s), nil
	case TypeInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid int32 %q: %w", s, err)
		}
		return Int32(v), nil
	case TypeFloat32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid float32 %q: %w", s, err)
		}
		return Float32(v), nil
	case TypeFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float64 %q: %w", s, err)
		}
		return Float64(v), nil
	case TypeBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q: %w", s, err)
		}
		return Bool(v), nil
	case TypeByte:
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", s, err)
		}
		return Byte(v), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFieldType, t)
}

// FormatField renders a field the way ParseField reads it
func FormatField(f Field) string {
	switch v := f.(type) {
	case Text:
		return string(v)
	case Int32:
		return strconv.FormatInt(int64(v), 10)
	case Float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(v))
	case Byte:
		return strconv.FormatUint(uint64(v), 10)
	}
	return ""
}

// ParseRow parses one input string per column
func ParseRow(cols Columns, values []string) (Row, error) {
	if len(values) != len(cols) {
		return nil, fmt.Errorf("%w: got %d values, want %d (%s)",
			ErrSchemaMismatch, len(values), len(cols), strings.Join(cols.Names(), ", "))
	}
	r := make(Row, len(cols))
	for i, c := range cols {
		f, err := ParseField(c.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		r[i] = f
	}
	return r, nil
}

// FieldValue returns the plain Go value of a field, suitable for JSON
func FieldValue(f Field) any {
	switch v := f.(type) {
	case Text:
		return string(v)
	case Int32:
		return int32(v)
	case Float32:
		return float32(v)
	case Float64:
		return float64(v)
	case Bool:
		return bool(v)
	case Byte:
		return uint8(v)
	}
	return nil
}

// FieldFromJSON converts a value decoded by encoding/json into a field of type t
func FieldFromJSON(t FieldType, v any) (Field, error) {
	switch t {
	case TypeText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string, got %T", ErrFieldType, v)
		}
		return Text(s), nil
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected bool, got %T", ErrFieldType, v)
		}
		return Bool(b), nil
	}

	n, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: expected number, got %T", ErrFieldType, v)
	}

	switch t {
	case TypeInt32:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %v is not an int32", ErrFieldType, n)
		}
		return Int32(n), nil
	case TypeFloat32:
		return Float32(n), nil
	case TypeFloat64:
		return Float64(n), nil
	case TypeByte:
		if n != math.Trunc(n) || n < 0 || n > math.MaxUint8 {
			return nil, fmt.Errorf("%w: %v is not a byte", ErrFieldType, n)
		}
		return Byte(n), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFieldType, t)
}

// RowToMap keys each field of r by its column name
func RowToMap(cols Columns, r Row) map[string]any {
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		if i < len(r) {
			m[c.Name] = FieldValue(r[i])
		}
	}
	return m
}

// RowFromMap builds a row from a decoded JSON object. Missing columns take
// their zero value; unknown keys are rejected.
func RowFromMap(cols Columns, m map[string]any) (Row, error) {
	for k := range m {
		if cols.Index(k) < 0 {
			return nil, fmt.Errorf("%w: unknown column %q", ErrSchemaMismatch, k)
		}
	}

	r := make(Row, len(cols))
	for i, c := range cols {
		v, ok := m[c.Name]
		if !ok {
			z, err := Zero(c.Type)
			if err != nil {
				return nil, err
			}
			r[i] = z
			continue
		}
		f, err := FieldFromJSON(c.Type, v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		r[i] = f
	}
	return r, nil
}
