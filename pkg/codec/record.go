package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Codec converts application values to and from an ordered list of fields.
// Every value must encode to fields matching Schema(); the byte layer rejects
// records that do not.
type Codec[T any] interface {
	Schema() Schema
	Encode(v T) []Field
	Decode(fields []Field) (T, error)
}

// RecordCodec handles serialization of field lists into fixed-width records
type RecordCodec struct {
	schema  Schema
	format  TextFormat
	offsets []int
	size    int
}

// NewRecordCodec creates a record codec for the given schema and text format
func NewRecordCodec(schema Schema, format TextFormat) (*RecordCodec, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	s := make(Schema, len(schema))
	copy(s, schema)

	return &RecordCodec{
		schema:  s,
		format:  format,
		offsets: s.Offsets(format),
		size:    s.Size(format),
	}, nil
}

// Size returns the byte width of every record
func (c *RecordCodec) Size() int {
	return c.size
}

// Schema returns the record layout
func (c *RecordCodec) Schema() Schema {
	return c.schema
}

// Format returns the text format used for text fields
func (c *RecordCodec) Format() TextFormat {
	return c.format
}

// Encode serializes fields into exactly Size() bytes, in schema order
func (c *RecordCodec) Encode(fields []Field) ([]byte, error) {
	if err := c.schema.Check(fields); err != nil {
		return nil, err
	}

	buf := make([]byte, c.size)
	for i, f := range fields {
		if err := PutField(buf[c.offsets[i]:], f, c.format); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// Decode deserializes one record into its fields
func (c *RecordCodec) Decode(data []byte) ([]Field, error) {
	if len(data) < c.size {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(data), c.size)
	}

	fields := make([]Field, len(c.schema))
	for i, t := range c.schema {
		f, err := ReadField(data[c.offsets[i]:], t, c.format)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}

	return fields, nil
}

// PutField encodes a single field at the start of buf
func PutField(buf []byte, f Field, format TextFormat) error {
	if f == nil {
		return fmt.Errorf("%w: nil field", ErrFieldType)
	}
	if w := Width(f.Type(), format); len(buf) < w {
		return fmt.Errorf("%w: %d < %d", ErrShortRecord, len(buf), w)
	}

	switch v := f.(type) {
	case Text:
		putText(buf, string(v), format)
	case Int32:
		binary.BigEndian.PutUint32(buf, uint32(v))
	case Float32:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case Float64:
		binary.BigEndian.PutUint64(buf, math.Float64bits(float64(v)))
	case Bool:
		if v {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	case Byte:
		buf[0] = byte(v)
	default:
		return fmt.Errorf("%w: %T", ErrFieldType, f)
	}

	return nil
}

// ReadField decodes a single field of type t from the start of buf
func ReadField(buf []byte, t FieldType, format TextFormat) (Field, error) {
	w := Width(t, format)
	if w == 0 {
		return nil, fmt.Errorf("%w: %v", ErrFieldType, t)
	}
	if len(buf) < w {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(buf), w)
	}

	switch t {
	case TypeText:
		return Text(text(buf, format)), nil
	case TypeInt32:
		return Int32(int32(binary.BigEndian.Uint32(buf))), nil
	case TypeFloat32:
		return Float32(math.Float32frombits(binary.BigEndian.Uint32(buf))), nil
	case TypeFloat64:
		return Float64(math.Float64frombits(binary.BigEndian.Uint64(buf))), nil
	case TypeBool:
		return Bool(buf[0] != 0), nil
	default:
		return Byte(buf[0]), nil
	}
}
