package codec

import (
	"errors"
	"fmt"
)

const (
	// DefaultStringLength is the number of characters stored per text field
	DefaultStringLength = 20
)

var (
	ErrFieldType      = errors.New("unsupported field type")
	ErrSchemaMismatch = errors.New("fields do not match schema")
	ErrShortRecord    = errors.New("record data too short")
)

// TextFormat controls how text fields are laid out on disk. It is fixed for
// the lifetime of a file: changing it makes existing records unreadable.
type TextFormat struct {
	Length int  // characters per text field
	Wide   bool // 2 bytes per character (UTF-16) instead of 1
}

// DefaultTextFormat stores 20 UTF-16 characters per text field
func DefaultTextFormat() TextFormat {
	return TextFormat{Length: DefaultStringLength, Wide: true}
}

// CharWidth returns the byte width of one text character
func (f TextFormat) CharWidth() int {
	if f.Wide {
		return 2
	}
	return 1
}

// Validate rejects non-positive text lengths
func (f TextFormat) Validate() error {
	if f.Length <= 0 {
		return fmt.Errorf("text length must be positive, got %d", f.Length)
	}
	return nil
}

// Width returns the encoded byte width of a single field of type t
func Width(t FieldType, f TextFormat) int {
	switch t {
	case TypeText:
		return f.Length * f.CharWidth()
	case TypeInt32, TypeFloat32:
		return 4
	case TypeFloat64:
		return 8
	case TypeBool, TypeByte:
		return 1
	}
	return 0
}

// Schema is the ordered list of field types that defines a record layout
type Schema []FieldType

// SchemaOf extracts the schema from an encoded value. It is meant to be
// called on the encoding of a zero value to measure a type's layout.
func SchemaOf(fields []Field) Schema {
	s := make(Schema, len(fields))
	for i, f := range fields {
		s[i] = f.Type()
	}
	return s
}

// Size returns the byte width of one record with this schema
func (s Schema) Size(f TextFormat) int {
	size := 0
	for _, t := range s {
		size += Width(t, f)
	}
	return size
}

// Offsets returns the byte offset of each field within a record
func (s Schema) Offsets(f TextFormat) []int {
	offsets := make([]int, len(s))
	pos := 0
	for i, t := range s {
		offsets[i] = pos
		pos += Width(t, f)
	}
	return offsets
}

// Validate checks that the schema is non-empty and uses only known types
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: schema has no fields", ErrSchemaMismatch)
	}
	for i, t := range s {
		if !t.Valid() {
			return fmt.Errorf("%w: field %d has type %v", ErrFieldType, i, t)
		}
	}
	return nil
}

// Check verifies that fields has the same length and per-position types
func (s Schema) Check(fields []Field) error {
	if len(fields) != len(s) {
		return fmt.Errorf("%w: got %d fields, want %d", ErrSchemaMismatch, len(fields), len(s))
	}
	for i, f := range fields {
		if f == nil {
			return fmt.Errorf("%w: field %d is nil", ErrSchemaMismatch, i)
		}
		if f.Type() != s[i] {
			return fmt.Errorf("%w: field %d is %v, want %v", ErrSchemaMismatch, i, f.Type(), s[i])
		}
	}
	return nil
}

// Equal reports whether two schemas describe the same layout
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
