package codec

import (
	"fmt"
	"math"
	"strings"
)

// FieldType identifies the storage type of a single record field
type FieldType uint8

const (
	TypeText FieldType = iota + 1
	TypeInt32
	TypeFloat32
	TypeFloat64
	TypeBool
	TypeByte
)

var fieldTypeNames = map[FieldType]string{
	TypeText:    "text",
	TypeInt32:   "int32",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeBool:    "bool",
	TypeByte:    "byte",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// Valid reports whether t is one of the known field types
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// ParseFieldType converts a type name such as "int32" into a FieldType.
// Matching is case-insensitive and accepts a few common aliases.
func ParseFieldType(name string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "string":
		return TypeText, nil
	case "int32", "int":
		return TypeInt32, nil
	case "float32", "float":
		return TypeFloat32, nil
	case "float64", "double":
		return TypeFloat64, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "byte", "uint8":
		return TypeByte, nil
	}
	return 0, fmt.Errorf("%w: unknown type %q", ErrFieldType, name)
}

// Field is one typed value within a record. The set of implementations is
// closed: Text, Int32, Float32, Float64, Bool and Byte.
type Field interface {
	Type() FieldType
	isField()
}

// Text is a fixed-width string field
type Text string

// Int32 is a 4 byte signed integer field
type Int32 int32

// Float32 is a 4 byte IEEE-754 field
type Float32 float32

// Float64 is an 8 byte IEEE-754 field
type Float64 float64

// Bool is a single byte boolean field
type Bool bool

// Byte is a single raw byte field
type Byte byte

func (Text) Type() FieldType    { return TypeText }
func (Int32) Type() FieldType   { return TypeInt32 }
func (Float32) Type() FieldType { return TypeFloat32 }
func (Float64) Type() FieldType { return TypeFloat64 }
func (Bool) Type() FieldType    { return TypeBool }
func (Byte) Type() FieldType    { return TypeByte }

func (Text) isField()    {}
func (Int32) isField()   {}
func (Float32) isField() {}
func (Float64) isField() {}
func (Bool) isField()    {}
func (Byte) isField()    {}

// Zero returns the zero value field for t
func Zero(t FieldType) (Field, error) {
	switch t {
	case TypeText:
		return Text(""), nil
	case TypeInt32:
		return Int32(0), nil
	case TypeFloat32:
		return Float32(0), nil
	case TypeFloat64:
		return Float64(0), nil
	case TypeBool:
		return Bool(false), nil
	case TypeByte:
		return Byte(0), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFieldType, t)
}

// Compare orders two fields of the same type. Fields of different types are
// ordered by their type tag. NaN sorts below every other float and equal to
// itself.
func Compare(a, b Field) int {
	if a.Type() != b.Type() {
		return cmpOrdered(a.Type(), b.Type())
	}

	switch av := a.(type) {
	case Text:
		return strings.Compare(string(av), string(b.(Text)))
	case Int32:
		return cmpOrdered(av, b.(Int32))
	case Float32:
		return cmpFloat(float64(av), float64(b.(Float32)))
	case Float64:
		return cmpFloat(float64(av), float64(b.(Float64)))
	case Bool:
		bv := b.(Bool)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	case Byte:
		return cmpOrdered(av, b.(Byte))
	}
	return 0
}

type ordered interface {
	~uint8 | ~int32 | ~float32 | ~float64
}

func cmpOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	return cmpOrdered(a, b)
}
