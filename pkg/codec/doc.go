// Package codec provides fixed-width record serialization for recfile.
//
// A record is an ordered list of typed fields. Every value of one application
// type must encode to the same list of field types, its Schema, which makes
// every record the same size and lets a store address records by index.
//
// # Record Format
//
// A record is the concatenation of its fields in schema order, with no header,
// padding or checksum:
//
//	[Field 0][Field 1]...[Field N-1]
//
// Field encodings:
//   - Text: TextFormat.Length characters, right-padded with spaces. Wide text
//     stores each character as a big-endian UTF-16 code unit (2 bytes); narrow
//     text stores one Latin-1 byte per character.
//   - Int32: 4 bytes, big-endian two's complement
//   - Float32: 4 bytes, big-endian IEEE-754 single precision
//   - Float64: 8 bytes, big-endian IEEE-754 double precision
//   - Bool: 1 byte, 0x00 or 0x01
//   - Byte: 1 byte, raw
//
// The record size is the sum of the field widths and depends only on the
// schema and text format, never on field values.
//
// # Text Fields
//
// Strings longer than the text length are truncated; shorter strings are
// padded with spaces. Decoding strips trailing spaces, so a string that ends
// in meaningful spaces does not survive a round trip.
//
// # Usage
//
// Application types implement Codec:
//
//	type personCodec struct{}
//
//	func (personCodec) Schema() codec.Schema { return codec.SchemaOf(personCodec{}.Encode(Person{})) }
//
//	func (personCodec) Encode(p Person) []codec.Field {
//	    return []codec.Field{codec.Text(p.Name), codec.Int32(p.Age)}
//	}
//
//	func (personCodec) Decode(f []codec.Field) (Person, error) {
//	    return Person{Name: string(f[0].(codec.Text)), Age: int32(f[1].(codec.Int32))}, nil
//	}
//
// Values whose layout is only known at runtime use Row and RowCodec.
//
// # Compatibility
//
// The format carries no version or schema information. Adding, removing or
// reordering fields, or changing the text format, silently corrupts every
// record previously written with the old layout.
package codec
