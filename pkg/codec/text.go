package codec

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

// FixLength truncates s to exactly n characters or right-pads it with spaces.
// A character is a UTF-16 code unit for wide text and a rune otherwise.
func FixLength(s string, f TextFormat) string {
	if f.Wide {
		units := utf16.Encode([]rune(s))
		return string(utf16.Decode(fixUnits(units, f.Length)))
	}

	runes := []rune(s)
	if len(runes) >= f.Length {
		return string(runes[:f.Length])
	}
	return s + strings.Repeat(" ", f.Length-len(runes))
}

func fixUnits(units []uint16, n int) []uint16 {
	if len(units) >= n {
		return units[:n]
	}
	fixed := make([]uint16, n)
	copy(fixed, units)
	for i := len(units); i < n; i++ {
		fixed[i] = ' '
	}
	return fixed
}

// putText writes s into buf using exactly Width(TypeText, f) bytes
func putText(buf []byte, s string, f TextFormat) {
	if f.Wide {
		units := fixUnits(utf16.Encode([]rune(s)), f.Length)
		for i, u := range units {
			binary.BigEndian.PutUint16(buf[i*2:], u)
		}
		return
	}

	runes := []rune(s)
	for i := 0; i < f.Length; i++ {
		if i >= len(runes) {
			buf[i] = ' '
			continue
		}
		if r := runes[i]; r <= 0xFF {
			buf[i] = byte(r)
		} else {
			buf[i] = '?'
		}
	}
}

// text decodes a fixed-width text field and strips the trailing padding
func text(buf []byte, f TextFormat) string {
	var s string
	if f.Wide {
		units := make([]uint16, f.Length)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(buf[i*2:])
		}
		s = string(utf16.Decode(units))
	} else {
		runes := make([]rune, f.Length)
		for i := range runes {
			runes[i] = rune(buf[i])
		}
		s = string(runes)
	}
	return strings.TrimRight(s, " ")
}
