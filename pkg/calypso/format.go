package calypso

import "fmt"

// Format tells which record layout a card type uses.
// Adding an operator layout means adding a Format and its parsers; nothing else switches on CardType.
type Format struct {
	name   string
	layout layout
	typ    CardType
}

type layout int

const (
	layoutUnrecognized layout = iota
	layoutGeneric29Byte
)

// FormatGeneric29Byte is the Navigo layout, shared by generic and interoperable cards.
var FormatGeneric29Byte = Format{name: "Generic29Byte", layout: layoutGeneric29Byte}

// Unrecognized returns the format of a card type with no known record layout.
func Unrecognized(t CardType) Format {
	return Format{name: "Unrecognized", layout: layoutUnrecognized, typ: t}
}

var formats = map[CardType]Format{
	Navigo:        FormatGeneric29Byte,
	Generic:       FormatGeneric29Byte,
	Interoperable: FormatGeneric29Byte,
}

// FormatOf returns the record layout of t.
func FormatOf(t CardType) Format {
	if f, ok := formats[t]; ok {
		return f
	}
	return Unrecognized(t)
}

// Known reports whether records in this format can be decoded.
func (f Format) Known() bool {
	return f.layout != layoutUnrecognized
}

func (f Format) String() string {
	if f.layout == layoutUnrecognized {
		return fmt.Sprintf("Unrecognized(%s)", f.typ)
	}
	return f.name
}
