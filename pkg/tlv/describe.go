package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/moov-io/bertlv"
)

// WriteStructFields writes one line per populated field of s: byte slices and arrays,
// unsigned integers and unclaimed packets. The `fmt` tag selects the rendering of byte
// values: "ascii", "int" or "bcd".
//
// Lines are joined with newlines without a trailing one. If the builder is not empty, a
// newline separates this block from previous content.
func WriteStructFields(sb *strings.Builder, prefix string, s interface{}) {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	var lines []string

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		switch {
		case field.Type() == reflect.TypeOf([]bertlv.TLV{}):
			lines = append(lines, formatUnknownField(prefix, field)...)

		case isByteSlice(field), isByteArray(field):
			if field.Len() == 0 || field.IsZero() {
				continue
			}
			data := make([]byte, field.Len())
			reflect.Copy(reflect.ValueOf(data), field)
			lines = append(lines, formatLine(prefix, fieldType, formatByteValue(data, fieldType.Tag.Get("fmt"))))

		case isUint(field):
			if field.IsZero() {
				continue
			}
			lines = append(lines, formatLine(prefix, fieldType, fmt.Sprintf("%d (0x%X)", field.Uint(), field.Uint())))
		}
	}

	if len(lines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
}

func formatLine(prefix string, fieldType reflect.StructField, value string) string {
	name := fieldType.Name
	if tag := fieldType.Tag.Get("tlv"); tag != "" {
		name = fmt.Sprintf("%s (%s)", name, tag)
	}
	return fmt.Sprintf("    - %s.%s: %s", prefix, name, value)
}

func formatUnknownField(prefix string, field reflect.Value) []string {
	if field.IsNil() || field.Len() == 0 {
		return nil
	}

	var lines []string
	for _, t := range field.Interface().([]bertlv.TLV) {
		valStr := strings.ToUpper(hex.EncodeToString(rawValue(t)))
		lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %s", prefix, t.Tag, valStr))
	}
	return lines
}

func formatByteValue(data []byte, format string) string {
	switch format {
	case "ascii":
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case "int":
		var integer int
		for _, b := range data {
			integer = (integer << 8) | int(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, integer)
	case "bcd":
		digits := make([]string, len(data))
		for i, b := range data {
			if !bits.IsBCD(b) {
				return fmt.Sprintf("%X (not BCD)", data)
			}
			digits[i] = fmt.Sprintf("%02d", bits.FromBCD(b))
		}
		return fmt.Sprintf("%X (BCD: %s)", data, strings.Join(digits, " "))
	default:
		return strings.ToUpper(hex.EncodeToString(data))
	}
}

// MakeSafeASCII replaces every non-printable byte with a dot.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
