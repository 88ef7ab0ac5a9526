// Package tlv maps BER-TLV (Basic Encoding Rules - Tag-Length-Value) data to Go structures
// and back using struct tags.
//
// A field takes part when it carries a `tlv:"<tag>"` tag. Supported field kinds:
//
//   - []byte and [N]byte: the raw value (an array must match the value length exactly)
//   - uint8 to uint64: the value read as a big-endian unsigned integer
//   - string: the value hex encoded
//   - struct or *struct: a constructed template, decoded recursively
//   - a slice of any of the above: one element per occurrence of the tag
//   - any type implementing Unmarshaler (Marshaler when encoding)
//
// A field named Unknown, or tagged `tlv:",unknown"`, of type []bertlv.TLV collects the
// packets no other field claimed.
package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal parses raw BER-TLV data and maps it into a target Go struct.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps a slice of pre-decoded bertlv.TLV objects to a target struct.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to a struct")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make([]bool, len(packets))
	var unknown reflect.Value

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		tag, isUnknown := fieldTag(fieldType)
		if isUnknown {
			unknown = v.Field(i)
			continue
		}
		if tag == "" {
			continue
		}

		for idx, packet := range packets {
			if !strings.EqualFold(packet.Tag, tag) {
				continue
			}
			if err := mapPacketToField(packet, v.Field(i)); err != nil {
				return fmt.Errorf("tag %s (%s): %w", tag, fieldType.Name, err)
			}
			consumed[idx] = true
		}
	}

	if unknown.IsValid() && unknown.CanSet() {
		var leftovers []bertlv.TLV
		for idx, packet := range packets {
			if !consumed[idx] {
				leftovers = append(leftovers, packet)
			}
		}
		if len(leftovers) > 0 {
			unknown.Set(reflect.ValueOf(leftovers))
		}
	}
	return nil
}

// fieldTag returns the upper-cased tag of a struct field and whether the field collects
// unclaimed packets.
func fieldTag(f reflect.StructField) (string, bool) {
	config := f.Tag.Get("tlv")
	if config == ",unknown" || (f.Name == "Unknown" && f.Type == reflect.TypeOf([]bertlv.TLV{})) {
		return "", true
	}
	if config == "" {
		return "", false
	}
	return strings.ToUpper(strings.Split(config, ",")[0]), false
}

// mapPacketToField appends to repeatable slices and decodes everything else in place.
func mapPacketToField(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) && !isUnmarshaler(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeToValue(packet, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return decodeToValue(packet, field)
}

func decodeToValue(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawValue(packet))

	case isByteArray(field):
		raw := rawValue(packet)
		if len(raw) != field.Len() {
			return fmt.Errorf("value is %d bytes, want %d", len(raw), field.Len())
		}
		reflect.Copy(field, reflect.ValueOf(raw))

	case isUint(field):
		raw := rawValue(packet)
		if len(raw) > int(field.Type().Size()) {
			return fmt.Errorf("value of %d bytes overflows %s", len(raw), field.Kind())
		}
		var n uint64
		for _, b := range raw {
			n = n<<8 | uint64(b)
		}
		field.SetUint(n)

	case field.Kind() == reflect.String:
		field.SetString(hex.EncodeToString(packet.Value))

	case isStructOrPtrToStruct(field):
		target := getTargetField(field)
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, target.Interface())
		}
		if len(packet.Value) == 0 {
			return nil
		}
		return Unmarshal(packet.Value, target.Interface())

	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

// rawValue returns the value of a packet, re-encoding its children for constructed tags.
func rawValue(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// GetValue scans data, templates included, for the first occurrence of tag and returns
// its raw value.
func GetValue(data []byte, tag uint) ([]byte, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%X", tag)
	if p, ok := findPacket(packets, target); ok {
		return rawValue(p), nil
	}
	return nil, fmt.Errorf("tag %s not found", target)
}

func findPacket(packets []bertlv.TLV, tag string) (bertlv.TLV, bool) {
	for _, p := range packets {
		if strings.EqualFold(p.Tag, tag) {
			return p, true
		}
	}
	for _, p := range packets {
		if found, ok := findPacket(p.TLVs, tag); ok {
			return found, true
		}
	}
	return bertlv.TLV{}, false
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isByteArray(v reflect.Value) bool {
	return v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isUnmarshaler(v reflect.Value) bool {
	return v.CanAddr() && v.Addr().Type().Implements(reflect.TypeOf((*Unmarshaler)(nil)).Elem())
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func getTargetField(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
