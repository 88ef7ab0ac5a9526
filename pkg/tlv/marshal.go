package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Marshaler allows custom types to produce their own TLV value.
type Marshaler interface {
	MarshalTLV() ([]byte, error)
}

// Marshal encodes a struct annotated with `tlv` tags into BER-TLV, in field order.
// Empty and zero fields are omitted. Unsigned integers take the full width of their type.
// It is the inverse of Unmarshal for the types Unmarshal supports.
func Marshal(src interface{}) ([]byte, error) {
	packets, err := MarshalToPackets(src)
	if err != nil {
		return nil, err
	}
	return bertlv.Encode(packets)
}

// MarshalToPackets maps a tagged struct to bertlv.TLV objects.
func MarshalToPackets(src interface{}) ([]bertlv.TLV, error) {
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("source must be a struct, got %s", v.Kind())
	}
	t := v.Type()

	var packets []bertlv.TLV
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		tagConfig := fieldType.Tag.Get("tlv")

		if tagConfig == ",unknown" || fieldType.Name == "Unknown" {
			if extra, ok := field.Interface().([]bertlv.TLV); ok {
				packets = append(packets, extra...)
			}
			continue
		}
		if tagConfig == "" {
			continue
		}

		tag := strings.ToUpper(strings.Split(tagConfig, ",")[0])
		encoded, err := encodeField(tag, field)
		if err != nil {
			return nil, fmt.Errorf("field %s (%s): %w", fieldType.Name, tag, err)
		}
		packets = append(packets, encoded...)
	}
	return packets, nil
}

func encodeField(tag string, field reflect.Value) ([]bertlv.TLV, error) {
	// 1. Custom Marshaler
	if m, ok := field.Interface().(Marshaler); ok {
		value, err := m.MarshalTLV()
		if err != nil || len(value) == 0 {
			return nil, err
		}
		return []bertlv.TLV{{Tag: tag, Value: value}}, nil
	}
	if field.CanAddr() {
		if m, ok := field.Addr().Interface().(Marshaler); ok {
			value, err := m.MarshalTLV()
			if err != nil || len(value) == 0 {
				return nil, err
			}
			return []bertlv.TLV{{Tag: tag, Value: value}}, nil
		}
	}

	switch {
	case isByteSlice(field):
		if field.Len() == 0 {
			return nil, nil
		}
		return []bertlv.TLV{{Tag: tag, Value: field.Bytes()}}, nil

	case isByteArray(field):
		if field.IsZero() {
			return nil, nil
		}
		value := make([]byte, field.Len())
		reflect.Copy(reflect.ValueOf(value), field)
		return []bertlv.TLV{{Tag: tag, Value: value}}, nil

	case isUint(field):
		if field.IsZero() {
			return nil, nil
		}
		size := int(field.Type().Size())
		value := make([]byte, size)
		n := field.Uint()
		for i := size - 1; i >= 0; i-- {
			value[i] = byte(n)
			n >>= 8
		}
		return []bertlv.TLV{{Tag: tag, Value: value}}, nil

	case field.Kind() == reflect.String:
		if field.Len() == 0 {
			return nil, nil
		}
		value, err := hex.DecodeString(field.String())
		if err != nil {
			return nil, err
		}
		return []bertlv.TLV{{Tag: tag, Value: value}}, nil

	case isStructOrPtrToStruct(field):
		if field.Kind() == reflect.Ptr && field.IsNil() {
			return nil, nil
		}
		children, err := MarshalToPackets(field.Interface())
		if err != nil || len(children) == 0 {
			return nil, err
		}
		return []bertlv.TLV{{Tag: tag, TLVs: children}}, nil

	case field.Kind() == reflect.Slice:
		var out []bertlv.TLV
		for i := 0; i < field.Len(); i++ {
			encoded, err := encodeField(tag, field.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported kind %s", field.Kind())
}
