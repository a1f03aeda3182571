package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// FromJSON decodes a JSON document into values. Object key order is kept.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := NewList()
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list.Elements = append(list.Elements, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return NumberVal(f), nil
	case string:
		return StringVal(t), nil
	case bool:
		return BoolVal(t), nil
	case nil:
		return Null, nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// ToGo converts a value to plain Go data suitable for encoding/json.
func ToGo(v Value) interface{} {
	switch val := v.(type) {
	case nil, NullVal:
		return nil
	case NumberVal:
		return float64(val)
	case StringVal:
		return string(val)
	case BoolVal:
		return bool(val)
	case *ListVal:
		out := make([]interface{}, len(val.Elements))
		for i, e := range val.Elements {
			out[i] = ToGo(e)
		}
		return out
	case *MapVal:
		out := make(map[string]interface{}, len(val.Keys))
		for _, k := range val.Keys {
			out[k] = ToGo(val.Values[k])
		}
		return out
	default:
		return v.String()
	}
}
