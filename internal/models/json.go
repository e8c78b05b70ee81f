package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONObject is a raw JSON object stored in a text or JSON column.
// An empty value reads and writes as {}.
type JSONObject json.RawMessage

var emptyObject = []byte("{}")

// ParseJSONObject validates that raw holds a JSON object
func ParseJSONObject(raw []byte) (JSONObject, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return JSONObject(emptyObject), nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil || probe == nil {
		return nil, errors.New("options must be a JSON object")
	}
	return JSONObject(append([]byte(nil), trimmed...)), nil
}

func (o JSONObject) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return emptyObject, nil
	}
	return []byte(o), nil
}

func (o *JSONObject) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}
	parsed, err := ParseJSONObject(data)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

func (o JSONObject) Value() (driver.Value, error) {
	if len(o) == 0 {
		return string(emptyObject), nil
	}
	return string(o), nil
}

func (o *JSONObject) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*o = nil
	case []byte:
		*o = append(JSONObject(nil), v...)
	case string:
		*o = JSONObject(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONObject", src)
	}
	return nil
}

// StringList is a list of strings stored as a JSON array
type StringList []string

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
