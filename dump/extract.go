package dump

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
)

var (
	ErrNoPayload    = errors.New("line has no json payload")
	ErrMalformed    = errors.New("malformed json")
	ErrMissingField = errors.New("missing field")
)

// Object is one decoded record, with its values left raw until a mapper
// asks for them.
type Object map[string]json.RawMessage

// Extract decodes the json object embedded in a dump line. Dump lines carry
// tab separated type, key, revision and timestamp columns in front of the
// json, so everything before the first '{' is ignored.
func Extract(line string) (Object, error) {
	start := strings.IndexByte(line, '{')
	if start == -1 {
		return nil, ErrNoPayload
	}

	payload := line[start:]
	if strings.TrimSpace(payload) == "" {
		return nil, ErrNoPayload
	}

	obj := Object{}
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return obj, nil
}

// String reads a required string field.
func (o Object) String(key string) (string, error) {
	s, found := o.LookupString(key)
	if !found {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}

	return s, nil
}

// LookupString reads a string field, reporting false when the field is
// missing or holds some other kind of value.
func (o Object) LookupString(key string) (string, bool) {
	raw, found := o.value(key)
	if !found || kind(raw) != '"' {
		return "", false
	}

	return Scalar(raw)
}

// OptString reads an optional field as text, giving "" when the field is
// missing or null. Non-string values come back as their json text.
func (o Object) OptString(key string) string {
	raw, found := o.value(key)
	if !found {
		return ""
	}

	if s, ok := Scalar(raw); ok {
		return s
	}

	return string(bytes.TrimSpace(raw))
}

func (o Object) OptObject(key string) (Object, bool) {
	raw, found := o.value(key)
	if !found {
		return nil, false
	}

	return ObjectOf(raw)
}

func (o Object) OptArray(key string) ([]json.RawMessage, bool) {
	raw, found := o.value(key)
	if !found || kind(raw) != '[' {
		return nil, false
	}

	arr := []json.RawMessage{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}

	return arr, true
}

func (o Object) value(key string) (json.RawMessage, bool) {
	raw, found := o[key]
	if !found || kind(raw) == 'n' {
		return nil, false
	}

	return raw, true
}

// ObjectOf decodes raw as an object, reporting false for any other kind.
func ObjectOf(raw json.RawMessage) (Object, bool) {
	if kind(raw) != '{' {
		return nil, false
	}

	obj := Object{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}

	return obj, true
}

// Scalar gives the text of a string, number or boolean. Strings are
// unquoted, numbers keep their literal form.
func Scalar(raw json.RawMessage) (string, bool) {
	switch kind(raw) {
	case '"':
		s := ""
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true

	case 't', 'f', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(bytes.TrimSpace(raw)), true
	}

	return "", false
}

func kind(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}

	return trimmed[0]
}
