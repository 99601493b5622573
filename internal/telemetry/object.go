package telemetry

import (
	"encoding/json"
	"fmt"
	"time"
)

// object is a JSON object whose members are decoded on demand.
type object map[string]json.RawMessage

func (o object) lookup(key string) (json.RawMessage, error) {
	raw, ok := o[key]
	if !ok {
		return nil, &DecodeError{Field: key, Err: errMissing}
	}
	return raw, nil
}

func (o object) string(key string) (string, error) {
	raw, err := o.lookup(key)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &DecodeError{Field: key, Err: err}
	}
	return s, nil
}

func (o object) bool(key string) (bool, error) {
	raw, err := o.lookup(key)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, &DecodeError{Field: key, Err: err}
	}
	return b, nil
}

func (o object) time(key string) (time.Time, error) {
	s, err := o.string(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := parseTime(s)
	if err != nil {
		return time.Time{}, &DecodeError{Field: key, Err: err}
	}
	return t, nil
}

// child returns the nested object at key. A missing key or a JSON null is
// reported as absent.
func (o object) child(key string) (object, bool, error) {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return nil, false, nil
	}
	var c object
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, &DecodeError{Field: key, Err: fmt.Errorf("not an object: %w", err)}
	}
	return c, true, nil
}
