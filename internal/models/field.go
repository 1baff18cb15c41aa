package models

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state JSON value for partial updates: absent from the
// document, explicitly null, or set. Update requests use it so "leave
// unchanged" and "clear" stay distinguishable.
type Field[T any] struct {
	Set   bool // key was present in the JSON document
	Valid bool // value was non-null
	Value T
}

// UnmarshalJSON is only invoked for keys present in the document, so
// Set is always true here; absent keys keep the zero Field.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(data, []byte("null")) {
		f.Valid = false
		var zero T
		f.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// MarshalJSON renders unset and null fields as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a pointer, nil when absent or null.
func (f Field[T]) Ptr() *T {
	if !f.Set || !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
