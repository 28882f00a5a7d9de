package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Embedded decodes a to-one relation that the store may serialize as an
// object, a single-element array, an empty array or null. Get returns nil
// for the last two.
type Embedded[T any] struct {
	value *T
}

// Embed wraps v as a present relation.
func Embed[T any](v T) Embedded[T] {
	return Embedded[T]{value: &v}
}

func (e Embedded[T]) Get() *T {
	return e.value
}

func (e *Embedded[T]) UnmarshalJSON(data []byte) error {
	e.value = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		var items []*T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("failed to decode embedded list: %w", err)
		}
		if len(items) > 0 {
			e.value = items[0]
		}
		return nil
	}

	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("failed to decode embedded object: %w", err)
	}
	e.value = &v
	return nil
}

func (e Embedded[T]) MarshalJSON() ([]byte, error) {
	if e.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.value)
}
