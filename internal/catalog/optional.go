package catalog

import (
	"bytes"

	"github.com/goccy/go-json"
)

// OrFalse holds an optional value that is written to JSON as the literal
// false when absent. Stored albums and API clients rely on that shape for
// artwork and color.
//
// It unmarshals from false, null, or the value itself. The value is held
// inline with a flag; goccy/go-json encodes a struct whose only field is a
// pointer as that pointer and would write null without calling MarshalJSON.
type OrFalse[T any] struct {
	value T
	ok    bool
}

// Some wraps v as a present value.
func Some[T any](v T) OrFalse[T] {
	return OrFalse[T]{value: v, ok: true}
}

// None returns an absent value.
func None[T any]() OrFalse[T] {
	return OrFalse[T]{}
}

// Get returns the value and whether it is present.
func (o OrFalse[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Ptr returns a copy of the value, or nil when absent.
func (o OrFalse[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.value
	return &v
}

// Present reports whether a value is held.
func (o OrFalse[T]) Present() bool {
	return o.ok
}

// MarshalJSON writes false for an absent value.
func (o OrFalse[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("false"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON accepts false, null, or a T.
func (o *OrFalse[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		*o = OrFalse[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*o = OrFalse[T]{value: v, ok: true}
	return nil
}
