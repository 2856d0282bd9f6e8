package optional

import (
	"github.com/Blackdeer1524/ISAMStore/src/pkg/assert"
)

// Optional holds either a value or nothing. Lookups that may miss return
// an Optional instead of a sentinel error.
type Optional[T any] struct {
	some  bool
	value T
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{
		some:  true,
		value: value,
	}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (opt Optional[T]) IsSome() bool {
	return opt.some
}

func (opt Optional[T]) IsNone() bool {
	return !opt.some
}

// Get returns the value and whether it is present.
func (opt Optional[T]) Get() (T, bool) {
	return opt.value, opt.some
}

func (opt Optional[T]) Unwrap() T {
	assert.Assert(opt.some, "unwrap of an empty optional")
	return opt.value
}

func (opt Optional[T]) Expect(msg string) T {
	assert.Assert(opt.some, msg)
	return opt.value
}

func (opt Optional[T]) UnwrapOr(fallback T) T {
	if !opt.some {
		return fallback
	}
	return opt.value
}
