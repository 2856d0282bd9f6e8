package utils

import (
	"errors"
	"iter"
	"math/rand"
	"os"

	"github.com/spf13/afero"
)

type Pair[T, K any] struct {
	First  T
	Second K
}

func (p Pair[T, K]) Destruct() (T, K) {
	return p.First, p.Second
}

// YieldError pushes a terminal error item into a fallible sequence.
func YieldError[T any](err error, yield func(Pair[T, error]) bool) bool {
	var zero T
	return yield(Pair[T, error]{First: zero, Second: err})
}

// Collect drains a fallible sequence, stopping at the first error.
func Collect[T any](seq iter.Seq[Pair[T, error]]) ([]T, error) {
	var out []T
	for item := range seq {
		v, err := item.Destruct()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func IsFileExists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// GenerateUniqueInts returns count distinct integers from [minVal, maxVal]
// in random order.
func GenerateUniqueInts[T ~int | ~int32 | ~int64](
	count int,
	minVal, maxVal T,
	r *rand.Rand,
) []T {
	span := int(maxVal-minVal) + 1
	if count > span {
		panic("count exceeds the size of the range")
	}

	perm := r.Perm(span)
	out := make([]T, count)
	for i := range count {
		out[i] = minVal + T(perm[i])
	}
	return out
}
