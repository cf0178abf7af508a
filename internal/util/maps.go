package util

import "errors"

var (
	ErrNoElement        = errors.New("no element found")
	ErrMultipleElements = errors.New("multiple elements found")
)

// GetOne returns the only value of m. It fails when m is empty or holds
// more than one entry.
func GetOne[K comparable, T any](m map[K]T) (T, error) {
	var zero T
	switch len(m) {
	case 0:
		return zero, ErrNoElement
	case 1:
		for _, v := range m {
			return v, nil
		}
	}
	return zero, ErrMultipleElements
}
