package util

// FindFirst returns the first element of s satisfying pred.
func FindFirst[T any](s []T, pred func(T) bool) (T, bool) {
	for _, v := range s {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Truncate returns at most the first n elements of s and how many were left out.
func Truncate[T any](s []T, n int) ([]T, int) {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s, 0
	}
	return s[:n], len(s) - n
}
