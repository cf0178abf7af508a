package generator

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
// This can be used to generate unique identifiers, lazily iterate, etc.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator produces UUIDv4 strings. Pipeline chains use it to tag
// the log lines of their processes.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Sequence hands out strictly increasing values starting at 1. It is safe
// for concurrent use and never fails.
type Sequence struct {
	n atomic.Uint64
}

func (s *Sequence) Next() (uint64, error) {
	return s.n.Add(1), nil
}

// Current returns the most recently issued value, or 0 if none was issued.
func (s *Sequence) Current() uint64 {
	return s.n.Load()
}

var (
	_ Generator[string] = &UUIDV4Generator{}
	_ Generator[uint64] = &Sequence{}
)
