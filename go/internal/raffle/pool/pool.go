package pool

import (
	"errors"
	"math/rand"
	"time"
)

// ErrEmptyPool is returned when picking from or removing out of an empty pool.
// Callers check Size() first; seeing this error means a precondition was skipped.
var ErrEmptyPool = errors.New("pool is empty")

// Pool holds the records still available for drawing.
// It is not safe for concurrent use; the owning session serializes access.
type Pool[T any] struct {
	items []T
	rng   *rand.Rand
}

// New builds a pool over a copy of items with its own seeded source.
func New[T any](items []T) *Pool[T] {
	return NewWithRand(items, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand builds a pool drawing from the given source.
func NewWithRand[T any](items []T, rng *rand.Rand) *Pool[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return &Pool[T]{items: cp, rng: rng}
}

// Size returns the number of remaining records.
func (p *Pool[T]) Size() int {
	return len(p.items)
}

// PickRandomIndex returns an index uniformly distributed over [0, Size()).
func (p *Pool[T]) PickRandomIndex() (int, error) {
	if len(p.items) == 0 {
		return 0, ErrEmptyPool
	}
	return p.rng.Intn(len(p.items)), nil
}

// At returns the record at i without removing it.
func (p *Pool[T]) At(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(p.items) {
		return zero, ErrEmptyPool
	}
	return p.items[i], nil
}

// RemoveAt removes and returns the record at i, keeping the order of the rest.
func (p *Pool[T]) RemoveAt(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(p.items) {
		return zero, ErrEmptyPool
	}
	item := p.items[i]
	p.items = append(p.items[:i], p.items[i+1:]...)
	return item, nil
}

// Items returns a copy of the remaining records.
func (p *Pool[T]) Items() []T {
	cp := make([]T, len(p.items))
	copy(cp, p.items)
	return cp
}
