package kv

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

type Pair struct {
	Key, Value string
}

// Storage is an ordered associative structure for (string, string) pairs. Keys are compared
// case-insensitively, and every key is stored at most once: setting an already present key
// replaces its value in place, keeping both the original position and the original key
// spelling. Lookups are linear, which is faster than a map for the handful of entries a
// typical request or response carries.
type Storage struct {
	pairs []Pair
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns an instance of Storage with pre-allocated underlying storage.
func NewPrealloc(n int) *Storage {
	return &Storage{
		pairs: make([]Pair, 0, n),
	}
}

// Set stores the value by the key. If the key is already present (case-insensitively),
// its value is overwritten and the pair stays where it was.
func (s *Storage) Set(key, value string) *Storage {
	if i := s.index(key); i != -1 {
		s.pairs[i].Value = value
		return s
	}

	s.pairs = append(s.pairs, Pair{
		Key:   key,
		Value: value,
	})
	return s
}

// Delete removes the pair by the key, if any.
func (s *Storage) Delete(key string) *Storage {
	if i := s.index(key); i != -1 {
		s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
	}

	return s
}

// Value returns the value corresponding to the key. Otherwise, empty string is returned
func (s *Storage) Value(key string) string {
	return s.ValueOr(key, "")
}

// ValueOr returns either the value corresponding to the key or custom value, defined
// via the second parameter.
func (s *Storage) ValueOr(key, or string) string {
	value, found := s.Get(key)
	if !found {
		return or
	}

	return value
}

// Get returns a value and a bool, indicating whether the value was found.
func (s *Storage) Get(key string) (value string, found bool) {
	if i := s.index(key); i != -1 {
		return s.pairs[i].Value, true
	}

	return "", false
}

// Has indicates, whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	return s.index(key) != -1
}

// Keys returns an iterator over stored keys in insertion order.
func (s *Storage) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key) {
				return
			}
		}
	}
}

// Pairs returns an iterator over the pairs in insertion order.
func (s *Storage) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Len returns a number of stored pairs.
func (s *Storage) Len() int {
	return len(s.pairs)
}

func (s *Storage) Empty() bool {
	return s.Len() == 0
}

// Clone creates a deep copy, which may be used later or stored somewhere safely.
func (s *Storage) Clone() *Storage {
	if len(s.pairs) == 0 {
		return New()
	}

	pairs := make([]Pair, len(s.pairs))
	copy(pairs, s.pairs)

	return &Storage{pairs: pairs}
}

// Expose exposes the underlying pairs slice.
func (s *Storage) Expose() []Pair {
	return s.pairs
}

// Clear all the entries. However, all the allocated space won't be freed.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}

func (s *Storage) index(key string) int {
	for i, pair := range s.pairs {
		if strcomp.EqualFold(key, pair.Key) {
			return i
		}
	}

	return -1
}
