// Package index maintains the in-memory ordered key/value map and its
// secondary path=value term index, pairing a map for O(1) Get/Has
// with a sorted key slice for range queries.
package index

import (
	"sort"
	"sync"

	"github.com/jpl-au/jsonlkv/internal/value"
)

// Index is the engine's in-memory primary + secondary index. All
// methods are safe for concurrent use; callers needing read/write
// atomicity across multiple calls must hold their own lock.
type Index struct {
	mu sync.RWMutex

	values map[string]value.Value
	keys   []string // sorted, kept in sync with values

	// secondary term index: term -> set of keys, and the reverse
	// mapping so a key's old terms can be removed in O(terms-per-key)
	// on update/delete.
	byTerm map[string]map[string]struct{}
	terms  map[string]map[string]struct{} // key -> its current terms

	indexPaths []string
}

// New creates an empty index. indexPaths declares which JSON-pointer
// paths feed the secondary index; a path only ever contributes a term
// when it resolves to a string value.
func New(indexPaths []string) *Index {
	return &Index{
		values:     make(map[string]value.Value),
		byTerm:     make(map[string]map[string]struct{}),
		terms:      make(map[string]map[string]struct{}),
		indexPaths: indexPaths,
	}
}

// Set stores v under key, replacing any prior value and updating the
// secondary index accordingly. Returns true if key was newly added.
func (ix *Index) Set(key string, v value.Value) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, existed := ix.values[key]
	ix.removeTermsLocked(key)
	ix.values[key] = v
	ix.addTermsLocked(key, v)
	if !existed {
		ix.insertKeyLocked(key)
	}
	return !existed
}

// Delete removes key. Returns true if it existed.
func (ix *Index) Delete(key string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.values[key]; !ok {
		return false
	}
	ix.removeTermsLocked(key)
	delete(ix.values, key)
	ix.removeKeyLocked(key)
	return true
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.values = make(map[string]value.Value)
	ix.keys = nil
	ix.byTerm = make(map[string]map[string]struct{})
	ix.terms = make(map[string]map[string]struct{})
}

// Get returns the value stored under key.
func (ix *Index) Get(key string) (value.Value, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	v, ok := ix.values[key]
	return v, ok
}

// Has reports whether key exists.
func (ix *Index) Has(key string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.values[key]
	return ok
}

// Size returns the number of keys currently stored.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keys)
}

// Keys returns a sorted snapshot of all keys.
func (ix *Index) Keys() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// ForEach calls fn for every key in ascending order, stopping early
// if fn returns false. fn is called while holding a read lock, so it
// must not re-enter the index.
func (ix *Index) ForEach(fn func(key string, v value.Value) bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, k := range ix.keys {
		if !fn(k, ix.values[k]) {
			return
		}
	}
}

// Entry is one (key, value) pair returned by Range.
type Entry struct {
	Key   string
	Value value.Value
}

// Range returns entries with lo <= key <= hi (inclusive bounds; an
// empty bound means unbounded on that side), optionally filtered to
// keys whose secondary index contains term ("path=value"). Results
// are returned in ascending key order.
func (ix *Index) Range(lo, hi, term string) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	start := 0
	if lo != "" {
		start = sort.SearchStrings(ix.keys, lo)
	}
	end := len(ix.keys)
	if hi != "" {
		end = sort.SearchStrings(ix.keys, hi)
		if end < len(ix.keys) && ix.keys[end] == hi {
			end++
		}
	}
	if start > end {
		start = end
	}

	var allowed map[string]struct{}
	if term != "" {
		allowed = ix.byTerm[term]
	}

	out := make([]Entry, 0, end-start)
	for _, k := range ix.keys[start:end] {
		if term != "" {
			if _, ok := allowed[k]; !ok {
				continue
			}
		}
		out = append(out, Entry{Key: k, Value: ix.values[k]})
	}
	return out
}

func (ix *Index) insertKeyLocked(key string) {
	i := sort.SearchStrings(ix.keys, key)
	ix.keys = append(ix.keys, "")
	copy(ix.keys[i+1:], ix.keys[i:])
	ix.keys[i] = key
}

func (ix *Index) removeKeyLocked(key string) {
	i := sort.SearchStrings(ix.keys, key)
	if i < len(ix.keys) && ix.keys[i] == key {
		ix.keys = append(ix.keys[:i], ix.keys[i+1:]...)
	}
}

func (ix *Index) addTermsLocked(key string, v value.Value) {
	if len(ix.indexPaths) == 0 {
		return
	}
	terms := value.TermsForPaths(v, ix.indexPaths)
	if len(terms) == 0 {
		return
	}
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
		bucket, ok := ix.byTerm[term]
		if !ok {
			bucket = make(map[string]struct{})
			ix.byTerm[term] = bucket
		}
		bucket[key] = struct{}{}
	}
	ix.terms[key] = set
}

func (ix *Index) removeTermsLocked(key string) {
	for term := range ix.terms[key] {
		bucket := ix.byTerm[term]
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(ix.byTerm, term)
		}
	}
	delete(ix.terms, key)
}
