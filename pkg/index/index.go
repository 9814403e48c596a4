// Package index implements the Master's in-memory name index: exact lookup
// by name, plus ascending, prefix-bounded iteration. A sorted slice of
// names with binary-search insert/delete backs a map for O(1) exact
// lookup.
package index

import (
	"sort"
	"strings"

	"github.com/pinball-run/pinball/pkg/token"
)

// Index is not safe for concurrent use; it is only ever touched by the
// Master's single request-handling goroutine.
type Index struct {
	byName map[string]token.Token
	names  []string // kept sorted ascending
}

func New() *Index {
	return &Index{byName: make(map[string]token.Token)}
}

// Get returns the live token with the given name.
func (i *Index) Get(name string) (token.Token, bool) {
	t, ok := i.byName[name]
	return t, ok
}

// Put inserts or overwrites the token under t.Name.
func (i *Index) Put(t token.Token) {
	if _, exists := i.byName[t.Name]; !exists {
		pos := sort.SearchStrings(i.names, t.Name)
		i.names = append(i.names, "")
		copy(i.names[pos+1:], i.names[pos:])
		i.names[pos] = t.Name
	}
	i.byName[t.Name] = t
}

// Delete removes the token with the given name, if present.
func (i *Index) Delete(name string) {
	if _, exists := i.byName[name]; !exists {
		return
	}
	delete(i.byName, name)
	pos := sort.SearchStrings(i.names, name)
	if pos < len(i.names) && i.names[pos] == name {
		i.names = append(i.names[:pos], i.names[pos+1:]...)
	}
}

// Len returns the number of live tokens.
func (i *Index) Len() int {
	return len(i.names)
}

// Prefix returns, ascending by name, up to max tokens whose name starts with
// prefix. max<=0 means unbounded.
func (i *Index) Prefix(prefix string, max int) []token.Token {
	start := sort.SearchStrings(i.names, prefix)
	out := []token.Token{}
	for idx := start; idx < len(i.names); idx++ {
		name := i.names[idx]
		if !strings.HasPrefix(name, prefix) {
			break
		}
		out = append(out, i.byName[name])
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// Each calls fn for every token whose name starts with prefix, ascending by
// name, stopping early if fn returns false. Used by query_and_own, which
// must rank candidates by priority before taking the top maxTokens, and by
// group, which needs every matching token, not just a capped prefix scan.
func (i *Index) Each(prefix string, fn func(token.Token) bool) {
	start := sort.SearchStrings(i.names, prefix)
	for idx := start; idx < len(i.names); idx++ {
		name := i.names[idx]
		if !strings.HasPrefix(name, prefix) {
			return
		}
		if !fn(i.byName[name]) {
			return
		}
	}
}

// Snapshot returns every live token, ascending by name.
func (i *Index) Snapshot() []token.Token {
	out := make([]token.Token, 0, len(i.names))
	for _, name := range i.names {
		out = append(out, i.byName[name])
	}
	return out
}
