package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinball-run/pinball/pkg/token"
)

func TestPutGetDelete(t *testing.T) {
	idx := New()
	idx.Put(token.Token{Name: "/b", Version: 1})
	idx.Put(token.Token{Name: "/a", Version: 2})

	got, ok := idx.Get("/a")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 2, idx.Len())

	idx.Put(token.Token{Name: "/a", Version: 3})
	got, _ = idx.Get("/a")
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, 2, idx.Len(), "overwrite must not duplicate the name")

	idx.Delete("/a")
	_, ok = idx.Get("/a")
	assert.False(t, ok)
	idx.Delete("/a") // deleting a missing name is a no-op
	assert.Equal(t, 1, idx.Len())
}

func TestPrefixAscendingAndCapped(t *testing.T) {
	idx := New()
	for _, n := range []string{"/a/2", "/b/1", "/a/1", "/a/10"} {
		idx.Put(token.Token{Name: n})
	}

	got := idx.Prefix("/a/", 0)
	names := make([]string, 0, len(got))
	for _, tk := range got {
		names = append(names, tk.Name)
	}
	assert.Equal(t, []string{"/a/1", "/a/10", "/a/2"}, names, "lexicographic ascending")

	capped := idx.Prefix("/a/", 2)
	assert.Len(t, capped, 2)
	assert.Equal(t, "/a/1", capped[0].Name)
}

func TestEachStopsEarly(t *testing.T) {
	idx := New()
	for _, n := range []string{"/a/1", "/a/2", "/a/3"} {
		idx.Put(token.Token{Name: n})
	}
	var seen int
	idx.Each("/a/", func(token.Token) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}
