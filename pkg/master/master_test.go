package master

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

type fakeStore struct {
	tokens    map[string]token.Token
	nextVer   int64
	persisted []persistence.Batch
	persistFn func(persistence.Batch) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tokens: map[string]token.Token{}, nextVer: 1}
}

func (f *fakeStore) AllocateVersions(_ context.Context, n int) (int64, error) {
	start := f.nextVer
	f.nextVer += int64(n)
	return start, nil
}

func (f *fakeStore) Persist(_ context.Context, b persistence.Batch) error {
	if f.persistFn != nil {
		if err := f.persistFn(b); err != nil {
			return err
		}
	}
	f.persisted = append(f.persisted, b)
	for _, t := range b.CurrentUpserts {
		f.tokens[t.Name] = t
	}
	for _, n := range b.CurrentDeletes {
		delete(f.tokens, n)
	}
	return nil
}

func (f *fakeStore) LoadAll(_ context.Context) ([]token.Token, error) {
	out := make([]token.Token, 0, len(f.tokens))
	for _, t := range f.tokens {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ReadArchive(_ context.Context, _ string) ([]token.Token, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func newReadyMaster(t *testing.T) (*Master, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	m := New(store)
	require.NoError(t, m.Recover(context.Background()))
	return m, store
}

func TestNotReadyBeforeRecover(t *testing.T) {
	m := New(newFakeStore())
	_, err := m.Query(context.Background(), []NameQuery{{NamePrefix: "/"}})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestModifyInsertThenVersionConflict(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()

	inserted, err := m.Modify(ctx, []token.Token{{Name: "/workflow/a"}}, nil)
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, int64(1), inserted[0].Version)

	_, err = m.Modify(ctx, []token.Token{{Name: "/workflow/a"}}, nil)
	require.Error(t, err)
	assert.True(t, token.IsCode(err, token.CodeVersionConflict))

	updated, err := m.Modify(ctx, []token.Token{{Name: "/workflow/a", Version: 1, Priority: 5}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated[0].Priority)
	assert.NotEqual(t, int64(1), updated[0].Version)
}

func TestModifyDeleteRequiresVersion(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()
	_, err := m.Modify(ctx, nil, []token.Token{{Name: "/workflow/a"}})
	require.Error(t, err)
	assert.True(t, token.IsCode(err, token.CodeInputError))
}

func TestModifyDeleteNotFound(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()
	_, err := m.Modify(ctx, nil, []token.Token{{Name: "/workflow/a", Version: 1}})
	require.Error(t, err)
	assert.True(t, token.IsCode(err, token.CodeNotFound))
}

func TestModifyAllOrNothing(t *testing.T) {
	m, store := newReadyMaster(t)
	ctx := context.Background()

	_, err := m.Modify(ctx, []token.Token{
		{Name: "/workflow/good"},
		{Name: "/workflow/bad", Version: 99},
	}, nil)
	require.Error(t, err)
	assert.True(t, token.IsCode(err, token.CodeVersionConflict))
	assert.Empty(t, store.tokens, "no partial effect on a rejected batch")
}

func TestQueryAndOwnRanksByPriorityThenName(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()

	_, err := m.Modify(ctx, []token.Token{
		{Name: "/jobs/b", Priority: 1},
		{Name: "/jobs/a", Priority: 5},
		{Name: "/jobs/c", Priority: 5},
	}, nil)
	require.NoError(t, err)

	owned, err := m.QueryAndOwn(ctx, "worker-1", time.Now().Add(time.Hour).Unix(), NameQuery{NamePrefix: "/jobs/", MaxTokens: 2})
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "/jobs/a", owned[0].Name)
	assert.Equal(t, "/jobs/c", owned[1].Name)
	assert.Equal(t, "worker-1", owned[0].Owner)
}

func TestQueryAndOwnSkipsOwnedTokens(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()

	_, err := m.Modify(ctx, []token.Token{{Name: "/jobs/a"}}, nil)
	require.NoError(t, err)
	_, err = m.QueryAndOwn(ctx, "worker-1", time.Now().Add(time.Hour).Unix(), NameQuery{NamePrefix: "/jobs/", MaxTokens: 10})
	require.NoError(t, err)

	owned, err := m.QueryAndOwn(ctx, "worker-2", time.Now().Add(time.Hour).Unix(), NameQuery{NamePrefix: "/jobs/", MaxTokens: 10})
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestQueryAndOwnAfterLeaseExpiry(t *testing.T) {
	store := newFakeStore()
	now := time.Unix(10_000, 0)
	m := New(store, WithNowFunc(func() time.Time { return now }))
	require.NoError(t, m.Recover(context.Background()))
	ctx := context.Background()

	_, err := m.Modify(ctx, []token.Token{{Name: "/jobs/a"}}, nil)
	require.NoError(t, err)

	owned, err := m.QueryAndOwn(ctx, "worker-1", now.Unix()+60, NameQuery{NamePrefix: "/jobs/", MaxTokens: 1})
	require.NoError(t, err)
	require.Len(t, owned, 1)

	// Before the lease ends, nobody else can claim it.
	blocked, err := m.QueryAndOwn(ctx, "worker-2", now.Unix()+60, NameQuery{NamePrefix: "/jobs/", MaxTokens: 1})
	require.NoError(t, err)
	assert.Empty(t, blocked)

	// Past the lease, the token is claimable again and carries a fresh
	// version, so the original worker's completion will conflict.
	now = now.Add(2 * time.Minute)
	reclaimed, err := m.QueryAndOwn(ctx, "worker-3", now.Unix()+60, NameQuery{NamePrefix: "/jobs/", MaxTokens: 1})
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, "worker-3", reclaimed[0].Owner)
	assert.Greater(t, reclaimed[0].Version, owned[0].Version)
}

func TestQueryAndOwnRejectsPastExpiration(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()
	_, err := m.QueryAndOwn(ctx, "worker-1", time.Now().Add(-time.Hour).Unix(), NameQuery{NamePrefix: "/jobs/"})
	require.Error(t, err)
	assert.True(t, token.IsCode(err, token.CodeInputError))
}

func TestArchiveMovesToArchiveNamespace(t *testing.T) {
	m, store := newReadyMaster(t)
	ctx := context.Background()

	inserted, err := m.Modify(ctx, []token.Token{{Name: "/workflow/a", Data: []byte("x")}}, nil)
	require.NoError(t, err)

	err = m.Archive(ctx, []token.Token{{Name: "/workflow/a", Version: inserted[0].Version}})
	require.NoError(t, err)

	_, exists := m.idx.Get("/workflow/a")
	assert.False(t, exists)
	_, exists = store.tokens["/workflow/a"]
	assert.False(t, exists)

	last := store.persisted[len(store.persisted)-1]
	require.Len(t, last.ArchiveInserts, 1)
	assert.Equal(t, "/__ARCHIVE__/workflow/a", last.ArchiveInserts[0].Name)
}

func TestArchiveVersionConflictIsAllOrNothing(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()
	inserted, err := m.Modify(ctx, []token.Token{{Name: "/workflow/a"}}, nil)
	require.NoError(t, err)

	err = m.Archive(ctx, []token.Token{{Name: "/workflow/a", Version: inserted[0].Version + 1}})
	require.Error(t, err)
	assert.True(t, token.IsCode(err, token.CodeVersionConflict))
	_, exists := m.idx.Get("/workflow/a")
	assert.True(t, exists, "token must remain live after a rejected archive")
}

func TestGroupCountsBySuffix(t *testing.T) {
	m, _ := newReadyMaster(t)
	ctx := context.Background()
	_, err := m.Modify(ctx, []token.Token{
		{Name: "/workflow/wf1/inst-1/job-a"},
		{Name: "/workflow/wf1/inst-2/job-b"},
		{Name: "/workflow/wf2/inst-1/job-c"},
	}, nil)
	require.NoError(t, err)

	groups, err := m.Group(ctx, "/workflow/", "/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), groups["wf1/"])
	assert.Equal(t, int64(1), groups["wf2/"])
}
