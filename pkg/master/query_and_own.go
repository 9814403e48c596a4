package master

import (
	"context"
	"sort"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

// QueryAndOwn atomically claims up to
// query.MaxTokens currently-unowned tokens under query.NamePrefix on behalf
// of owner, ranked by priority descending, then name ascending, and extend
// (or set) their ownership to expire at expirationTime.
func (m *Master) QueryAndOwn(ctx context.Context, owner string, expirationTime int64, query NameQuery) ([]token.Token, error) {
	ctx = journal.New(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReady(); err != nil {
		return nil, err
	}

	if owner == "" {
		return nil, token.NewError(token.CodeInputError, "owner must not be empty")
	}
	now := m.nowFunc()
	if expirationTime != token.NoExpiration && expirationTime <= now.Unix() {
		return nil, token.NewError(token.CodeInputError, "expirationTime must be in the future")
	}

	var candidates []token.Token
	m.idx.Each(query.NamePrefix, func(t token.Token) bool {
		if t.Claimable(now) {
			candidates = append(candidates, t)
		}
		return true
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Name < candidates[j].Name
	})

	max := query.MaxTokens
	if max <= 0 || max > len(candidates) {
		max = len(candidates)
	}
	chosen := candidates[:max]
	if len(chosen) == 0 {
		journal.Log(ctx, "query_and_own claimed nothing", "prefix", query.NamePrefix)
		return nil, nil
	}

	start, err := m.store.AllocateVersions(ctx, len(chosen))
	if err != nil {
		journal.Log(ctx, "allocate versions failed", "error", err)
		return nil, token.NewError(token.CodeUnknown, "allocate versions: %v", err)
	}

	owned := make([]token.Token, len(chosen))
	for i, c := range chosen {
		nt := c
		nt.Version = start + int64(i)
		nt.Owner = owner
		nt.ExpirationTime = expirationTime
		owned[i] = nt
	}

	if err := m.store.Persist(ctx, persistence.Batch{CurrentUpserts: owned}); err != nil {
		journal.Log(ctx, "persist failed", "error", err)
		return nil, token.NewError(token.CodeUnknown, "persist: %v", err)
	}

	for _, t := range owned {
		m.idx.Put(t)
	}

	journal.Log(ctx, "query_and_own claimed", "owner", owner, "count", len(owned))
	m.logger.V(1).Info("query_and_own", "journal", journal.Journal(ctx))
	return owned, nil
}
