package master

import (
	"context"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

// Modify applies a batch of inserts, updates, and deletes. It is atomic:
// every precondition is
// checked against the current in-memory index before any mutation is
// computed, and the resulting batch is handed to the persistence store as
// one transaction. A Go zero-value Version (0) on an update means "insert"
// (spec invariant: insert operations must not supply a version); the
// Master never itself assigns version 0, so this sentinel is unambiguous.
func (m *Master) Modify(ctx context.Context, updates []token.Token, deletes []token.Token) ([]token.Token, error) {
	ctx = journal.New(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReady(); err != nil {
		return nil, err
	}

	if err := m.validateModify(ctx, updates, deletes); err != nil {
		return nil, err
	}

	start, err := m.store.AllocateVersions(ctx, len(updates))
	if err != nil {
		journal.Log(ctx, "allocate versions failed", "error", err)
		return nil, token.NewError(token.CodeUnknown, "allocate versions: %v", err)
	}

	assigned := make([]token.Token, len(updates))
	for i, u := range updates {
		nt := u
		nt.Version = start + int64(i)
		assigned[i] = nt
	}

	batch := persistence.Batch{
		CurrentUpserts: assigned,
	}
	for _, d := range deletes {
		batch.CurrentDeletes = append(batch.CurrentDeletes, d.Name)
	}

	if err := m.store.Persist(ctx, batch); err != nil {
		journal.Log(ctx, "persist failed", "error", err)
		return nil, token.NewError(token.CodeUnknown, "persist: %v", err)
	}

	for _, d := range deletes {
		m.idx.Delete(d.Name)
	}
	for _, t := range assigned {
		m.idx.Put(t)
	}

	journal.Log(ctx, "modify committed", "updates", len(assigned), "deletes", len(deletes))
	m.logger.V(1).Info("modify", "journal", journal.Journal(ctx))
	return assigned, nil
}

// validateModify checks every batch precondition against the current
// index. It mutates nothing.
func (m *Master) validateModify(ctx context.Context, updates []token.Token, deletes []token.Token) error {
	seen := map[string]bool{}

	for _, u := range updates {
		if err := token.Validate(u); err != nil {
			journal.Log(ctx, "input error", "name", u.Name, "error", err)
			return token.NewError(token.CodeInputError, "%v", err)
		}
		if u.Priority != u.Priority { // NaN
			return token.NewError(token.CodeInputError, "priority must not be NaN: %s", u.Name)
		}
		if seen[u.Name] {
			return token.NewError(token.CodeInputError, "duplicate name in batch: %s", u.Name)
		}
		seen[u.Name] = true

		existing, exists := m.idx.Get(u.Name)
		switch {
		case u.Version == 0:
			// Insert path: must not already exist.
			if exists {
				journal.Log(ctx, "insert conflict", "name", u.Name)
				return token.NewError(token.CodeVersionConflict, "token already exists: %s", u.Name)
			}
		default:
			// Update path: must exist with exactly this version.
			if !exists || existing.Version != u.Version {
				journal.Log(ctx, "update version conflict", "name", u.Name, "wanted", u.Version)
				return token.NewError(token.CodeVersionConflict, "version mismatch for %s", u.Name)
			}
		}
	}

	for _, d := range deletes {
		if d.Name == "" {
			return token.NewError(token.CodeInputError, "delete requires a name")
		}
		if seen[d.Name] {
			return token.NewError(token.CodeInputError, "name both updated and deleted in same batch: %s", d.Name)
		}
		seen[d.Name] = true
		if d.Version == 0 {
			return token.NewError(token.CodeInputError, "delete requires a version: %s", d.Name)
		}
		existing, exists := m.idx.Get(d.Name)
		if !exists {
			journal.Log(ctx, "delete not found", "name", d.Name)
			return token.NewError(token.CodeNotFound, "token not found: %s", d.Name)
		}
		if existing.Version != d.Version {
			journal.Log(ctx, "delete version conflict", "name", d.Name)
			return token.NewError(token.CodeVersionConflict, "version mismatch for %s", d.Name)
		}
	}

	return nil
}
