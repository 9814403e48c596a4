package master

import (
	"context"
	"strings"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

// ArchivePrefix is prepended to a token's name when it moves from the
// current namespace into the archive namespace.
const ArchivePrefix = "/__ARCHIVE__"

// Archive atomically moves every given token from
// the current namespace into the archive namespace, provided each one
// currently exists with exactly the supplied version. All-or-nothing: if
// any token fails its precondition, none are archived.
func (m *Master) Archive(ctx context.Context, tokens []token.Token) error {
	ctx = journal.New(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReady(); err != nil {
		return err
	}

	if len(tokens) == 0 {
		return nil
	}

	seen := map[string]bool{}
	for _, t := range tokens {
		if t.Name == "" {
			return token.NewError(token.CodeInputError, "archive requires a name")
		}
		if strings.HasPrefix(t.Name, ArchivePrefix) {
			return token.NewError(token.CodeInputError, "cannot archive an already-archived name: %s", t.Name)
		}
		if seen[t.Name] {
			return token.NewError(token.CodeInputError, "duplicate name in batch: %s", t.Name)
		}
		seen[t.Name] = true

		existing, exists := m.idx.Get(t.Name)
		if !exists {
			journal.Log(ctx, "archive not found", "name", t.Name)
			return token.NewError(token.CodeNotFound, "token not found: %s", t.Name)
		}
		if existing.Version != t.Version {
			journal.Log(ctx, "archive version conflict", "name", t.Name)
			return token.NewError(token.CodeVersionConflict, "version mismatch for %s", t.Name)
		}
	}

	batch := persistence.Batch{}
	archived := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		live, _ := m.idx.Get(t.Name)
		arch := live.Clone()
		arch.Name = ArchivePrefix + live.Name
		batch.ArchiveInserts = append(batch.ArchiveInserts, arch)
		batch.CurrentDeletes = append(batch.CurrentDeletes, live.Name)
		archived = append(archived, arch)
	}

	if err := m.store.Persist(ctx, batch); err != nil {
		journal.Log(ctx, "persist failed", "error", err)
		return token.NewError(token.CodeUnknown, "persist: %v", err)
	}

	for _, t := range tokens {
		m.idx.Delete(t.Name)
	}

	journal.Log(ctx, "archived", "count", len(archived))
	m.logger.V(1).Info("archive", "journal", journal.Journal(ctx))
	return nil
}
