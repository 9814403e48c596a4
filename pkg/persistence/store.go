// Package persistence defines the Master's durable write-through boundary.
// The Master is otherwise entirely in-memory; every
// acknowledged write must have crossed Persist before the RPC returns, and
// a restart must be able to rebuild the in-memory index from LoadAll alone.
package persistence

import (
	"context"

	"github.com/pinball-run/pinball/pkg/token"
)

// Batch is a transactional unit of durable change. It may touch both the
// current and archive namespaces (archival moves a token from one to the
// other in a single transaction), but never partially: either every field
// below lands, or none does.
type Batch struct {
	// CurrentUpserts are tokens to insert or overwrite in current_tokens.
	CurrentUpserts []token.Token
	// CurrentDeletes are token names to remove from current_tokens.
	CurrentDeletes []string
	// ArchiveInserts are tokens to write into archived_tokens. Per spec
	// §3.3/§4.4.5 the archive namespace is immutable, so this is always an
	// insert, never an upsert.
	ArchiveInserts []token.Token
}

func (b Batch) Empty() bool {
	return len(b.CurrentUpserts) == 0 && len(b.CurrentDeletes) == 0 && len(b.ArchiveInserts) == 0
}

// Store is the Master's persistence boundary.
type Store interface {
	// AllocateVersions reserves n strictly-increasing, globally-unique
	// version numbers and returns the first one; version i is start+i for
	// i in [0,n). Versions are unique across the Store's entire lifetime,
	// including across process restarts.
	AllocateVersions(ctx context.Context, n int) (start int64, err error)

	// Persist durably commits batch. The Master must not mutate its
	// in-memory index, nor acknowledge the triggering RPC, until this
	// returns successfully.
	Persist(ctx context.Context, batch Batch) error

	// LoadAll returns every live (non-archived) token, used once at Master
	// startup to rebuild the in-memory index.
	LoadAll(ctx context.Context) ([]token.Token, error)

	// ReadArchive returns every archived token whose name starts with
	// prefix. This is on the UI's read path, never the Master's.
	ReadArchive(ctx context.Context, namePrefix string) ([]token.Token, error)

	// Close releases any underlying resources (connection pools, etc).
	Close() error
}
