// Package master implements the Token Master: a single-threaded, durable,
// versioned authority over a namespace of tokens. Every exported method
// here is one of the five atomic operations; each takes the Master's
// single lock for its entire duration (including the call into the
// persistence store), so RPCs may arrive in parallel but are handled one
// at a time without any other internal locking. The lock is a sync.Mutex,
// which does not guarantee that waiting callers acquire it in arrival
// order.
package master

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/pinball-run/pinball/pkg/index"
	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

// State is the Master's lifecycle state.
type State int32

const (
	StateRecovering State = iota
	StateServing
)

func (s State) String() string {
	if s == StateServing {
		return "SERVING"
	}
	return "RECOVERING"
}

// ErrNotReady is returned by every RPC while the Master is RECOVERING. It
// is a retryable condition, not a client error.
var ErrNotReady = fmt.Errorf("master: not ready (RECOVERING)")

// Master is the Token Master. The zero value is not usable; construct with
// New.
type Master struct {
	mu    sync.Mutex
	idx   *index.Index
	store persistence.Store

	nowFunc func() time.Time
	logger  logr.Logger

	state State
}

type Option func(*Master)

func WithLogger(l logr.Logger) Option {
	return func(m *Master) { m.logger = l }
}

func WithNowFunc(f func() time.Time) Option {
	return func(m *Master) { m.nowFunc = f }
}

// New constructs a Master in the RECOVERING state. Call Recover before
// serving traffic.
func New(store persistence.Store, opts ...Option) *Master {
	m := &Master{
		idx:     index.New(),
		store:   store,
		nowFunc: time.Now,
		logger:  logr.Discard(),
		state:   StateRecovering,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recover loads the full current-namespace snapshot from the persistence
// store into memory and transitions the Master to SERVING. It must be
// called exactly once, before any RPC is accepted.
func (m *Master) Recover(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tokens, err := m.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("master: recover: %w", err)
	}
	for _, t := range tokens {
		m.idx.Put(t)
	}
	m.state = StateServing
	m.logger.Info("master recovered", "tokens", len(tokens))
	return nil
}

// State reports the Master's current lifecycle state.
func (m *Master) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// checkReady must be called while holding m.mu.
func (m *Master) checkReady() error {
	if m.state != StateServing {
		return ErrNotReady
	}
	return nil
}

// NameQuery mirrors proto.NameQuery at the domain level.
type NameQuery struct {
	NamePrefix string
	MaxTokens  int
}

// Group is a pure read for exploring the name hierarchy: for every token whose
// name starts with prefix, take the substring after prefix up to and
// including the first occurrence of groupSuffix (or the whole remainder if
// groupSuffix never occurs), and count occurrences of that substring.
func (m *Master) Group(ctx context.Context, prefix, groupSuffix string) (map[string]int64, error) {
	ctx = journal.New(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReady(); err != nil {
		return nil, err
	}

	counts := map[string]int64{}
	m.idx.Each(prefix, func(t token.Token) bool {
		remainder := t.Name[len(prefix):]
		key := remainder
		if groupSuffix != "" {
			if idx := strings.Index(remainder, groupSuffix); idx >= 0 {
				key = remainder[:idx+len(groupSuffix)]
			}
		}
		counts[key]++
		return true
	})
	journal.Log(ctx, "grouped", "prefix", prefix, "suffix", groupSuffix, "groups", len(counts))
	m.logger.V(1).Info("group", "journal", journal.Journal(ctx))
	return counts, nil
}

// Query returns, for each query, the first maxTokens tokens
// ascending by name whose name starts with namePrefix. Pure read.
func (m *Master) Query(ctx context.Context, queries []NameQuery) ([][]token.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkReady(); err != nil {
		return nil, err
	}

	out := make([][]token.Token, len(queries))
	for i, q := range queries {
		out[i] = m.idx.Prefix(q.NamePrefix, q.MaxTokens)
	}
	return out, nil
}
