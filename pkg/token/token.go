// Package token defines the unit of state shared by every component in this
// repository: the Master, its RPC surface, the persistence store, and the
// workflow runtime built on top of it.
package token

import (
	"errors"
	"strings"
	"time"
)

// Token is the atomic unit of state held by the Master. Name is immutable
// and globally unique at any instant; Version is assigned by the Master on
// every insert or update and is unique across the Master's entire lifetime,
// including across restarts.
type Token struct {
	Version        int64
	Name           string
	Owner          string
	ExpirationTime int64 // unix seconds, 0 means unset
	Priority       float64
	Data           []byte
}

// NoExpiration marks a lease as permanently unclaimable, used to park
// tokens (waiting jobs, events, control signals) that must never be claimed.
const NoExpiration = int64(1<<63 - 1)

// Clone returns a deep copy of t so callers holding a Master-internal token
// can't mutate state out from under the index.
func (t Token) Clone() Token {
	c := t
	if t.Data != nil {
		c.Data = make([]byte, len(t.Data))
		copy(c.Data, t.Data)
	}
	return c
}

// Owned reports whether t is currently owned: owner is non-empty and the
// lease has not expired relative to now.
func (t Token) Owned(now time.Time) bool {
	if t.Owner == "" {
		return false
	}
	if t.ExpirationTime == 0 {
		return false
	}
	return t.ExpirationTime > now.Unix()
}

// Claimable is the complement of Owned.
func (t Token) Claimable(now time.Time) bool {
	return !t.Owned(now)
}

var (
	// ErrEmptyName is returned for any token with an empty name.
	ErrEmptyName = errors.New("token: name must not be empty")
	// ErrNamePrefix is returned when a name doesn't start with a slash.
	ErrNamePrefix = errors.New("token: name must start with '/'")
)

// Validate checks the structural invariants of a token that don't depend on
// Master state (existence, version matching, etc. are checked by the
// Master itself). It does not validate the workflow-specific naming scheme
// in pkg/workflow; that is layered on top.
func Validate(t Token) error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if !strings.HasPrefix(t.Name, "/") {
		return ErrNamePrefix
	}
	return nil
}
