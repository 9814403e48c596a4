// Package journal accumulates a per-request breadcrumb trail in a
// context.Context, so a single Master RPC handler or worker loop iteration
// can log every branch it took in one V(1) line at return time instead of
// scattering individual Info calls through the call stack.
package journal

import (
	"context"
	"fmt"
)

type entry struct {
	msg string
	kv  []interface{}
}

type journal struct {
	entries []entry
}

type contextKey struct{}

var key = contextKey{}

// New returns a context carrying a fresh, empty journal.
func New(ctx context.Context) context.Context {
	return context.WithValue(ctx, key, &journal{})
}

// Log appends an entry to ctx's journal. It is a no-op if ctx was never
// passed through New.
func Log(ctx context.Context, msg string, keysAndValues ...interface{}) {
	j, ok := ctx.Value(key).(*journal)
	if !ok {
		return
	}
	j.entries = append(j.entries, entry{msg: msg, kv: keysAndValues})
}

// Journal renders ctx's accumulated entries as a single string, suitable for
// a single structured log field.
func Journal(ctx context.Context) string {
	j, ok := ctx.Value(key).(*journal)
	if !ok || len(j.entries) == 0 {
		return ""
	}
	out := ""
	for i, e := range j.entries {
		if i > 0 {
			out += " -> "
		}
		out += e.msg
		for k := 0; k+1 < len(e.kv); k += 2 {
			out += fmt.Sprintf(" %v=%v", e.kv[k], e.kv[k+1])
		}
	}
	return out
}
