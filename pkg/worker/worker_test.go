package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// fakeClient is a tiny in-memory stand-in for pkg/master/client.Client,
// good enough to drive the worker's claim/complete/fail paths without a
// real Master or network.
type fakeClient struct {
	mu      sync.Mutex
	tokens  map[string]token.Token
	nextVer int64
}

func newFakeClient(seed ...token.Token) *fakeClient {
	fc := &fakeClient{tokens: map[string]token.Token{}, nextVer: 1}
	for _, t := range seed {
		if t.Version == 0 {
			t.Version = fc.nextVer
			fc.nextVer++
		}
		fc.tokens[t.Name] = t
	}
	return fc
}

func (f *fakeClient) Query(_ context.Context, queries []master.NameQuery) ([][]token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]token.Token, len(queries))
	for i, q := range queries {
		var names []string
		for n := range f.tokens {
			if len(n) >= len(q.NamePrefix) && n[:len(q.NamePrefix)] == q.NamePrefix {
				names = append(names, n)
			}
		}
		sort.Strings(names)
		if q.MaxTokens > 0 && len(names) > q.MaxTokens {
			names = names[:q.MaxTokens]
		}
		for _, n := range names {
			out[i] = append(out[i], f.tokens[n])
		}
	}
	return out, nil
}

func (f *fakeClient) QueryAndOwn(_ context.Context, owner string, expiration int64, q master.NameQuery) ([]token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var best *token.Token
	for n, t := range f.tokens {
		if len(n) < len(q.NamePrefix) || n[:len(q.NamePrefix)] != q.NamePrefix {
			continue
		}
		if !t.Claimable(now) {
			continue
		}
		cp := t
		if best == nil || cp.Name < best.Name {
			best = &cp
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Owner = owner
	best.ExpirationTime = expiration
	best.Version = f.nextVer
	f.nextVer++
	f.tokens[best.Name] = *best
	return []token.Token{*best}, nil
}

func (f *fakeClient) Modify(_ context.Context, updates, deletes []token.Token) ([]token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range deletes {
		existing, ok := f.tokens[d.Name]
		if !ok || existing.Version != d.Version {
			return nil, token.NewError(token.CodeVersionConflict, "conflict on %s", d.Name)
		}
	}
	for _, u := range updates {
		if u.Version != 0 {
			existing, ok := f.tokens[u.Name]
			if !ok || existing.Version != u.Version {
				return nil, token.NewError(token.CodeVersionConflict, "conflict on %s", u.Name)
			}
		} else if _, ok := f.tokens[u.Name]; ok {
			return nil, token.NewError(token.CodeVersionConflict, "already exists: %s", u.Name)
		}
	}
	out := make([]token.Token, len(updates))
	for i, u := range updates {
		u.Version = f.nextVer
		f.nextVer++
		f.tokens[u.Name] = u
		out[i] = u
	}
	for _, d := range deletes {
		delete(f.tokens, d.Name)
	}
	return out, nil
}

type scriptedExecutor struct {
	message string
	err     error
}

func (e scriptedExecutor) Execute(context.Context, token.Token, workflow.JobData) (string, error) {
	return e.message, e.err
}

func jobToken(name string, jd workflow.JobData) token.Token {
	return token.Token{Name: name, Data: jd.Encode()}
}

func TestCompleteMovesJobToWaitingAndArmsSuccessor(t *testing.T) {
	source := jobToken("/workflow/wf/i1/job/runnable/extract", workflow.JobData{
		Successors: []workflow.Successor{{Job: "load", Input: "data"}},
	})
	succWaiting := jobToken("/workflow/wf/i1/job/waiting/load", workflow.JobData{Inputs: []string{"data"}})

	fc := newFakeClient(source, succWaiting)
	w := New(Config{Client: fc, Executor: scriptedExecutor{message: "ok"}})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	require.NotNil(t, claimed)

	w.runOne(context.Background(), *claimed)

	_, stillRunnable := fc.tokens["/workflow/wf/i1/job/runnable/extract"]
	assert.False(t, stillRunnable)
	waitingExtract, ok := fc.tokens["/workflow/wf/i1/job/waiting/extract"]
	require.True(t, ok)
	assert.Equal(t, workflow.ParkedOwner, waitingExtract.Owner, "waiting tokens must be parked")
	assert.Equal(t, token.NoExpiration, waitingExtract.ExpirationTime)
	jd, err := workflow.DecodeJobData(waitingExtract.Data)
	require.NoError(t, err)
	require.Len(t, jd.History, 1)
	assert.True(t, jd.History[0].Success)

	_, stillWaiting := fc.tokens["/workflow/wf/i1/job/waiting/load"]
	assert.False(t, stillWaiting, "load should have been armed (moved to runnable)")
	runnableLoad, ok := fc.tokens["/workflow/wf/i1/job/runnable/load"]
	require.True(t, ok)
	_ = runnableLoad
}

func TestFailReleasesOwnershipWithoutPostingEvents(t *testing.T) {
	source := jobToken("/workflow/wf/i1/job/runnable/extract", workflow.JobData{
		Successors: []workflow.Successor{{Job: "load", Input: "data"}},
	})
	fc := newFakeClient(source)
	w := New(Config{Client: fc, Executor: scriptedExecutor{err: errors.New("boom")}})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	w.runOne(context.Background(), *claimed)

	waiting, ok := fc.tokens["/workflow/wf/i1/job/waiting/extract"]
	require.True(t, ok)
	jd, err := workflow.DecodeJobData(waiting.Data)
	require.NoError(t, err)
	require.Len(t, jd.History, 1)
	assert.False(t, jd.History[0].Success)
	assert.Equal(t, "boom", jd.History[0].Message)

	// No event token should have been posted to the successor's input.
	results, err := fc.Query(context.Background(), []master.NameQuery{{NamePrefix: workflow.EventPrefix("wf", "i1", "load", "data")}})
	require.NoError(t, err)
	assert.Empty(t, results[0])
}

func TestCompleteDiscardsOnVersionConflict(t *testing.T) {
	source := jobToken("/workflow/wf/i1/job/runnable/extract", workflow.JobData{})
	fc := newFakeClient(source)
	w := New(Config{Client: fc, Executor: scriptedExecutor{message: "ok"}})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)

	// Simulate another worker reclaiming the job before completion lands:
	// bump its version out from under us.
	fc.mu.Lock()
	t2 := fc.tokens[claimed.Name]
	t2.Version = claimed.Version + 100
	fc.tokens[claimed.Name] = t2
	fc.mu.Unlock()

	w.runOne(context.Background(), *claimed)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	_, stillThere := fc.tokens["/workflow/wf/i1/job/runnable/extract"]
	assert.True(t, stillThere, "reclaimed token must be untouched by the discarded completion")
}

func TestDisabledJobCompletesWithoutExecution(t *testing.T) {
	source := jobToken("/workflow/wf/i1/job/runnable/skip", workflow.JobData{Disabled: true})
	fc := newFakeClient(source)
	executed := false
	w := New(Config{Client: fc, Executor: scriptedExecutor{message: "should not run", err: nil}})
	w.cfg.Executor = executorFunc(func(context.Context, token.Token, workflow.JobData) (string, error) {
		executed = true
		return "", nil
	})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	w.runOne(context.Background(), *claimed)

	assert.False(t, executed)
	_, ok := fc.tokens["/workflow/wf/i1/job/waiting/skip"]
	assert.True(t, ok)
}

type executorFunc func(context.Context, token.Token, workflow.JobData) (string, error)

func (f executorFunc) Execute(ctx context.Context, job token.Token, jd workflow.JobData) (string, error) {
	return f(ctx, job, jd)
}

func TestCompleteConsumesExactlyOneEventPerInput(t *testing.T) {
	job := jobToken("/workflow/wf/i1/job/runnable/load", workflow.JobData{Inputs: []string{"data"}})
	ev1 := token.Token{
		Name:           workflow.EventName("wf", "i1", "load", "data", "ev1"),
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
	}
	ev2 := token.Token{
		Name:           workflow.EventName("wf", "i1", "load", "data", "ev2"),
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
	}
	fc := newFakeClient(job, ev1, ev2)
	w := New(Config{Client: fc, Executor: scriptedExecutor{message: "ok"}})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	w.runOne(context.Background(), *claimed)

	_, firstGone := fc.tokens[ev1.Name]
	assert.False(t, firstGone, "the oldest event must be consumed")
	_, secondKept := fc.tokens[ev2.Name]
	assert.True(t, secondKept, "surplus events stay for the next execution")

	waiting := fc.tokens["/workflow/wf/i1/job/waiting/load"]
	jd, err := workflow.DecodeJobData(waiting.Data)
	require.NoError(t, err)
	require.Len(t, jd.History, 1)
	assert.Equal(t, []string{ev1.Name}, jd.History[0].ConsumedEvents)
}

func TestClaimSkipsParkedTokens(t *testing.T) {
	parkedEvent := token.Token{
		Name:           "/workflow/wf/i1/job/runnable/load/data/ev1",
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
	}
	runnable := jobToken("/workflow/wf/i1/job/runnable/load", workflow.JobData{})
	fc := newFakeClient(parkedEvent, runnable)
	w := New(Config{Client: fc, Executor: scriptedExecutor{}})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "/workflow/wf/i1/job/runnable/load", claimed.Name)
}

func TestDrainSignalHoldsClaimUntilLeaseExpiry(t *testing.T) {
	source := jobToken("/workflow/wf/i1/job/runnable/extract", workflow.JobData{})
	drain := token.Token{
		Name:           workflow.DrainSignalName("wf", "i1"),
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
	}
	fc := newFakeClient(source, drain)
	executed := false
	w := New(Config{Client: fc, Identity: "w1", Executor: executorFunc(func(context.Context, token.Token, workflow.JobData) (string, error) {
		executed = true
		return "", nil
	})})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	w.runOne(context.Background(), *claimed)

	assert.False(t, executed, "drained instance must not execute jobs")
	held, ok := fc.tokens["/workflow/wf/i1/job/runnable/extract"]
	require.True(t, ok, "job must stay runnable")
	assert.Equal(t, "w1", held.Owner, "the claim's lease stays in place")

	// Until the lease runs out, the job is not offered again, so a
	// drained instance can't turn into a re-claim hot loop.
	again, err := w.claim(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestAbortSignalFailsWithoutEvents(t *testing.T) {
	source := jobToken("/workflow/wf/i1/job/runnable/extract", workflow.JobData{
		Successors: []workflow.Successor{{Job: "load", Input: "data"}},
	})
	abort := token.Token{
		Name:           workflow.AbortSignalName("wf", "i1"),
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
	}
	fc := newFakeClient(source, abort)
	executed := false
	w := New(Config{Client: fc, Executor: executorFunc(func(context.Context, token.Token, workflow.JobData) (string, error) {
		executed = true
		return "", nil
	})})

	claimed, err := w.claim(context.Background())
	require.NoError(t, err)
	w.runOne(context.Background(), *claimed)

	assert.False(t, executed, "aborted instance must not execute jobs")
	waiting, ok := fc.tokens["/workflow/wf/i1/job/waiting/extract"]
	require.True(t, ok)
	jd, err := workflow.DecodeJobData(waiting.Data)
	require.NoError(t, err)
	require.Len(t, jd.History, 1)
	assert.False(t, jd.History[0].Success)

	results, err := fc.Query(context.Background(), []master.NameQuery{{NamePrefix: workflow.EventPrefix("wf", "i1", "load", "data")}})
	require.NoError(t, err)
	assert.Empty(t, results[0], "an aborted job must not post events")
}
