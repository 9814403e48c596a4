// Package worker implements the claim loop: claim a runnable job via
// query_and_own, execute it externally, then atomically post completion
// events and advance workflow state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-logr/logr"
	"github.com/oklog/ulid/v2"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// Executor runs a job's external side effects (spawning a subprocess,
// shipping logs, sending alerts), provided by the caller. Execute blocks
// until the job finishes or ctx is cancelled.
type Executor interface {
	Execute(ctx context.Context, job token.Token, data workflow.JobData) (message string, err error)
}

// MasterClient is the subset of pkg/master/client.Client a worker needs.
type MasterClient interface {
	Query(ctx context.Context, queries []master.NameQuery) ([][]token.Token, error)
	QueryAndOwn(ctx context.Context, owner string, expirationTime int64, query master.NameQuery) ([]token.Token, error)
	Modify(ctx context.Context, updates, deletes []token.Token) ([]token.Token, error)
}

// Config configures a worker instance.
type Config struct {
	Client   MasterClient
	Executor Executor
	Logger   logr.Logger

	// Identity uniquely names this worker (host + nonce + generation),
	// used as token owner. Generated if empty.
	Identity string
	// Generation tags this worker's cohort for rolling-upgrade EXIT
	// signaling.
	Generation int64

	// ClaimPrefixes are the name prefixes claims are attempted under, in
	// order. Defaults to the whole live workflow namespace.
	ClaimPrefixes []string

	// LeaseDuration L: how long a claimed job's ownership lasts before
	// it must be extended. A best-practice L is 3-10x the expected job
	// heartbeat interval.
	LeaseDuration time.Duration
	// ExtendInterval controls how often the lease-extension goroutine
	// attempts a renewal; defaults to LeaseDuration/3. The abort-signal
	// watch polls at the same cadence.
	ExtendInterval time.Duration

	// PollInterval is the base sleep between unsuccessful claim
	// attempts; actual sleep is jittered around it to break up worker
	// herds.
	PollInterval time.Duration

	nowFunc func() time.Time
}

func (c *Config) setDefaults() {
	if c.Identity == "" {
		c.Identity = ulid.Make().String()
	}
	if len(c.ClaimPrefixes) == 0 {
		c.ClaimPrefixes = []string{"/workflow/"}
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 30 * time.Second
	}
	if c.ExtendInterval <= 0 {
		c.ExtendInterval = c.LeaseDuration / 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	if c.Logger.GetSink() == nil {
		c.Logger = logr.Discard()
	}
}

// Worker is a claim-loop runtime built on a Master client.
type Worker struct {
	cfg Config
}

func New(cfg Config) *Worker {
	cfg.setDefaults()
	return &Worker{cfg: cfg}
}

// ErrExitSignaled is returned by Run when a global EXIT token was observed.
var ErrExitSignaled = errors.New("worker: exit signal observed")

// Run executes the claim loop until ctx is cancelled or an EXIT signal for
// this worker's generation is observed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if signaled, err := w.checkExitSignal(ctx); err != nil {
			w.cfg.Logger.Error(err, "checking exit signal")
		} else if signaled {
			w.cfg.Logger.Info("exit signal observed, shutting down", "generation", w.cfg.Generation)
			return ErrExitSignaled
		}

		claimed, err := w.claim(ctx)
		if err != nil {
			w.cfg.Logger.Error(err, "claim failed")
			w.sleep(ctx)
			continue
		}
		if claimed == nil {
			w.sleep(ctx)
			continue
		}

		claimsTotal.Inc()
		w.runOne(ctx, *claimed)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	jitter := time.Duration(rand.Int64N(int64(w.cfg.PollInterval)))
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval/2 + jitter/2):
	}
}

// checkExitSignal polls the distinguished global EXIT token.
// Its data, if present, is interpreted as a decimal minimum generation
// number below which workers must exit; an empty/unparseable payload
// means "exit everyone."
func (w *Worker) checkExitSignal(ctx context.Context) (bool, error) {
	results, err := w.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: workflow.ExitSignalName(), MaxTokens: 1}})
	if err != nil {
		return false, err
	}
	if len(results[0]) == 0 {
		return false, nil
	}
	sig := results[0][0]
	var minGeneration int64
	if _, err := fmt.Sscanf(string(sig.Data), "%d", &minGeneration); err != nil {
		return true, nil
	}
	return w.cfg.Generation < minGeneration, nil
}

// claim runs query_and_own over each configured prefix in turn, limit 1. Waiting jobs, events, and control tokens are
// parked (permanently leased), so only runnable jobs ever come back.
func (w *Worker) claim(ctx context.Context) (*token.Token, error) {
	exp := w.cfg.nowFunc().Add(w.cfg.LeaseDuration).Unix()
	for _, prefix := range w.cfg.ClaimPrefixes {
		owned, err := w.cfg.Client.QueryAndOwn(ctx, w.cfg.Identity, exp,
			master.NameQuery{NamePrefix: prefix, MaxTokens: 1})
		if err != nil {
			return nil, err
		}
		if len(owned) > 0 {
			return &owned[0], nil
		}
	}
	return nil, nil
}

// claimedJob guards the token of a job in flight: the lease-extension
// goroutine bumps its version on every renewal while the main goroutine
// waits on the Executor.
type claimedJob struct {
	mu  sync.Mutex
	tok token.Token
}

func (c *claimedJob) get() token.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tok
}

func (c *claimedJob) set(t token.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok = t
}

// runOne executes one claimed job to completion, extending its lease in
// the background, then posts the atomic completion or failure batch.
func (w *Worker) runOne(ctx context.Context, job token.Token) {
	ctx = journal.New(ctx)
	log := w.cfg.Logger.WithValues("job", job.Name, "owner", job.Owner)
	defer func() {
		log.V(1).Info("job journal", "journal", journal.Journal(ctx))
	}()

	jd, err := workflow.DecodeJobData(job.Data)
	if err != nil {
		log.Error(err, "undecodable job data; leaving for operator intervention")
		return
	}

	wf, instance, _, _, nameOK := workflow.ParseJobName(job.Name)
	if nameOK {
		drained, aborted, err := w.instanceSignals(ctx, wf, instance)
		switch {
		case err != nil:
			log.Error(err, "reading instance signals; proceeding")
		case aborted:
			now := w.cfg.nowFunc()
			failuresTotal.Inc()
			w.fail(ctx, job, jd, workflow.HistoryEntry{
				StartedAt: now, FinishedAt: now, Owner: job.Owner,
				Message: "instance aborted",
			})
			return
		case drained:
			// Keep the claim's lease in place instead of releasing: the
			// job stays unclaimable until the lease runs out, so a
			// drained instance costs one claim per lease duration per
			// worker rather than a re-claim hot loop. The lease expiring
			// re-offers the job once the drain has had time to lift.
			log.Info("instance is draining; holding claim until the lease expires", "expirationTime", job.ExpirationTime)
			return
		}
	}

	if jd.Disabled {
		completionsTotal.Inc()
		w.complete(ctx, job, jd, "disabled: marked success without execution", nil)
		return
	}

	cj := &claimedJob{tok: job}
	execCtx, stopExec := context.WithCancel(ctx)
	defer stopExec()
	go w.extendLease(execCtx, log, cj)
	if nameOK {
		go w.watchAbort(execCtx, stopExec, wf, instance)
	}

	start := w.cfg.nowFunc()
	message, execErr := w.cfg.Executor.Execute(execCtx, job, jd)
	stopExec()
	job = cj.get()

	entry := workflow.HistoryEntry{
		StartedAt:  start,
		FinishedAt: w.cfg.nowFunc(),
		Owner:      job.Owner,
		Success:    execErr == nil,
		Message:    message,
	}

	if execErr != nil {
		entry.Message = execErr.Error()
		failuresTotal.Inc()
		w.fail(ctx, job, jd, entry)
		return
	}
	completionsTotal.Inc()
	w.complete(ctx, job, jd, message, &entry)
}

// instanceSignals reports whether the instance carries a drain or abort
// control token.
func (w *Worker) instanceSignals(ctx context.Context, wf, instance string) (drained, aborted bool, err error) {
	results, err := w.cfg.Client.Query(ctx, []master.NameQuery{
		{NamePrefix: workflow.DrainSignalName(wf, instance), MaxTokens: 1},
		{NamePrefix: workflow.AbortSignalName(wf, instance), MaxTokens: 1},
	})
	if err != nil {
		return false, false, err
	}
	return len(results[0]) > 0, len(results[1]) > 0, nil
}

// watchAbort polls the instance's abort token while a job runs and cancels
// the execution context the moment it appears, short-circuiting the job to
// failure without posting events.
func (w *Worker) watchAbort(ctx context.Context, cancel context.CancelFunc, wf, instance string) {
	ticker := time.NewTicker(w.cfg.ExtendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := w.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: workflow.AbortSignalName(wf, instance), MaxTokens: 1}})
			if err != nil {
				continue
			}
			if len(results[0]) > 0 {
				w.cfg.Logger.Info("abort signal observed; cancelling running job", "workflow", wf, "instance", instance)
				cancel()
				return
			}
		}
	}
}

// extendLease periodically re-modifies the job token with a later
// expiration so long-running jobs don't lose ownership. Uses
// avast/retry-go for the individual extension call, since a single
// transient RPC failure shouldn't give up the lease early.
func (w *Worker) extendLease(ctx context.Context, log logr.Logger, cj *claimedJob) {
	ticker := time.NewTicker(w.cfg.ExtendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newExpiration := w.cfg.nowFunc().Add(w.cfg.LeaseDuration).Unix()
			err := retry.Do(func() error {
				job := cj.get()
				updated, err := w.cfg.Client.Modify(ctx, []token.Token{{
					Name: job.Name, Version: job.Version, Owner: job.Owner,
					ExpirationTime: newExpiration, Priority: job.Priority, Data: job.Data,
				}}, nil)
				if err != nil {
					return err
				}
				cj.set(updated[0])
				return nil
			}, retry.Attempts(3), retry.Context(ctx))
			if err != nil {
				log.Info("lease extension failed; job may be reclaimed", "error", err)
				return
			}
			leaseExtensionsTotal.Inc()
		}
	}
}
