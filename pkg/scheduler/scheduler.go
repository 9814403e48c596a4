// Package scheduler implements the time-driven side of the workflow
// runtime: it claims due schedule tokens, consults the
// workflow's overrun policy against the count of currently-running
// instances, invokes the Parser to build a new instance's initial token
// set, and advances the schedule to its next occurrence.
//
// Schedule tokens are claimed with the same query_and_own primitive
// workers use for jobs. The trick that makes time-driven claiming work on
// a timeless Master: after processing, the scheduler re-parks each
// schedule token with its own identity as owner and NextRunTime as the
// lease expiration, so the ownership predicate makes the
// token claimable — by any scheduler — at exactly the moment its next
// occurrence is due.
package scheduler

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/oklog/ulid/v2"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/master/janitor"
	"github.com/pinball-run/pinball/pkg/parser"
	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// MasterClient is the subset of pkg/master/client.Client the scheduler
// uses.
type MasterClient interface {
	Group(ctx context.Context, prefix, groupSuffix string) (map[string]int64, error)
	Query(ctx context.Context, queries []master.NameQuery) ([][]token.Token, error)
	QueryAndOwn(ctx context.Context, owner string, expirationTime int64, query master.NameQuery) ([]token.Token, error)
	Modify(ctx context.Context, updates, deletes []token.Token) ([]token.Token, error)
}

// Config configures a Scheduler.
type Config struct {
	Client      MasterClient
	Parser      parser.Parser
	Definitions *Definitions
	Logger      logr.Logger

	// Identity names this scheduler as a token owner. Generated if empty.
	Identity string
	// PollInterval is the base sleep between claim sweeps, jittered.
	PollInterval time.Duration
	// ProcessLease is how long a claimed schedule token stays owned while
	// one occurrence is being processed.
	ProcessLease time.Duration
	// RetryDelay is how long a DELAY/DELAY_UNTIL_SUCCESS occurrence waits
	// before the schedule token becomes claimable again.
	RetryDelay time.Duration
	// MaxPerSweep caps how many due schedule tokens one sweep claims.
	MaxPerSweep int

	// IDFunc generates instance names. Defaults to ulid.Make().String(),
	// which sorts by creation time — convenient for prefix scans over
	// instances.
	IDFunc func() string

	nowFunc func() time.Time
}

func (c *Config) setDefaults() {
	if c.Identity == "" {
		c.Identity = "scheduler-" + ulid.Make().String()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.ProcessLease <= 0 {
		c.ProcessLease = time.Minute
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.MaxPerSweep <= 0 {
		c.MaxPerSweep = 10
	}
	if c.IDFunc == nil {
		c.IDFunc = func() string { return ulid.Make().String() }
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	if c.Logger.GetSink() == nil {
		c.Logger = logr.Discard()
	}
}

// Scheduler claims due schedule tokens and bootstraps workflow instances.
type Scheduler struct {
	cfg Config
}

func New(cfg Config) *Scheduler {
	cfg.setDefaults()
	return &Scheduler{cfg: cfg}
}

// Run sweeps for due schedules until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.sweep(ctx); err != nil {
			s.cfg.Logger.Error(err, "schedule sweep failed")
		}
		jitter := time.Duration(rand.Int64N(int64(s.cfg.PollInterval)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval/2 + jitter/2):
		}
	}
}

// sweep claims every due schedule token (their leases expire exactly at
// NextRunTime, so "claimable" means "due") and processes each one.
func (s *Scheduler) sweep(ctx context.Context) error {
	exp := s.cfg.nowFunc().Add(s.cfg.ProcessLease).Unix()
	due, err := s.cfg.Client.QueryAndOwn(ctx, s.cfg.Identity, exp,
		master.NameQuery{NamePrefix: workflow.SchedulePrefix(), MaxTokens: s.cfg.MaxPerSweep})
	if err != nil {
		return err
	}
	for _, tok := range due {
		if err := s.process(ctx, tok); err != nil {
			if token.IsCode(err, token.CodeVersionConflict) {
				// Another scheduler or actor already acted; proceed.
				s.cfg.Logger.V(1).Info("lost schedule token race", "schedule", tok.Name)
				continue
			}
			s.cfg.Logger.Error(err, "processing schedule", "schedule", tok.Name)
		}
	}
	return nil
}

// process handles one claimed schedule token: decide whether the overrun
// policy permits a new instance, start it if so, and re-park the token to
// its next due time.
func (s *Scheduler) process(ctx context.Context, tok token.Token) error {
	ctx = journal.New(ctx)
	defer func() {
		s.cfg.Logger.V(1).Info("schedule processed", "schedule", tok.Name, "journal", journal.Journal(ctx))
	}()

	sd, err := DecodeScheduleData(tok.Data)
	if err != nil {
		// Undecodable schedules are parked permanently rather than
		// retried forever; an operator fixes the payload and clears the
		// park by re-inserting.
		s.cfg.Logger.Error(err, "unusable schedule token; parking it", "schedule", tok.Name)
		return s.park(ctx, tok, workflow.ParkedOwner, token.NoExpiration)
	}

	now := s.cfg.nowFunc().Unix()
	if sd.NextRunTime > now {
		// Claimed before it was due (e.g. a freshly inserted, unowned
		// schedule token): just park it to its due time.
		journal.Log(ctx, "not yet due", "nextRunTime", sd.NextRunTime)
		return s.parkWithData(ctx, tok, sd)
	}

	running, err := s.runningInstances(ctx, sd.Workflow)
	if err != nil {
		return err
	}
	journal.Log(ctx, "consulted running instances", "workflow", sd.Workflow, "running", len(running), "policy", sd.policy())

	start := true
	if len(running) >= sd.maxRunning() {
		switch sd.policy() {
		case OverrunStartNew:
		case OverrunSkip:
			journal.Log(ctx, "skipping occurrence: instances still running")
			start = false
		case OverrunAbortRunning:
			s.abortAll(ctx, sd.Workflow, running)
		case OverrunDelay, OverrunDelayUntilSuccess:
			journal.Log(ctx, "delaying occurrence: instances still running")
			return s.park(ctx, tok, s.cfg.Identity, s.cfg.nowFunc().Add(s.cfg.RetryDelay).Unix())
		}
	} else if sd.policy() == OverrunDelayUntilSuccess {
		ok, err := s.lastRunSucceeded(ctx, sd.Workflow)
		if err != nil {
			return err
		}
		if !ok {
			journal.Log(ctx, "delaying occurrence: last run did not succeed")
			return s.park(ctx, tok, s.cfg.Identity, s.cfg.nowFunc().Add(s.cfg.RetryDelay).Unix())
		}
	}

	if start {
		if err := s.startInstance(ctx, sd); err != nil {
			return err
		}
	}

	sd.NextRunTime = sd.nextAfter(now)
	return s.parkWithData(ctx, tok, sd)
}

// startInstance renders the workflow definition and atomically inserts
// the instance's initial token set.
func (s *Scheduler) startInstance(ctx context.Context, sd ScheduleData) error {
	tmpl, ok := s.cfg.Definitions.Get(sd.Definition)
	if !ok {
		return token.NewError(token.CodeNotFound, "no workflow definition named %q", sd.Definition)
	}
	data, err := s.cfg.Definitions.MergedData(sd.Data)
	if err != nil {
		return err
	}

	instance := s.cfg.IDFunc()
	res, err := s.cfg.Parser.Parse(ctx, parser.Request{
		Workflow: sd.Workflow,
		Instance: instance,
		Template: tmpl,
		Data:     data,
	})
	if err != nil {
		return err
	}

	if _, err := s.cfg.Client.Modify(ctx, res.Tokens, nil); err != nil {
		return err
	}
	s.cfg.Logger.Info("started workflow instance", "workflow", sd.Workflow, "instance", instance, "tokens", len(res.Tokens))
	journal.Log(ctx, "started instance", "instance", instance, "tokens", len(res.Tokens))
	return nil
}

// runningInstances lists the live instance names of one workflow via a
// single group call over its prefix.
func (s *Scheduler) runningInstances(ctx context.Context, wf string) ([]string, error) {
	groups, err := s.cfg.Client.Group(ctx, "/workflow/"+wf+"/", "/")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(groups))
	for g := range groups {
		out = append(out, strings.TrimSuffix(g, "/"))
	}
	return out, nil
}

// abortAll posts an abort control token into every running instance.
// Conflicts mean an abort is already posted, which is fine.
func (s *Scheduler) abortAll(ctx context.Context, wf string, instances []string) {
	for _, inst := range instances {
		_, err := s.cfg.Client.Modify(ctx, []token.Token{{
			Name:           workflow.AbortSignalName(wf, inst),
			Owner:          workflow.ParkedOwner,
			ExpirationTime: token.NoExpiration,
			Data:           []byte(s.cfg.Identity),
		}}, nil)
		if err != nil && !token.IsCode(err, token.CodeVersionConflict) {
			s.cfg.Logger.Error(err, "posting abort signal", "workflow", wf, "instance", inst)
			continue
		}
		journal.Log(ctx, "posted abort", "workflow", wf, "instance", inst)
	}
}

// lastRunSucceeded reads the __LAST_RUN__ token the janitor maintains. A
// workflow that has never run (no status token) counts as succeeded.
func (s *Scheduler) lastRunSucceeded(ctx context.Context, wf string) (bool, error) {
	name := workflow.LastRunStatusName(wf)
	results, err := s.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: name, MaxTokens: 1}})
	if err != nil {
		return false, err
	}
	if len(results[0]) == 0 || results[0][0].Name != name {
		return true, nil
	}
	var lr janitor.LastRunStatus
	if err := json.Unmarshal(results[0][0].Data, &lr); err != nil {
		return false, err
	}
	return lr.Success, nil
}

// parkWithData re-parks a schedule token to its NextRunTime with updated
// payload, making it claimable again exactly when due.
func (s *Scheduler) parkWithData(ctx context.Context, tok token.Token, sd ScheduleData) error {
	tok.Data = sd.Encode()
	exp := sd.NextRunTime
	if exp <= s.cfg.nowFunc().Unix() {
		exp = s.cfg.nowFunc().Add(time.Second).Unix()
	}
	return s.park(ctx, tok, s.cfg.Identity, exp)
}

func (s *Scheduler) park(ctx context.Context, tok token.Token, owner string, exp int64) error {
	_, err := s.cfg.Client.Modify(ctx, []token.Token{{
		Name:           tok.Name,
		Version:        tok.Version,
		Owner:          owner,
		ExpirationTime: exp,
		Priority:       tok.Priority,
		Data:           tok.Data,
	}}, nil)
	return err
}
