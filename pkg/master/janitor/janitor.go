// Package janitor implements the standalone archival loop from spec
// §4.4.5: "a worker (or a privileged janitor)" may archive a terminal
// workflow instance. Workers never archive; this loop is what archives
// terminal instances, independently of which worker finished an
// instance's last job.
package janitor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// MasterClient is the subset of pkg/master/client.Client the janitor uses.
type MasterClient interface {
	Group(ctx context.Context, prefix, groupSuffix string) (map[string]int64, error)
	Query(ctx context.Context, queries []master.NameQuery) ([][]token.Token, error)
	Modify(ctx context.Context, updates, deletes []token.Token) ([]token.Token, error)
	Archive(ctx context.Context, tokens []token.Token) error
}

// Config configures a Janitor.
type Config struct {
	Client       MasterClient
	Logger       logr.Logger
	PollInterval time.Duration
	// Instances supplies the (workflow, instance) pairs to inspect each
	// sweep. Defaults to discovering every live instance via group calls
	// over the /workflow/ hierarchy: one for the workflows, then one per
	// workflow.
	Instances func(ctx context.Context) ([]Instance, error)

	nowFunc func() time.Time
}

// Instance identifies one workflow instance to consider for archival.
type Instance struct {
	Workflow string
	Name     string
}

// LastRunStatus is the payload of the per-workflow __LAST_RUN__ token the
// janitor writes when it archives an instance. The Scheduler's
// DELAY_UNTIL_SUCCESS overrun policy reads it.
type LastRunStatus struct {
	Instance   string `json:"instance"`
	Success    bool   `json:"success"`
	ArchivedAt int64  `json:"archivedAt"`
}

// Janitor periodically scans candidate instances and archives any that
// have gone terminal.
type Janitor struct {
	cfg Config
}

func New(cfg Config) *Janitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	if cfg.nowFunc == nil {
		cfg.nowFunc = time.Now
	}
	j := &Janitor{cfg: cfg}
	if j.cfg.Instances == nil {
		j.cfg.Instances = j.discoverInstances
	}
	return j
}

// Run sweeps candidate instances until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.sweep(ctx); err != nil {
				j.cfg.Logger.Error(err, "janitor sweep failed")
			}
		}
	}
}

// discoverInstances enumerates every live (workflow, instance) pair with
// group calls: first grouping /workflow/ by its next path segment to find
// workflows, then each workflow's subtree to find instances.
func (j *Janitor) discoverInstances(ctx context.Context) ([]Instance, error) {
	workflows, err := j.cfg.Client.Group(ctx, "/workflow/", "/")
	if err != nil {
		return nil, err
	}
	var out []Instance
	for wfGroup := range workflows {
		wf := strings.TrimSuffix(wfGroup, "/")
		instances, err := j.cfg.Client.Group(ctx, "/workflow/"+wf+"/", "/")
		if err != nil {
			return nil, err
		}
		for instGroup := range instances {
			out = append(out, Instance{Workflow: wf, Name: strings.TrimSuffix(instGroup, "/")})
		}
	}
	return out, nil
}

func (j *Janitor) sweep(ctx context.Context) error {
	instances, err := j.cfg.Instances(ctx)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if err := j.inspect(ctx, inst); err != nil {
			j.cfg.Logger.Error(err, "inspecting instance", "workflow", inst.Workflow, "instance", inst.Name)
		}
	}
	return nil
}

// inspect reads every token under the instance root, decides terminality,
// and if terminal archives the whole instance in one batch and records the
// outcome on the workflow's __LAST_RUN__ token.
func (j *Janitor) inspect(ctx context.Context, inst Instance) error {
	root := workflow.InstanceRoot(inst.Workflow, inst.Name)
	results, err := j.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: root, MaxTokens: 0}})
	if err != nil {
		return err
	}
	tokens := results[0]
	if len(tokens) == 0 {
		return nil
	}

	terminal, success := classify(tokens)
	if !terminal {
		return nil
	}

	if err := j.cfg.Client.Archive(ctx, tokens); err != nil {
		if token.IsCode(err, token.CodeVersionConflict) {
			// Another janitor won the race; it also records the
			// outcome.
			return nil
		}
		return err
	}
	j.cfg.Logger.Info("archived instance", "workflow", inst.Workflow, "instance", inst.Name, "tokens", len(tokens), "success", success)

	return j.recordLastRun(ctx, inst, success)
}

// classify decides whether an instance is terminal and, if so, whether it
// succeeded. An instance is terminal when no job is runnable or running
// and no armable work remains: either every pending event bag is empty
// (the graph drained cleanly) or some job's latest execution failed,
// permanently stranding its downstream.
func classify(tokens []token.Token) (terminal, success bool) {
	var pendingEvents int
	var anyHistory bool
	failed := false

	for _, t := range tokens {
		_, _, state, jobName, ok := workflow.ParseJobName(t.Name)
		if !ok {
			continue
		}
		if strings.Contains(jobName, "/") {
			// An event token parked under .../job/runnable/<job>/<input>/<id>.
			pendingEvents++
			continue
		}
		if state == "runnable" {
			return false, false
		}
		jd, err := workflow.DecodeJobData(t.Data)
		if err != nil {
			continue
		}
		if len(jd.History) > 0 {
			anyHistory = true
			if !jd.History[len(jd.History)-1].Success {
				failed = true
			}
		}
	}

	if !anyHistory {
		return false, false
	}
	if pendingEvents > 0 && !failed {
		return false, false
	}
	return true, !failed
}

// recordLastRun upserts the workflow's __LAST_RUN__ token with this
// instance's outcome. The write is a separate batch from the archive
// itself; losing the race to another writer is harmless.
func (j *Janitor) recordLastRun(ctx context.Context, inst Instance, success bool) error {
	data, err := json.Marshal(LastRunStatus{
		Instance:   inst.Name,
		Success:    success,
		ArchivedAt: j.cfg.nowFunc().Unix(),
	})
	if err != nil {
		return err
	}

	name := workflow.LastRunStatusName(inst.Workflow)
	update := token.Token{
		Name:           name,
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
		Data:           data,
	}

	existing, err := j.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: name, MaxTokens: 1}})
	if err != nil {
		return err
	}
	if len(existing[0]) > 0 && existing[0][0].Name == name {
		update.Version = existing[0][0].Version
	}

	if _, err := j.cfg.Client.Modify(ctx, []token.Token{update}, nil); err != nil && !token.IsCode(err, token.CodeVersionConflict) {
		return err
	}
	return nil
}
