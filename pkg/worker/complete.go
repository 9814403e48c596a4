package worker

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// batch accumulates the updates/deletes for one atomic modify call.
type batch struct {
	updates []token.Token
	deletes []token.Token
}

func (b *batch) update(t token.Token) { b.updates = append(b.updates, t) }
func (b *batch) delete(name string, version int64) {
	b.deletes = append(b.deletes, token.Token{Name: name, Version: version})
}

// complete builds one atomic modify that deletes
// consumed events, moves the job back to /job/waiting/ with updated
// history, posts new events to every successor, and arms any successor
// whose inputs are now all satisfied.
func (w *Worker) complete(ctx context.Context, job token.Token, jd workflow.JobData, message string, entry *workflow.HistoryEntry) {
	log := w.cfg.Logger.WithValues("job", job.Name)

	wf, instance, _, jobName, ok := workflow.ParseJobName(job.Name)
	if !ok {
		log.Info("job token name does not match the workflow naming scheme; cannot advance graph", "name", job.Name)
		return
	}

	b := &batch{}

	consumedEvents, err := w.consumeEvents(ctx, b, wf, instance, jobName, jd.Inputs)
	if err != nil {
		log.Error(err, "reading consumed events")
		return
	}
	if entry != nil {
		entry.ConsumedEvents = consumedEvents
		jd.History = append(jd.History, *entry)
	}

	b.update(token.Token{
		Name:           workflow.WaitingJobName(wf, instance, jobName),
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
		Priority:       job.Priority,
		Data:           jd.Encode(),
	})
	b.delete(job.Name, job.Version)

	newEvents := map[workflow.Successor]bool{}
	for _, succ := range jd.Successors {
		eventName := workflow.EventName(wf, instance, succ.Job, succ.Input, ulid.Make().String())
		b.update(token.Token{
			Name:           eventName,
			Owner:          workflow.ParkedOwner,
			ExpirationTime: token.NoExpiration,
			Data:           []byte(message),
		})
		newEvents[succ] = true
	}

	if err := w.armSuccessors(ctx, b, wf, instance, jd.Successors, newEvents); err != nil {
		log.Error(err, "checking successor readiness")
		return
	}

	journal.Log(ctx, "posting completion batch", "job", job.Name, "updates", len(b.updates), "deletes", len(b.deletes))
	if _, err := w.cfg.Client.Modify(ctx, b.updates, b.deletes); err != nil {
		if token.IsCode(err, token.CodeVersionConflict) {
			// The lease expired and another worker reclaimed this job;
			// discard our result.
			log.Info("version conflict completing job; another worker reclaimed it, discarding result")
			return
		}
		log.Error(err, "persisting completion batch")
	}
}

// consumeEvents picks exactly one event token per declared input — the
// oldest by name — queues its deletion in b, and returns the consumed
// names for history. One event per input is what makes an execution's
// inputs deterministic: a re-run is a re-post of exactly these events.
// Surplus events stay in their bags for the job's next execution.
func (w *Worker) consumeEvents(ctx context.Context, b *batch, wf, instance, job string, inputs []string) ([]string, error) {
	var names []string
	for _, input := range inputs {
		results, err := w.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: workflow.EventPrefix(wf, instance, job, input), MaxTokens: 1}})
		if err != nil {
			return nil, err
		}
		if len(results[0]) == 0 {
			continue
		}
		ev := results[0][0]
		names = append(names, ev.Name)
		b.delete(ev.Name, ev.Version)
	}
	return names, nil
}

// armSuccessors checks, for every distinct successor job named in
// successors, whether all of its declared inputs now carry at least one
// event — counting both events already persisted and events this same
// batch is about to insert (newEvents) — and if so queues the batch
// operations moving it from /job/waiting/ to /job/runnable/. Arming is
// evaluated as of the state after this batch lands.
func (w *Worker) armSuccessors(ctx context.Context, b *batch, wf, instance string, successors []workflow.Successor, newEvents map[workflow.Successor]bool) error {
	seen := map[string]bool{}
	for _, succ := range successors {
		if seen[succ.Job] {
			continue
		}
		seen[succ.Job] = true

		waitingName := workflow.WaitingJobName(wf, instance, succ.Job)
		results, err := w.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: waitingName, MaxTokens: 1}})
		if err != nil {
			return err
		}
		if len(results[0]) == 0 {
			continue // already armed, or doesn't exist yet (raced with the parser)
		}
		waiting := results[0][0]
		if waiting.Name != waitingName {
			continue // prefix matched a different, longer name
		}
		jd, err := workflow.DecodeJobData(waiting.Data)
		if err != nil {
			return err
		}

		ready, err := w.allInputsSatisfied(ctx, wf, instance, succ.Job, jd.Inputs, newEvents)
		if err != nil {
			return err
		}
		if !ready {
			continue
		}
		b.delete(waitingName, waiting.Version)
		b.update(token.Token{Name: workflow.RunnableJobName(wf, instance, succ.Job), Priority: waiting.Priority, Data: waiting.Data})
	}
	return nil
}

func (w *Worker) allInputsSatisfied(ctx context.Context, wf, instance, job string, inputs []string, newEvents map[workflow.Successor]bool) (bool, error) {
	if len(inputs) == 0 {
		return false, nil
	}
	for _, input := range inputs {
		if newEvents[workflow.Successor{Job: job, Input: input}] {
			continue
		}
		results, err := w.cfg.Client.Query(ctx, []master.NameQuery{{NamePrefix: workflow.EventPrefix(wf, instance, job, input), MaxTokens: 1}})
		if err != nil {
			return false, err
		}
		if len(results[0]) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// fail records the failure and releases
// ownership without posting events.
func (w *Worker) fail(ctx context.Context, job token.Token, jd workflow.JobData, entry workflow.HistoryEntry) {
	log := w.cfg.Logger.WithValues("job", job.Name)
	jd.History = append(jd.History, entry)

	wf, instance, _, jobName, ok := workflow.ParseJobName(job.Name)
	if !ok {
		log.Info("job token name does not match the workflow naming scheme; cannot release", "name", job.Name)
		return
	}

	updates := []token.Token{{
		Name:           workflow.WaitingJobName(wf, instance, jobName),
		Owner:          workflow.ParkedOwner,
		ExpirationTime: token.NoExpiration,
		Priority:       job.Priority,
		Data:           jd.Encode(),
	}}
	deletes := []token.Token{{Name: job.Name, Version: job.Version}}

	journal.Log(ctx, "posting failure batch", "job", job.Name)
	if _, err := w.cfg.Client.Modify(ctx, updates, deletes); err != nil {
		if token.IsCode(err, token.CodeVersionConflict) {
			log.Info("version conflict releasing failed job; another worker reclaimed it")
			return
		}
		log.Error(err, "persisting failure batch")
	}
}
