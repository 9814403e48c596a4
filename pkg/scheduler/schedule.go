package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// OverrunPolicy governs whether the Scheduler may start a new workflow
// instance while previous ones are still running.
type OverrunPolicy string

const (
	// OverrunStartNew starts the new instance unconditionally.
	OverrunStartNew OverrunPolicy = "START_NEW"
	// OverrunSkip drops this occurrence entirely and advances the
	// schedule to the next one.
	OverrunSkip OverrunPolicy = "SKIP"
	// OverrunAbortRunning posts abort signals to every running instance,
	// then starts the new one.
	OverrunAbortRunning OverrunPolicy = "ABORT_RUNNING"
	// OverrunDelay holds this occurrence until the running instances
	// finish, without dropping it.
	OverrunDelay OverrunPolicy = "DELAY"
	// OverrunDelayUntilSuccess holds this occurrence until the running
	// instances finish AND the most recently archived instance succeeded.
	OverrunDelayUntilSuccess OverrunPolicy = "DELAY_UNTIL_SUCCESS"
)

func (p OverrunPolicy) valid() bool {
	switch p {
	case OverrunStartNew, OverrunSkip, OverrunAbortRunning, OverrunDelay, OverrunDelayUntilSuccess:
		return true
	}
	return false
}

// ScheduleData is the payload of a schedule token (one per workflow,
// named workflow.ScheduleName(w)). Like every application payload it is
// opaque to the Master.
type ScheduleData struct {
	Workflow string `json:"workflow"`
	// Definition names the workflow template in the Scheduler's
	// definition store this schedule instantiates.
	Definition string `json:"definition"`
	// RecurrenceSeconds is the interval between occurrences.
	RecurrenceSeconds int64 `json:"recurrenceSeconds"`
	// NextRunTime is the unix time of the next due occurrence. The
	// schedule token's lease is parked to exactly this time, so the
	// token becomes claimable the moment the occurrence is due.
	NextRunTime int64 `json:"nextRunTime"`
	// OverrunPolicy defaults to SKIP when empty.
	OverrunPolicy OverrunPolicy `json:"overrunPolicy,omitempty"`
	// MaxRunningInstances is the running-instance count at which the
	// overrun policy kicks in; 0 means 1.
	MaxRunningInstances int `json:"maxRunningInstances,omitempty"`
	// Data is per-schedule template substitution data, merged over the
	// definition store's shared defaults.
	Data map[string]any `json:"data,omitempty"`
}

func (sd ScheduleData) policy() OverrunPolicy {
	if sd.OverrunPolicy == "" {
		return OverrunSkip
	}
	return sd.OverrunPolicy
}

func (sd ScheduleData) maxRunning() int {
	if sd.MaxRunningInstances <= 0 {
		return 1
	}
	return sd.MaxRunningInstances
}

// nextAfter advances NextRunTime past now in whole recurrence steps, so a
// schedule that was down for several intervals fires once, not once per
// missed interval.
func (sd ScheduleData) nextAfter(now int64) int64 {
	next := sd.NextRunTime
	if next == 0 {
		next = now
	}
	for next <= now {
		next += sd.RecurrenceSeconds
	}
	return next
}

// DecodeScheduleData parses a schedule token's payload.
func DecodeScheduleData(data []byte) (ScheduleData, error) {
	var sd ScheduleData
	if err := json.Unmarshal(data, &sd); err != nil {
		return ScheduleData{}, fmt.Errorf("scheduler: decode schedule data: %w", err)
	}
	if sd.Workflow == "" {
		return ScheduleData{}, fmt.Errorf("scheduler: schedule data has no workflow name")
	}
	if sd.RecurrenceSeconds <= 0 {
		return ScheduleData{}, fmt.Errorf("scheduler: schedule for %s has non-positive recurrence", sd.Workflow)
	}
	if !sd.policy().valid() {
		return ScheduleData{}, fmt.Errorf("scheduler: schedule for %s has unknown overrun policy %q", sd.Workflow, sd.OverrunPolicy)
	}
	return sd, nil
}

// Encode serializes sd into a token's Data field.
func (sd ScheduleData) Encode() []byte {
	b, err := json.Marshal(sd)
	if err != nil {
		panic(fmt.Sprintf("scheduler: schedule data must always marshal: %v", err))
	}
	return b
}

// NewScheduleToken builds the insert for a workflow's schedule token.
// The token starts unowned, so whichever scheduler claims it first parks
// it to its NextRunTime.
func NewScheduleToken(sd ScheduleData) token.Token {
	return token.Token{
		Name: workflow.ScheduleName(sd.Workflow),
		Data: sd.Encode(),
	}
}
