// Package workflow implements the hierarchical naming scheme: every
// workflow concept (instance root, job, event, control
// token) is a pure function of a name string under the Master's namespace.
// There is deliberately no workflow-specific state held anywhere but the
// Master; this package only builds and parses names.
package workflow

import (
	"fmt"
	"strings"
)

const (
	rootPrefix     = "/workflow/"
	archivePrefix  = "/__ARCHIVE__/workflow/"
	schedulePrefix = "/schedule/workflow/"

	jobSegment    = "job"
	waitingState  = "waiting"
	runnableState = "runnable"

	drainSignal = "__DRAIN__"
	abortSignal = "__ABORT__"
	lastRunSeg  = "__LAST_RUN__"
	exitSignal  = "/__EXIT__"
)

// ParkedOwner is the owner string carried by tokens that must never be
// returned by query_and_own: waiting jobs, event tokens, and control
// tokens. Combined with token.NoExpiration it makes a token permanently
// unclaimable, which is what lets workers claim
// over the whole /workflow/ prefix and only ever receive runnable jobs.
const ParkedOwner = "__PARKED__"

// InstanceRoot returns the current-namespace root for one workflow
// instance: /workflow/<W>/<INSTANCE>/.
func InstanceRoot(workflow, instance string) string {
	return fmt.Sprintf("%s%s/%s/", rootPrefix, workflow, instance)
}

// ArchiveRoot returns the archive-namespace root for one workflow instance.
func ArchiveRoot(workflow, instance string) string {
	return fmt.Sprintf("%s%s/%s/", archivePrefix, workflow, instance)
}

// JobName returns the name of a job token in the given state
// ("waiting" or "runnable").
func JobName(workflow, instance, state, job string) string {
	return InstanceRoot(workflow, instance) + jobSegment + "/" + state + "/" + job
}

// WaitingJobName returns a job's name under /job/waiting/.
func WaitingJobName(workflow, instance, job string) string {
	return JobName(workflow, instance, waitingState, job)
}

// RunnableJobName returns a job's name under /job/runnable/.
func RunnableJobName(workflow, instance, job string) string {
	return JobName(workflow, instance, runnableState, job)
}

// EventName returns the name of one event token posted to job's input
// named input, identified by eventID (an opaque, unique suffix — callers
// typically supply a ulid).
func EventName(workflow, instance, job, input, eventID string) string {
	return RunnableJobName(workflow, instance, job) + "/" + input + "/" + eventID
}

// EventPrefix returns the prefix under which every event token for one
// input of one job lives, for use with Query/Each to test "does this input
// carry at least one event."
func EventPrefix(workflow, instance, job, input string) string {
	return RunnableJobName(workflow, instance, job) + "/" + input + "/"
}

// JobEventPrefix returns the prefix under which every event token for
// every input of one job lives.
func JobEventPrefix(workflow, instance, job string) string {
	return RunnableJobName(workflow, instance, job) + "/"
}

// DrainSignalName and AbortSignalName are the instance-lifecycle control
// tokens. They are ordinary (parked) tokens; the Master
// has no special knowledge of them.
func DrainSignalName(workflow, instance string) string {
	return InstanceRoot(workflow, instance) + drainSignal
}

func AbortSignalName(workflow, instance string) string {
	return InstanceRoot(workflow, instance) + abortSignal
}

// ScheduleName returns the name of a workflow's schedule token, claimed
// periodically by the Scheduler. Schedule tokens live on
// their own top-level branch, not under /workflow/, so a worker claiming
// over /workflow/ can never receive one.
func ScheduleName(workflow string) string {
	return schedulePrefix + workflow
}

// SchedulePrefix is the branch the Scheduler claims over.
func SchedulePrefix() string {
	return schedulePrefix
}

// LastRunStatusName returns the name of the token recording the outcome
// of a workflow's most recently archived instance. Written by the
// janitor at archive time; read by the Scheduler's DELAY_UNTIL_SUCCESS
// overrun policy.
func LastRunStatusName(workflow string) string {
	return schedulePrefix + workflow + "/" + lastRunSeg
}

// ExitSignalName is the distinguished global token administrators insert
// to signal older-generation workers to exit cleanly.
func ExitSignalName() string {
	return exitSignal
}

// JobOfName extracts the job name from a waiting or runnable job token
// name; ok is false if name isn't shaped like one.
func JobOfName(workflow, instance, state, name string) (job string, ok bool) {
	prefix := JobName(workflow, instance, state, "")
	if !strings.HasPrefix(name, prefix) {
		return "", false
	}
	rest := name[len(prefix):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx], true
	}
	return rest, true
}

// ToArchiveName rewrites a live token name to its archive-namespace
// counterpart: /workflow/... -> /__ARCHIVE__/workflow/....
func ToArchiveName(name string) string {
	return "/__ARCHIVE__" + name
}

// ParseJobName decomposes a runnable or waiting job token's name into its
// (workflow, instance, state, job) components. ok is false if name isn't
// shaped like /workflow/<W>/<INSTANCE>/job/<state>/<job>.
func ParseJobName(name string) (wf, instance, state, job string, ok bool) {
	if !strings.HasPrefix(name, rootPrefix) {
		return "", "", "", "", false
	}
	rest := name[len(rootPrefix):]
	parts := strings.SplitN(rest, "/", 5)
	if len(parts) != 5 || parts[2] != jobSegment {
		return "", "", "", "", false
	}
	if parts[3] != waitingState && parts[3] != runnableState {
		return "", "", "", "", false
	}
	return parts[0], parts[1], parts[3], parts[4], true
}
