package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Successor describes one outgoing edge from a job to a downstream job's
// named input. When a job completes successfully, the worker posts one
// event token per Successor onto Input of Job.
type Successor struct {
	Job   string `json:"job"`
	Input string `json:"input"`
}

// HistoryEntry records one execution attempt of a job, appended to its
// JobData on every completion or failure.
type HistoryEntry struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Owner      string    `json:"owner"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	// ConsumedEvents records the event names consumed to produce this
	// execution's inputs, so a re-run is a re-post of the same events.
	ConsumedEvents []string `json:"consumedEvents,omitempty"`
}

// JobData is the application-level payload carried in a job token's Data
// field. The Master treats Data as opaque; this is the worker/parser's
// private schema layered on top: a job's lifecycle state lives in its
// position in the name hierarchy, and this struct is everything else.
type JobData struct {
	// Inputs names every input this job waits on before it is armed.
	Inputs []string `json:"inputs"`
	// Successors lists every downstream (job, input) pair armed by this
	// job's successful completion.
	Successors []Successor `json:"successors,omitempty"`
	// Disabled marks a job to be completed as an immediate success
	// without execution, with downstream arming proceeding as usual.
	Disabled bool `json:"disabled,omitempty"`
	// History accumulates one entry per execution attempt.
	History []HistoryEntry `json:"history,omitempty"`
	// Payload is opaque, application-specific job configuration (command
	// line, environment, etc.) the external job-execution mechanics
	// consume; Pinball's core never interprets it.
	Payload []byte `json:"payload,omitempty"`
}

// DecodeJobData parses a job token's Data field. Empty data decodes to a
// zero-value JobData (no inputs, no successors) rather than an error,
// since a parser may legitimately emit a source job with nothing to wait
// on.
func DecodeJobData(data []byte) (JobData, error) {
	if len(data) == 0 {
		return JobData{}, nil
	}
	var jd JobData
	if err := json.Unmarshal(data, &jd); err != nil {
		return JobData{}, fmt.Errorf("workflow: decode job data: %w", err)
	}
	return jd, nil
}

// Encode serializes jd back into a token's Data field.
func (jd JobData) Encode() []byte {
	b, err := json.Marshal(jd)
	if err != nil {
		// JobData contains no types that can fail to marshal (no
		// channels, funcs, or cyclic structures); a marshal error here
		// would indicate a programming error, not a runtime condition.
		panic(fmt.Sprintf("workflow: job data must always marshal: %v", err))
	}
	return b
}
