package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"

	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// commandPayload is the JSON shape this binary expects in a job's Payload:
// an argv to run, with optional extra environment.
type commandPayload struct {
	Command []string `json:"command"`
	Env     []string `json:"env,omitempty"`
}

// commandExecutor is the exec glue: it runs a job's payload as a
// subprocess and reports the combined output as the completion message.
// Anything beyond that (log shipping, alerting) belongs to a deployment's
// own executor, wired in place of this one.
type commandExecutor struct {
	Logger logr.Logger
}

func (e *commandExecutor) Execute(ctx context.Context, job token.Token, jd workflow.JobData) (string, error) {
	if len(jd.Payload) == 0 {
		// A job with no payload is a pure graph node: it exists to fan
		// events in and out.
		return "no-op", nil
	}

	var p commandPayload
	if err := json.Unmarshal(jd.Payload, &p); err != nil {
		return "", fmt.Errorf("undecodable job payload: %w", err)
	}
	if len(p.Command) == 0 {
		return "", fmt.Errorf("job payload has no command")
	}

	e.Logger.Info("executing", "job", job.Name, "command", strings.Join(p.Command, " "))
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	if len(p.Env) > 0 {
		cmd.Env = append(cmd.Environ(), p.Env...)
	}
	out, err := cmd.CombinedOutput()
	msg := strings.TrimSpace(string(out))
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, msg)
	}
	return msg, nil
}
