// Package parser defines the contract between the workflow runtime and
// the workflow-definition parser. A Parser turns a user-authored workflow
// template plus per-instance substitution data into the exact batch of
// tokens an instance needs at time zero: one job token per declared job
// (runnable immediately if it has no inputs or every input is external,
// waiting otherwise), plus one event token per externally-triggered input.
//
// The reference implementation renders a YAML template with Go's
// text/template and the sprig function map.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

// Parser converts a workflow definition into the initial token batch for
// one instance. Implementations must be pure with respect to the Master:
// they never call it themselves, only return the tokens a caller (the
// Scheduler, or a one-off CLI) should hand to Master.Modify in a single
// atomic insert.
type Parser interface {
	Parse(ctx context.Context, req Request) (Result, error)
}

// Request names the workflow instance being created and supplies the
// template source plus any per-instance substitution values (hardware
// facts, schedule parameters, operator-supplied overrides).
type Request struct {
	Workflow string
	Instance string
	Template []byte
	Data     map[string]any
}

// Result is the initial token set plus the names of the jobs whose inputs
// were satisfied externally (one entry per external input), which a caller
// may want to log.
type Result struct {
	Tokens       []token.Token
	ExternalJobs []string
}

// definition is the YAML shape a workflow template renders to.
type definition struct {
	Jobs []jobDefinition `yaml:"jobs"`
}

type jobDefinition struct {
	Name     string   `yaml:"name"`
	Inputs   []string `yaml:"inputs,omitempty"`
	Priority float64  `yaml:"priority,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
	// External lists input names that are satisfied immediately at
	// instance creation, not by an upstream job's completion — e.g. a
	// workflow triggered by an externally-supplied payload rather than
	// another job in the same graph.
	External []string `yaml:"external,omitempty"`
	// Successors lists the (job, input) pairs armed when this job
	// completes.
	Successors []successorDefinition `yaml:"successors,omitempty"`
	// Payload is opaque, application-specific job configuration passed
	// through verbatim into workflow.JobData.Payload.
	Payload string `yaml:"payload,omitempty"`
}

type successorDefinition struct {
	Job   string `yaml:"job"`
	Input string `yaml:"input"`
}

// TemplateParser is the reference Parser: render with text/template+sprig,
// unmarshal the result as YAML, translate each job into its initial token.
type TemplateParser struct {
	// IDFunc generates the unique suffix for externally-satisfied event
	// tokens. Defaults to ulid.Make().String(); overridable for tests.
	IDFunc func() string
}

func New() *TemplateParser {
	return &TemplateParser{IDFunc: func() string { return ulid.Make().String() }}
}

func (p *TemplateParser) idFunc() func() string {
	if p.IDFunc != nil {
		return p.IDFunc
	}
	return func() string { return ulid.Make().String() }
}

// Parse implements Parser.
func (p *TemplateParser) Parse(_ context.Context, req Request) (Result, error) {
	rendered, err := p.render(req.Template, req.Data)
	if err != nil {
		return Result{}, fmt.Errorf("parser: render template: %w", err)
	}

	var def definition
	if err := yaml.Unmarshal(rendered, &def); err != nil {
		return Result{}, fmt.Errorf("parser: parse rendered template: %w", err)
	}
	if len(def.Jobs) == 0 {
		return Result{}, fmt.Errorf("parser: workflow %s/%s defines no jobs", req.Workflow, req.Instance)
	}

	names := map[string]bool{}
	for _, j := range def.Jobs {
		if j.Name == "" {
			return Result{}, fmt.Errorf("parser: job with empty name in %s/%s", req.Workflow, req.Instance)
		}
		if names[j.Name] {
			return Result{}, fmt.Errorf("parser: duplicate job name %q in %s/%s", j.Name, req.Workflow, req.Instance)
		}
		names[j.Name] = true
	}

	idFn := p.idFunc()
	res := Result{}
	for _, j := range def.Jobs {
		jd := workflow.JobData{
			Inputs:   j.Inputs,
			Disabled: j.Disabled,
		}
		if j.Payload != "" {
			jd.Payload = []byte(j.Payload)
		}
		for _, s := range j.Successors {
			if !names[s.Job] {
				return Result{}, fmt.Errorf("parser: job %q has successor %q not defined in this workflow", j.Name, s.Job)
			}
			jd.Successors = append(jd.Successors, workflow.Successor{Job: s.Job, Input: s.Input})
		}

		externalSet := map[string]bool{}
		for _, input := range j.External {
			externalSet[input] = true
		}
		ready := true
		for _, input := range j.Inputs {
			if !externalSet[input] {
				ready = false
				break
			}
		}

		if len(j.Inputs) == 0 || ready {
			res.Tokens = append(res.Tokens, token.Token{
				Name:     workflow.RunnableJobName(req.Workflow, req.Instance, j.Name),
				Priority: j.Priority,
				Data:     jd.Encode(),
			})
		} else {
			// Waiting jobs are parked so a worker's query_and_own over
			// /workflow/ can never claim them; moving to runnable clears
			// the park.
			res.Tokens = append(res.Tokens, token.Token{
				Name:           workflow.WaitingJobName(req.Workflow, req.Instance, j.Name),
				Owner:          workflow.ParkedOwner,
				ExpirationTime: token.NoExpiration,
				Priority:       j.Priority,
				Data:           jd.Encode(),
			})
		}

		for _, input := range j.External {
			res.Tokens = append(res.Tokens, token.Token{
				Name:           workflow.EventName(req.Workflow, req.Instance, j.Name, input, idFn()),
				Owner:          workflow.ParkedOwner,
				ExpirationTime: token.NoExpiration,
			})
			res.ExternalJobs = append(res.ExternalJobs, j.Name)
		}
	}

	return res, nil
}

// render executes tmpl as a Go text/template with the sprig function map.
func (p *TemplateParser) render(tmpl []byte, data map[string]any) ([]byte, error) {
	t, err := template.New("workflow").Funcs(sprig.TxtFuncMap()).Parse(string(tmpl))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ Parser = (*TemplateParser)(nil)
