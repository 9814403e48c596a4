package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinball-run/pinball/pkg/token"
	"github.com/pinball-run/pinball/pkg/workflow"
)

const etlTemplate = `
jobs:
  - name: extract
    priority: 5
    payload: '{"command": ["extract", "--env", "{{ .env }}"]}'
    successors:
      - job: load
        input: data
  - name: load
    inputs: [data]
  - name: report
    inputs: [trigger]
    external: [trigger]
`

func testParser() *TemplateParser {
	n := 0
	return &TemplateParser{IDFunc: func() string {
		n++
		return map[int]string{1: "ev1", 2: "ev2"}[n]
	}}
}

func parse(t *testing.T, tmpl string, data map[string]any) Result {
	t.Helper()
	res, err := testParser().Parse(context.Background(), Request{
		Workflow: "etl",
		Instance: "i1",
		Template: []byte(tmpl),
		Data:     data,
	})
	require.NoError(t, err)
	return res
}

func findToken(tokens []token.Token, name string) (token.Token, bool) {
	for _, tk := range tokens {
		if tk.Name == name {
			return tk, true
		}
	}
	return token.Token{}, false
}

func TestParseBuildsInitialTokenSet(t *testing.T) {
	res := parse(t, etlTemplate, map[string]any{"env": "prod"})

	extract, ok := findToken(res.Tokens, workflow.RunnableJobName("etl", "i1", "extract"))
	require.True(t, ok, "a job with no inputs starts runnable")
	assert.Equal(t, 5.0, extract.Priority)
	assert.Empty(t, extract.Owner, "runnable jobs must be claimable")
	jd, err := workflow.DecodeJobData(extract.Data)
	require.NoError(t, err)
	assert.Contains(t, string(jd.Payload), `"prod"`, "template data must be substituted")
	require.Len(t, jd.Successors, 1)
	assert.Equal(t, workflow.Successor{Job: "load", Input: "data"}, jd.Successors[0])

	load, ok := findToken(res.Tokens, workflow.WaitingJobName("etl", "i1", "load"))
	require.True(t, ok, "a job with unsatisfied inputs starts waiting")
	assert.Equal(t, workflow.ParkedOwner, load.Owner)
	assert.Equal(t, token.NoExpiration, load.ExpirationTime)

	report, ok := findToken(res.Tokens, workflow.RunnableJobName("etl", "i1", "report"))
	require.True(t, ok, "a job whose every input is external starts runnable")
	assert.Empty(t, report.Owner)

	ev, ok := findToken(res.Tokens, workflow.EventName("etl", "i1", "report", "trigger", "ev1"))
	require.True(t, ok, "external inputs get an event token at time zero")
	assert.Equal(t, workflow.ParkedOwner, ev.Owner)
	assert.Equal(t, []string{"report"}, res.ExternalJobs)
}

func TestParseRejectsDuplicateJobNames(t *testing.T) {
	_, err := testParser().Parse(context.Background(), Request{
		Workflow: "etl", Instance: "i1",
		Template: []byte("jobs:\n  - name: a\n  - name: a\n"),
	})
	assert.ErrorContains(t, err, "duplicate job name")
}

func TestParseRejectsUnknownSuccessor(t *testing.T) {
	_, err := testParser().Parse(context.Background(), Request{
		Workflow: "etl", Instance: "i1",
		Template: []byte("jobs:\n  - name: a\n    successors:\n      - job: ghost\n        input: x\n"),
	})
	assert.ErrorContains(t, err, "not defined in this workflow")
}

func TestParseRejectsEmptyWorkflow(t *testing.T) {
	_, err := testParser().Parse(context.Background(), Request{
		Workflow: "etl", Instance: "i1",
		Template: []byte("jobs: []\n"),
	})
	assert.ErrorContains(t, err, "defines no jobs")
}

func TestParseSprigFunctions(t *testing.T) {
	res := parse(t, "jobs:\n  - name: {{ \"extract\" | upper | lower }}\n", nil)
	_, ok := findToken(res.Tokens, workflow.RunnableJobName("etl", "i1", "extract"))
	assert.True(t, ok)
}
