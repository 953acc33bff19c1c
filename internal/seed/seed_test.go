package seed_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/promptledger/internal/adapter/memory"
	"github.com/alanyang/promptledger/internal/adapter/system"
	"github.com/alanyang/promptledger/internal/domain/page"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	"github.com/alanyang/promptledger/internal/seed"
	"github.com/alanyang/promptledger/internal/testutil"
)

const doc = `
prompts:
  - name: greeter
    description: Says hello
    versions:
      - content: "Hello {{name}}"
        parameters:
          temperature: 0.2
      - content: "Hi {{name}}"
    active: 2
  - name: summarizer
    versions:
      - content: "Summarize: {{text}}"
`

func newRegistry() *promptsvc.Service {
	return promptsvc.NewService(memory.NewPromptRepository(), memory.NewLocker(), &testutil.CaptureBus{},
		testutil.NewStepClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Millisecond), system.IDGenerator{}, page.PromptLimits)
}

func TestParse(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, f.Prompts, 2)
	assert.Equal(t, "greeter", f.Prompts[0].Name)
	require.NotNil(t, f.Prompts[0].Description)
	assert.Equal(t, 0.2, f.Prompts[0].Versions[0].Parameters["temperature"])
	assert.Equal(t, 2, f.Prompts[0].Active)
	assert.Nil(t, f.Prompts[1].Description)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "no versions", doc: "prompts:\n  - name: a\n", want: "no versions"},
		{name: "blank content", doc: "prompts:\n  - name: a\n    versions:\n      - content: \"  \"\n", want: "content"},
		{name: "missing name", doc: "prompts:\n  - versions:\n      - content: x\n", want: "name"},
		{name: "duplicate", doc: "prompts:\n  - name: a\n    versions: [{content: x}]\n  - name: a\n    versions: [{content: y}]\n", want: "twice"},
		{name: "active out of range", doc: "prompts:\n  - name: a\n    versions: [{content: x}]\n    active: 3\n", want: "active version 3"},
		{name: "unknown field", doc: "prompts:\n  - name: a\n    tags: [x]\n    versions: [{content: x}]\n", want: "tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Prompts)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	f, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	rep, err := seed.Apply(ctx, reg, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"greeter", "summarizer"}, rep.Created)
	assert.Empty(t, rep.Skipped)

	greeter, err := reg.ResolvePrompt(ctx, "greeter")
	require.NoError(t, err)
	assert.Equal(t, 2, greeter.ActiveVersion)
	assert.Equal(t, "Hi {{name}}", greeter.Active.Content)

	summarizer, err := reg.ResolvePrompt(ctx, "summarizer")
	require.NoError(t, err)
	assert.Equal(t, 1, summarizer.ActiveVersion)
}

func TestApply_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	f, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, err = seed.Apply(ctx, reg, f)
	require.NoError(t, err)
	rep, err := seed.Apply(ctx, reg, f)
	require.NoError(t, err)
	assert.Empty(t, rep.Created)
	assert.Equal(t, []string{"greeter", "summarizer"}, rep.Skipped)

	d, err := reg.ResolvePrompt(ctx, "greeter")
	require.NoError(t, err)
	got, err := reg.GetPrompt(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, got.Versions, 2, "no versions appended on re-run")
}
