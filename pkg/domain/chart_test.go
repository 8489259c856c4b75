package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartMarkers_RoundTrip(t *testing.T) {
	content := "Rendered a bar chart.\n" + FormatChartMarkers(ChartArtifact{
		Path:  "charts/emails.svg",
		Notes: "Google sent the most\nemails last week.",
	})
	messages := []Message{
		{Author: AuthorUser, Content: "chart my emails"},
		{Author: string(WorkerChart), Content: content},
		{Author: AuthorExecutor, Content: `{"replan":false}`},
	}

	chart, ok := ExtractChart(messages)
	require.True(t, ok)
	assert.Equal(t, "charts/emails.svg", chart.Path)
	assert.Equal(t, "Google sent the most emails last week.", chart.Notes)
}

func TestExtractChart_NewestWins(t *testing.T) {
	messages := []Message{
		{Author: string(WorkerChart), Content: FormatChartMarkers(ChartArtifact{Path: "old.svg"})},
		{Author: string(WorkerChart), Content: FormatChartMarkers(ChartArtifact{Path: "new.svg"})},
	}
	chart, ok := ExtractChart(messages)
	require.True(t, ok)
	assert.Equal(t, "new.svg", chart.Path)

	_, ok = ExtractChart([]Message{{Author: AuthorUser, Content: "no chart here"}})
	assert.False(t, ok)
}

func TestChartOf_PrefersTypedArtifact(t *testing.T) {
	s := NewState("r", "q", nil)
	s.Messages = append(s.Messages, Message{Content: FormatChartMarkers(ChartArtifact{Path: "from-text.svg"})})
	s.Chart = &ChartArtifact{Path: "typed.svg"}

	chart, ok := ChartOf(s)
	require.True(t, ok)
	assert.Equal(t, "typed.svg", chart.Path)
}

func TestPickFinalAnswer(t *testing.T) {
	s := NewState("r", "question", nil)
	assert.Equal(t, "question", PickFinalAnswer(s), "falls back to the last message")

	s.Messages = append(s.Messages,
		Message{Author: string(WorkerSynthesizer), Content: "draft"},
		Message{Author: AuthorExecutor, Content: "{}"},
	)
	assert.Equal(t, "draft", PickFinalAnswer(s), "prefers terminal worker output")

	s.Finished = true
	s.FinalAnswer = "final"
	assert.Equal(t, "final", PickFinalAnswer(s))

	assert.Equal(t, NoResponse, PickFinalAnswer(nil))
}

func TestParseWorkerIDs(t *testing.T) {
	ids, err := ParseWorkerIDs([]string{" synthesizer", "text2sql_agent", "synthesizer", ""})
	require.NoError(t, err)
	assert.Equal(t, []WorkerID{WorkerSynthesizer, WorkerQuery}, ids)

	_, err = ParseWorkerIDs([]string{"planner"})
	assert.ErrorIs(t, err, ErrUnknownWorker)

	assert.True(t, WorkerCaption.Terminal())
	assert.False(t, WorkerChart.Terminal())

	w, ok := WorkerTarget(WorkerChart).Worker()
	assert.True(t, ok)
	assert.Equal(t, WorkerChart, w)
	_, ok = TargetPlanner.Worker()
	assert.False(t, ok)
}

func TestMergeHooks_CallsInOrder(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnReplan: func(context.Context, *ReplanEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{
		OnReplan:    func(context.Context, *ReplanEvent) { calls = append(calls, "b") },
		OnNodeEnter: func(context.Context, *NodeEvent) { calls = append(calls, "enter") },
	}

	merged := MergeHooks(a, LifecycleHooks{}, b)
	merged.OnReplan(context.Background(), &ReplanEvent{})
	merged.OnNodeEnter(context.Background(), &NodeEvent{})

	assert.Equal(t, []string{"a", "b", "enter"}, calls)
	assert.Nil(t, merged.OnDecision)
}
