package github

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breakpointhq/breakpoint/internal/config"
	"github.com/breakpointhq/breakpoint/internal/events"
)

func TestPollerStatsDefaultPassRateIsFullWithNoData(t *testing.T) {
	var s stats
	assert.Equal(t, float32(100.0), s.passRate())
}

func TestPollerStatsWithDataComputesPassRate(t *testing.T) {
	var s stats
	s.recordSuccess()
	s.recordSuccess()
	s.recordSuccess()
	s.recordFailure()
	assert.InDelta(t, float32(75.0), s.passRate(), 0.01)
}

func TestHandleInProgressTracksNewRunsAndSkipsKnown(t *testing.T) {
	store := events.NewStore(100, 0)
	p := New(config.GitHubAdapterConfig{Repos: []string{"o/r"}}, store)

	resp := &workflowRunsResponse{WorkflowRuns: []workflowRun{
		{ID: 42, Status: "in_progress", HTMLURL: "https://example.com/42", Actor: struct {
			Login string `json:"login"`
		}{Login: "dependabot[bot]"}},
	}}
	p.handleInProgress("o/r", resp)
	require.Contains(t, p.activeRuns, int64(42))

	recent := store.Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, events.TypePipelineStarted, recent[0].Event.EventType)
	assert.Equal(t, "true", recent[0].Event.Metadata["is_agent"])

	p.handleInProgress("o/r", resp)
	assert.Len(t, store.Recent(10), 1, "seen run should not re-emit")
}

func TestHandleCompletedEmitsSuccessAndFailureEvents(t *testing.T) {
	store := events.NewStore(100, 0)
	p := New(config.GitHubAdapterConfig{Repos: []string{"o/r"}}, store)
	p.activeRuns[1] = runState{status: "in_progress"}
	p.activeRuns[2] = runState{status: "in_progress"}

	success := "success"
	failure := "failure"
	p.handleCompleted("o/r", &workflowRunsResponse{WorkflowRuns: []workflowRun{
		{ID: 1, Status: "completed", Conclusion: &success, HTMLURL: "https://example.com/1"},
		{ID: 2, Status: "completed", Conclusion: &failure, HTMLURL: "https://example.com/2"},
	}})

	assert.NotContains(t, p.activeRuns, int64(1))
	assert.NotContains(t, p.activeRuns, int64(2))
	assert.InDelta(t, float32(50.0), p.stats.passRate(), 0.01)

	recent := store.Recent(10)
	require.Len(t, recent, 2)
	var sawFailure bool
	for _, e := range recent {
		if e.Event.EventType == events.TypePipelineFailed {
			sawFailure = true
			assert.True(t, e.Event.ActionRequired)
		}
	}
	assert.True(t, sawFailure)
}

func TestEmitAggregateWritesCIAggregateEvent(t *testing.T) {
	store := events.NewStore(100, 0)
	p := New(config.GitHubAdapterConfig{Repos: []string{"o/r"}}, store)
	p.activeRuns[1] = runState{status: "in_progress"}
	p.emitAggregate()

	recent := store.Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, "github:ci-aggregate", *recent[0].Event.GroupKey)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := events.NewStore(100, 0)
	p := New(config.GitHubAdapterConfig{Repos: nil, PollInterval: time.Millisecond}, store)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
