// Package github implements the opt-in GitHub Actions polling adapter:
// agent-pattern detection, circuit-broken HTTP polling, and translation of
// workflow-run transitions into Events.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/config"
	"github.com/breakpointhq/breakpoint/internal/events"
	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/metrics"
)

type runState struct {
	status string
}

type stats struct {
	mu                   sync.Mutex
	success24h, failure24h uint32
}

func (s *stats) passRate() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.success24h + s.failure24h
	if total == 0 {
		return 100.0
	}
	return float32(s.success24h) / float32(total) * 100.0
}

func (s *stats) recordSuccess() { s.mu.Lock(); s.success24h++; s.mu.Unlock() }
func (s *stats) recordFailure() { s.mu.Lock(); s.failure24h++; s.mu.Unlock() }

// Poller periodically polls each configured repo's workflow runs and
// emits translated Events into the store directly.
type Poller struct {
	cfg      config.GitHubAdapterConfig
	detector *AgentDetector
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*workflowRunsResponse]
	store    *events.Store

	mu         sync.Mutex
	activeRuns map[int64]runState

	stats stats
}

// New constructs a Poller. A zero-value PollInterval is replaced by the
// 30-second default.
func New(cfg config.GitHubAdapterConfig, store *events.Store) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if len(cfg.AgentPatterns) == 0 {
		cfg.AgentPatterns = DefaultAgentPatterns
	}

	breaker := gobreaker.NewCircuitBreaker[*workflowRunsResponse](gobreaker.Settings{
		Name:        "github-poller",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("github").Set(stateVal)
		},
	})

	return &Poller{
		cfg:        cfg,
		detector:   NewAgentDetector(cfg.AgentPatterns),
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		store:      store,
		activeRuns: make(map[int64]runState),
	}
}

// Run polls every configured repo on an interval until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for _, repo := range p.cfg.Repos {
			p.pollRepo(ctx, repo)
		}
		p.emitAggregate()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type workflowRunsResponse struct {
	WorkflowRuns []workflowRun `json:"workflow_runs"`
}

type workflowRun struct {
	ID         int64   `json:"id"`
	Name       *string `json:"name"`
	Status     string  `json:"status"`
	Conclusion *string `json:"conclusion"`
	HTMLURL    string  `json:"html_url"`
	Actor      struct {
		Login string `json:"login"`
	} `json:"actor"`
}

func (p *Poller) fetch(ctx context.Context, url string) (*workflowRunsResponse, error) {
	return p.breaker.Execute(func() (*workflowRunsResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
		req.Header.Set("Accept", "application/vnd.github+json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("github api returned %d", resp.StatusCode)
		}
		var out workflowRunsResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func (p *Poller) pollRepo(ctx context.Context, repo string) {
	start := time.Now()
	defer func() { metrics.GitHubPollDuration.WithLabelValues(repo).Observe(time.Since(start).Seconds()) }()

	inProgress, err := p.fetch(ctx, fmt.Sprintf("https://api.github.com/repos/%s/actions/runs?per_page=20&status=in_progress", repo))
	if err != nil {
		logging.Warn(ctx, "github poll failed", zap.String("repo", repo), zap.Error(err))
		return
	}
	p.handleInProgress(repo, inProgress)

	completed, err := p.fetch(ctx, fmt.Sprintf("https://api.github.com/repos/%s/actions/runs?per_page=10&status=completed", repo))
	if err != nil {
		logging.Warn(ctx, "github poll failed", zap.String("repo", repo), zap.Error(err))
		return
	}
	p.handleCompleted(repo, completed)
}

func (p *Poller) handleInProgress(repo string, resp *workflowRunsResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, run := range resp.WorkflowRuns {
		if _, seen := p.activeRuns[run.ID]; seen {
			p.activeRuns[run.ID] = runState{status: run.Status}
			continue
		}

		name := "workflow"
		if run.Name != nil {
			name = *run.Name
		}
		isAgent := p.detector.Detect(run.Actor.Login)
		metadata := map[string]string{"repo": repo}
		if isAgent {
			metadata["is_agent"] = "true"
		}
		groupKey := fmt.Sprintf("github:%s:runs", repo)
		url := run.HTMLURL
		actor := run.Actor.Login

		p.store.Insert(events.Event{
			ID:        fmt.Sprintf("gh-run-%d", run.ID),
			EventType: events.TypePipelineStarted,
			Source:    "github-actions",
			Priority:  events.PriorityAmbient,
			Title:     fmt.Sprintf("%s started on %s", name, repo),
			Timestamp: events.TimestampNow(),
			URL:       &url,
			Actor:     &actor,
			Tags:      []string{"ci"},
			GroupKey:  &groupKey,
			Metadata:  metadata,
		})

		p.activeRuns[run.ID] = runState{status: run.Status}
	}
}

func (p *Poller) handleCompleted(repo string, resp *workflowRunsResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, run := range resp.WorkflowRuns {
		prev, tracked := p.activeRuns[run.ID]
		if !tracked || prev.status == "completed" {
			continue
		}
		delete(p.activeRuns, run.ID)

		conclusion := "unknown"
		if run.Conclusion != nil {
			conclusion = *run.Conclusion
		}

		var eventType events.EventType
		var priority events.Priority
		switch conclusion {
		case "success":
			p.stats.recordSuccess()
			eventType, priority = events.TypePipelineSucceeded, events.PriorityAmbient
		case "failure":
			p.stats.recordFailure()
			eventType, priority = events.TypePipelineFailed, events.PriorityUrgent
		default:
			p.stats.recordFailure()
			eventType, priority = events.TypePipelineFailed, events.PriorityAmbient
		}

		name := "workflow"
		if run.Name != nil {
			name = *run.Name
		}
		isAgent := p.detector.Detect(run.Actor.Login)
		metadata := map[string]string{"repo": repo}
		if isAgent {
			metadata["is_agent"] = "true"
		}
		url := run.HTMLURL
		actor := run.Actor.Login

		p.store.Insert(events.Event{
			ID:             fmt.Sprintf("gh-run-%d-done", run.ID),
			EventType:      eventType,
			Source:         "github-actions",
			Priority:       priority,
			Title:          fmt.Sprintf("%s %s on %s", name, conclusion, repo),
			Timestamp:      events.TimestampNow(),
			URL:            &url,
			Actor:          &actor,
			Tags:           []string{"ci"},
			ActionRequired: conclusion == "failure",
			Metadata:       metadata,
		})
	}
}

func (p *Poller) emitAggregate() {
	p.mu.Lock()
	active := 0
	for _, r := range p.activeRuns {
		if r.status != "completed" {
			active++
		}
	}
	p.mu.Unlock()

	groupKey := "github:ci-aggregate"
	p.store.Insert(events.Event{
		ID:        "gh-agg-" + uuid.NewString()[:8],
		EventType: events.TypeCustom,
		Source:    "github-actions",
		Priority:  events.PriorityAmbient,
		Title:     fmt.Sprintf("CI: %.0f%% pass rate, %d active runs", p.stats.passRate(), active),
		Timestamp: events.TimestampNow(),
		Tags:      []string{"aggregate"},
		GroupKey:  &groupKey,
		Metadata:  map[string]string{},
	})
}
