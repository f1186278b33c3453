// Package events implements the Event Store: a bounded FIFO of ingested
// alerts with claim metadata and a broadcast fan-out to subscribed rooms.
package events

import (
	"strconv"
	"time"
)

// EventType is the category of an ingested alert.
type EventType string

const (
	TypePipelineStarted   EventType = "pipeline.started"
	TypePipelineSucceeded EventType = "pipeline.succeeded"
	TypePipelineFailed    EventType = "pipeline.failed"
	TypePROpened          EventType = "pr.opened"
	TypePRReviewed        EventType = "pr.reviewed"
	TypePRMerged          EventType = "pr.merged"
	TypePRConflict        EventType = "pr.conflict"
	TypeIssueOpened       EventType = "issue.opened"
	TypeIssueAssigned     EventType = "issue.assigned"
	TypeIssueClosed       EventType = "issue.closed"
	TypeReviewRequested   EventType = "review.requested"
	TypeDeployPending     EventType = "deploy.pending"
	TypeDeployCompleted   EventType = "deploy.completed"
	TypeDeployFailed      EventType = "deploy.failed"
	TypeAgentStarted      EventType = "agent.started"
	TypeAgentCompleted    EventType = "agent.completed"
	TypeAgentBlocked      EventType = "agent.blocked"
	TypeAgentError        EventType = "agent.error"
	TypeSecurityAlert     EventType = "security.alert"
	TypeCommentAdded      EventType = "comment.added"
	TypeBranchPushed      EventType = "branch.pushed"
	TypeTestPassed        EventType = "test.passed"
	TypeTestFailed        EventType = "test.failed"
	TypeCustom            EventType = "custom"
)

// Priority is the overlay display tier, lowest to highest.
type Priority string

const (
	PriorityAmbient  Priority = "ambient"
	PriorityNotice   Priority = "notice"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

// Event is an immutable operational notification. Created by ingestion,
// never mutated after insertion.
type Event struct {
	ID             string            `json:"id"`
	EventType      EventType         `json:"event_type"`
	Source         string            `json:"source"`
	Priority       Priority          `json:"priority"`
	Title          string            `json:"title"`
	Body           *string           `json:"body,omitempty"`
	Timestamp      string            `json:"timestamp"`
	URL            *string           `json:"url,omitempty"`
	Actor          *string           `json:"actor,omitempty"`
	Tags           []string          `json:"tags"`
	ActionRequired bool              `json:"action_required"`
	GroupKey       *string           `json:"group_key,omitempty"`
	ExpiresAt      *string           `json:"expires_at,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}

// TimestampNow formats the current time as unix epoch seconds followed by a
// literal "Z", not a full RFC3339 string, to match ingestion adapters that
// expect that compact form.
func TimestampNow() string {
	return formatEpochZ(time.Now())
}

func formatEpochZ(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10) + "Z"
}

// StoredEvent is an Event plus mutable claim fields, as held by the Event Store.
type StoredEvent struct {
	Event     Event   `json:"event"`
	ClaimedBy *string `json:"claimed_by,omitempty"`
	ClaimedAt *string `json:"claimed_at,omitempty"`
}

// Stats summarizes the store's current contents.
type Stats struct {
	TotalStored         int `json:"total_stored"`
	TotalClaimed        int `json:"total_claimed"`
	TotalPendingActions int `json:"total_pending_actions"`
}
