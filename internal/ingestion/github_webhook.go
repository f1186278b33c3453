package ingestion

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/breakpointhq/breakpoint/internal/events"
)

// githubPayload is the minimal shape this translator reads from across the
// several GitHub webhook event types it recognizes; fields irrelevant to a
// given event type are simply absent from that payload.
type githubPayload struct {
	Action      string `json:"action"`
	PullRequest *struct {
		Merged bool   `json:"merged"`
		Title  string `json:"title"`
		HTMLURL string `json:"html_url"`
		User    struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
	WorkflowRun *struct {
		Name       string `json:"name"`
		Conclusion string `json:"conclusion"`
		HTMLURL    string `json:"html_url"`
	} `json:"workflow_run"`
	Issue *struct {
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
	} `json:"issue"`
	Pusher *struct {
		Name string `json:"name"`
	} `json:"pusher"`
	Ref        string `json:"ref"`
	Repository *struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// translateGitHubWebhook maps a subset of GitHub's webhook payload shapes
// into an Event. An unrecognized shape still produces a generic custom
// Event rather than being rejected.
func translateGitHubWebhook(body []byte) events.Event {
	var p githubPayload
	_ = json.Unmarshal(body, &p)

	repo := ""
	if p.Repository != nil {
		repo = p.Repository.FullName
	}

	switch {
	case p.PullRequest != nil && p.PullRequest.Merged:
		return newEvent(events.TypePRMerged, "github", events.PriorityNotice, p.PullRequest.Title, p.PullRequest.HTMLURL, p.PullRequest.User.Login, false, repo)
	case p.PullRequest != nil && p.Action == "opened":
		return newEvent(events.TypePROpened, "github", events.PriorityAmbient, p.PullRequest.Title, p.PullRequest.HTMLURL, p.PullRequest.User.Login, false, repo)
	case p.WorkflowRun != nil && p.Action == "completed" && p.WorkflowRun.Conclusion == "success":
		return newEvent(events.TypePipelineSucceeded, "github", events.PriorityAmbient, p.WorkflowRun.Name, p.WorkflowRun.HTMLURL, "", false, repo)
	case p.WorkflowRun != nil && p.Action == "completed":
		return newEvent(events.TypePipelineFailed, "github", events.PriorityUrgent, p.WorkflowRun.Name, p.WorkflowRun.HTMLURL, "", true, repo)
	case p.Issue != nil && p.Action == "opened":
		return newEvent(events.TypeIssueOpened, "github", events.PriorityAmbient, p.Issue.Title, p.Issue.HTMLURL, "", false, repo)
	case p.Pusher != nil:
		return newEvent(events.TypeBranchPushed, "github", events.PriorityAmbient, p.Ref, "", p.Pusher.Name, false, repo)
	default:
		return newEvent(events.TypeCustom, "github", events.PriorityAmbient, "unrecognized github webhook", "", "", false, repo)
	}
}

func newEvent(eventType events.EventType, source string, priority events.Priority, title, url, actor string, actionRequired bool, repo string) events.Event {
	e := events.Event{
		ID:             uuid.NewString(),
		EventType:      eventType,
		Source:         source,
		Priority:       priority,
		Title:          title,
		Timestamp:      events.TimestampNow(),
		ActionRequired: actionRequired,
		Tags:           []string{},
		Metadata:       map[string]string{},
	}
	if url != "" {
		e.URL = &url
	}
	if actor != "" {
		e.Actor = &actor
	}
	if repo != "" {
		e.Metadata["repo"] = repo
	}
	return e
}
