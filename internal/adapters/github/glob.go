package github

import "strings"

// AgentDetector flags actor names that look like bots or automation by
// glob-matching them against a configured pattern list.
type AgentDetector struct {
	patterns []string
}

// NewAgentDetector builds a detector from a list of glob patterns
// supporting only `*` as a wildcard.
func NewAgentDetector(patterns []string) *AgentDetector {
	return &AgentDetector{patterns: patterns}
}

// Detect reports whether actor matches any configured pattern.
func (d *AgentDetector) Detect(actor string) bool {
	for _, p := range d.patterns {
		if globMatch(p, actor) {
			return true
		}
	}
	return false
}

func globMatch(pattern, text string) bool {
	if pattern == text {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == text
	}

	parts := strings.Split(pattern, "*")
	if len(parts) == 2 && parts[0] == "" {
		return strings.HasSuffix(text, parts[1])
	}
	if len(parts) == 2 && parts[1] == "" {
		return strings.HasPrefix(text, parts[0])
	}

	remaining := text
	for i, part := range parts {
		if part == "" {
			continue
		}
		switch {
		case i == 0:
			if !strings.HasPrefix(remaining, part) {
				return false
			}
			remaining = remaining[len(part):]
		case i == len(parts)-1:
			if !strings.HasSuffix(remaining, part) {
				return false
			}
			remaining = remaining[:len(remaining)-len(part)]
		default:
			idx := strings.Index(remaining, part)
			if idx == -1 {
				return false
			}
			remaining = remaining[idx+len(part):]
		}
	}
	return true
}

// DefaultAgentPatterns is the built-in bot/automation actor pattern list.
var DefaultAgentPatterns = []string{
	"dependabot[bot]",
	"github-actions[bot]",
	"renovate[bot]",
	"*[bot]",
	"*-agent",
}
