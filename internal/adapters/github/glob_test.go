package github

import "testing"

func TestAgentDetectorExactMatch(t *testing.T) {
	d := NewAgentDetector([]string{"dependabot[bot]"})
	if !d.Detect("dependabot[bot]") {
		t.Error("expected exact match to detect")
	}
	if d.Detect("dependabot") {
		t.Error("expected non-match to not detect")
	}
}

func TestAgentDetectorSuffixWildcard(t *testing.T) {
	d := NewAgentDetector([]string{"*[bot]"})
	for _, actor := range []string{"dependabot[bot]", "renovate[bot]", "[bot]"} {
		if !d.Detect(actor) {
			t.Errorf("expected %q to match *[bot]", actor)
		}
	}
	if d.Detect("dependabot") {
		t.Error("expected dependabot to not match *[bot]")
	}
}

func TestAgentDetectorPrefixWildcard(t *testing.T) {
	d := NewAgentDetector([]string{"*-agent"})
	if !d.Detect("claude-agent") || !d.Detect("my-ci-agent") {
		t.Error("expected *-agent matches")
	}
	if d.Detect("agent-runner") {
		t.Error("expected agent-runner to not match *-agent")
	}
}

func TestAgentDetectorNoMatch(t *testing.T) {
	d := NewAgentDetector([]string{"*[bot]", "*-agent"})
	if d.Detect("alice") || d.Detect("human-user") {
		t.Error("expected no match for human actors")
	}
}

func TestAgentDetectorDefaultPatternsDetectCommonBots(t *testing.T) {
	d := NewAgentDetector(DefaultAgentPatterns)
	for _, actor := range []string{"dependabot[bot]", "github-actions[bot]", "renovate[bot]", "custom[bot]", "my-ci-agent"} {
		if !d.Detect(actor) {
			t.Errorf("expected default patterns to detect %q", actor)
		}
	}
	if d.Detect("alice") {
		t.Error("expected alice to not be flagged as an agent")
	}
}
