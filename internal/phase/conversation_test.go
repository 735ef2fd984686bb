package phase

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestMessagesReturnsVerbatimUnderBudget(t *testing.T) {
	th := NewThread("coding", "test-model", 1_000_000)
	th.Append(Message{Role: RoleUser, Content: "hello"})
	th.Append(Message{Role: RoleAssistant, Content: "world"})

	got := th.Messages(time.Now().UTC())
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2 (no pruning under budget)", len(got))
	}
}

func TestPrunePreservesFirstAndLastWindows(t *testing.T) {
	th := NewThread("coding", "test-model", 10) // tiny budget forces pruning
	base := time.Now().UTC().Add(-2 * time.Hour)

	for i := 0; i < 40; i++ {
		th.Append(Message{
			Role:      RoleUser,
			Content:   fmt.Sprintf("message number %d with enough content to cost tokens", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	now := base.Add(40 * time.Minute)
	out := th.Messages(now)

	if !strings.Contains(out[0].Content, "message number 0 ") {
		t.Errorf("first preserved message = %q, want message 0", out[0].Content)
	}
	last := out[len(out)-1]
	if !strings.Contains(last.Content, "message number 39 ") {
		t.Errorf("last preserved message = %q, want message 39", last.Content)
	}
}

func TestPruneKeepsTaggedMessagesRegardlessOfAge(t *testing.T) {
	th := NewThread("coding", "test-model", 10)
	base := time.Now().UTC().Add(-3 * time.Hour)

	for i := 0; i < 30; i++ {
		th.Append(Message{Role: RoleUser, Content: fmt.Sprintf("filler %d filler filler filler", i), Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	th.Append(Message{
		Role:      RoleAssistant,
		Content:   "a critical decision was made here",
		Tags:      []MessageTag{TagDecision},
		Timestamp: base.Add(15 * time.Minute),
	})
	for i := 30; i < 60; i++ {
		th.Append(Message{Role: RoleUser, Content: fmt.Sprintf("filler %d filler filler filler", i), Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}

	now := base.Add(61 * time.Minute)
	out := th.Messages(now)

	found := false
	for _, m := range out {
		if m.hasTag(TagDecision) {
			found = true
		}
	}
	if !found {
		t.Error("tagged decision message was pruned away")
	}
}

func TestPruneKeepsRecentMessagesVerbatim(t *testing.T) {
	th := NewThread("coding", "test-model", 10)
	now := time.Now().UTC()

	for i := 0; i < 10; i++ {
		th.Append(Message{Role: RoleUser, Content: fmt.Sprintf("old %d padding padding padding padding", i), Timestamp: now.Add(-2 * time.Hour)})
	}
	recent := Message{Role: RoleUser, Content: "just said this a moment ago", Timestamp: now.Add(-1 * time.Minute)}
	th.Append(recent)

	out := th.Messages(now)
	last := out[len(out)-1]
	if last.Content != recent.Content {
		t.Errorf("recent message not preserved verbatim, got %q", last.Content)
	}
}

func TestSummarizeBoundsToTokenBudget(t *testing.T) {
	var msgs []Message
	for i := 0; i < 200; i++ {
		msgs = append(msgs, Message{Role: RoleUser, Content: strings.Repeat("word ", 50), Timestamp: time.Now().UTC()})
	}
	summary := summarize(msgs)
	if estimateTokens([]Message{summary}) > summaryTokenBudget+10 {
		t.Errorf("summary exceeds token budget: %d tokens", estimateTokens([]Message{summary}))
	}
}

func TestEstimateTokensUsesCharsOverFourHeuristic(t *testing.T) {
	msgs := []Message{{Content: strings.Repeat("a", 400)}}
	got := estimateTokens(msgs)
	if got != 100 {
		t.Errorf("estimateTokens = %d, want 100 for 400 chars", got)
	}
}

func TestThreadMarkdownRoundTrip(t *testing.T) {
	th := NewThread("coding", "test-model", 1_000_000)
	th.Append(Message{Role: RoleUser, Content: "line one\nline two", Timestamp: time.Unix(1700000000, 0).UTC()})
	th.Append(Message{Role: RoleAssistant, Content: "a decision", Tags: []MessageTag{TagDecision}, Timestamp: time.Unix(1700000100, 0).UTC()})

	restored := ThreadFromMarkdown("coding", "test-model", 1_000_000, th.ToMarkdown())
	if len(restored.messages) != 2 {
		t.Fatalf("got %d messages after round trip, want 2", len(restored.messages))
	}
	if restored.messages[0].Content != "line one\nline two" {
		t.Errorf("message 0 content = %q", restored.messages[0].Content)
	}
	if restored.messages[1].Role != RoleAssistant || !restored.messages[1].hasTag(TagDecision) {
		t.Errorf("message 1 lost role/tags: %+v", restored.messages[1])
	}
	if !restored.messages[1].Timestamp.Equal(th.messages[1].Timestamp) {
		t.Errorf("message 1 timestamp = %v, want %v", restored.messages[1].Timestamp, th.messages[1].Timestamp)
	}
}

func TestThreadFromMarkdownEmptyIsEmptyThread(t *testing.T) {
	restored := ThreadFromMarkdown("coding", "test-model", 1000, "")
	if len(restored.messages) != 0 {
		t.Errorf("expected no messages from blank markdown, got %d", len(restored.messages))
	}
}
