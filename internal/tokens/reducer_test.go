package tokens

import (
	"strings"
	"testing"

	"learnassist/internal/models"
)

func testMessages(contents ...string) []models.ChatMessage {
	msgs := make([]models.ChatMessage, 0, len(contents))
	role := models.RoleUser
	for _, c := range contents {
		msgs = append(msgs, models.ChatMessage{Role: role, Content: c})
		if role == models.RoleUser {
			role = models.RoleAssistant
		} else {
			role = models.RoleUser
		}
	}
	return msgs
}

func TestReduceZeroBudgetReturnsEmpty(t *testing.T) {
	r := NewReducer(NewEstimator(0, 0), 100, 1000)
	out, err := r.Reduce("prompt", testMessages("hello", "world"))
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result with exhausted budget, got %d messages", len(out))
	}
}

func TestReduceEmptyInput(t *testing.T) {
	r := NewReducer(NewEstimator(0, 0), 0, 0)
	out, err := r.Reduce("prompt", nil)
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output for empty input")
	}
}

func TestReduceAllMessagesFit(t *testing.T) {
	r := NewReducer(NewEstimator(0, 0), 0, 0)
	in := testMessages("What is 2+2?", "It is 4", "And what else?")
	out, err := r.Reduce("prompt", in)
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected all %d messages to survive, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("message %d changed: %+v != %+v", i, out[i], in[i])
		}
	}
}

func TestReduceDropsOldestFirst(t *testing.T) {
	est := NewEstimator(3.5, 8)
	long := strings.Repeat("x", 3500) // ~1008 tokens each
	in := testMessages(long, long, long, "recent question")

	// Budget of ~1500 tokens: the recent question plus one long message fit,
	// the two oldest do not.
	systemTokens := est.Estimate("p") + est.Estimate(strings.Repeat(".", 40)) + est.Estimate(strings.Repeat(".", 116))
	r := NewReducer(est, systemTokens+1500, 0)

	out, err := r.Reduce("p", in)
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving messages, got %d", len(out))
	}
	if out[len(out)-1].Content != "recent question" {
		t.Fatalf("most recent message must survive, got %q", out[len(out)-1].Content)
	}
	if out[0] != in[2] {
		t.Fatalf("surviving suffix must keep original order")
	}
}

func TestReduceIdempotent(t *testing.T) {
	est := NewEstimator(3.5, 8)
	long := strings.Repeat("y", 2000)
	in := testMessages(long, long, long, long, "tail")
	r := NewReducer(est, 2500, 1000)

	once, err := r.Reduce("prompt", in)
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	twice, err := r.Reduce("prompt", once)
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	if len(once) != len(twice) {
		t.Fatalf("reduction not idempotent: %d then %d messages", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("message %d changed on second reduction", i)
		}
	}
}

func TestReduceRejectsEmptyContent(t *testing.T) {
	r := NewReducer(NewEstimator(0, 0), 0, 0)
	in := []models.ChatMessage{
		{Role: models.RoleUser, Content: "fine"},
		{Role: models.RoleAssistant, Content: "   "},
	}
	if _, err := r.Reduce("prompt", in); err == nil {
		t.Fatalf("expected validation error for empty content")
	}
}
