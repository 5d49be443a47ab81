package tokens

import (
	"fmt"
	"strings"

	"learnassist/internal/models"
)

// The completion service substitutes the course title and skill names into
// the prompt server-side, so their eventual size must be budgeted here.
// 40 and 116 are the average character counts observed for each.
const (
	courseTitlePlaceholderChars = 40
	skillNamesPlaceholderChars  = 116
)

// Reducer trims a message list to fit the model's context budget.
type Reducer struct {
	Estimator      Estimator
	MaxTokens      int
	ResponseTokens int
}

// NewReducer builds a reducer, substituting defaults for zero values.
func NewReducer(est Estimator, maxTokens, responseTokens int) Reducer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if responseTokens <= 0 {
		responseTokens = DefaultResponseTokens
	}
	return Reducer{Estimator: est, MaxTokens: maxTokens, ResponseTokens: responseTokens}
}

// Reduce returns the largest suffix of messages that fits in the budget left
// after the system prompt and the reserved response space. Messages are
// walked newest to oldest; the first message that would meet or exceed the
// remaining budget is dropped together with everything older. Surviving
// messages keep their original chronological order.
//
// Entries with empty content are rejected before reduction begins.
func (r Reducer) Reduce(systemPrompt string, messages []models.ChatMessage) ([]models.ChatMessage, error) {
	for i, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			return nil, fmt.Errorf("message %d has no content", i)
		}
	}

	systemTokens := r.Estimator.Estimate(systemPrompt) +
		r.Estimator.Estimate(strings.Repeat(".", courseTitlePlaceholderChars)) +
		r.Estimator.Estimate(strings.Repeat(".", skillNamesPlaceholderChars))

	budget := r.MaxTokens - r.ResponseTokens - systemTokens
	if budget <= 0 {
		return []models.ChatMessage{}, nil
	}

	total := 0
	kept := 0
	for i := len(messages) - 1; i >= 0; i-- {
		total += r.Estimator.Estimate(messages[i].Content)
		if total >= budget {
			break
		}
		kept++
	}

	out := make([]models.ChatMessage, kept)
	copy(out, messages[len(messages)-kept:])
	return out, nil
}
