package assistant

import (
	"context"
	"fmt"
	"time"

	"learnassist/internal/models"
	"learnassist/internal/policy"
)

// TrialInfo is the serialized audit trial window. Both fields are absent
// when the user has no trial.
type TrialInfo struct {
	StartDate      *time.Time `json:"start_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// Summary aggregates everything a client needs to boot the assistant UI
// in one call.
type Summary struct {
	Enabled              bool                    `json:"enabled"`
	MessageHistory       []models.HistoryMessage `json:"message_history"`
	AuditTrial           TrialInfo               `json:"audit_trial"`
	AuditTrialLengthDays int                     `json:"audit_trial_length_days"`
}

// History returns the caller's recent messages for the course, oldest first.
// A disabled assistant is an access error; a denied or history-off caller
// just gets an empty list.
func (s *Service) History(ctx context.Context, userID int64, courseRunID string, messageCount int) ([]models.HistoryMessage, error) {
	enabled, err := s.Enabled(ctx, courseRunID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, &AccessError{Reason: policy.ReasonNotEnabled}
	}
	return s.historyMessages(ctx, userID, courseRunID, messageCount)
}

// historyMessages applies the read-side gating shared by History and
// ChatSummary: no trial creation, empty result on deny or history-off.
func (s *Service) historyMessages(ctx context.Context, userID int64, courseRunID string, messageCount int) ([]models.HistoryMessage, error) {
	if !s.cfg.Assistant.ChatHistoryEnabled {
		return []models.HistoryMessage{}, nil
	}
	in, err := s.accessInput(ctx, userID, courseRunID, false)
	if err != nil {
		return nil, err
	}
	decision, err := s.engine.Decide(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if !decision.Allow {
		return []models.HistoryMessage{}, nil
	}
	if messageCount <= 0 {
		messageCount = s.cfg.Assistant.DefaultMessageCount
	}
	messages, err := s.history.Recent(ctx, userID, s.courseID(ctx, courseRunID), messageCount)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return messages, nil
}

// ChatSummary returns the enabled flag, recent history, and the audit
// trial window in one response. A disabled course yields the zero shape.
func (s *Service) ChatSummary(ctx context.Context, userID int64, courseRunID string, messageCount int) (*Summary, error) {
	summary := &Summary{MessageHistory: []models.HistoryMessage{}}

	enabled, err := s.Enabled(ctx, courseRunID)
	if err != nil {
		return nil, err
	}
	summary.Enabled = enabled
	if !enabled {
		return summary, nil
	}

	messages, err := s.historyMessages(ctx, userID, courseRunID, messageCount)
	if err != nil {
		return nil, err
	}
	summary.MessageHistory = messages

	trialRow, err := s.trials.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load audit trial: %w", err)
	}
	mode := s.enrollmentMode(ctx, userID, courseRunID)
	days := s.trials.LengthDays(ctx, userID, mode)
	summary.AuditTrialLengthDays = days
	if trialRow != nil {
		start := trialRow.StartDate
		expiration := s.trials.ExpirationDate(trialRow, days)
		summary.AuditTrial = TrialInfo{StartDate: &start, ExpirationDate: &expiration}
	}
	return summary, nil
}
