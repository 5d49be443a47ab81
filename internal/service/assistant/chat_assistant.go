package assistant

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"learnassist/internal/completion"
	"learnassist/internal/models"
)

const detailLastRole = "Expects user role on last message."

// Chat runs one full chat turn: validate, authorize, persist the new user
// message, render and reduce, call the backend, persist the reply. The
// backend's status and body come back verbatim in the Result; denials and
// malformed input surface as AccessError / ValidationError.
func (s *Service) Chat(ctx context.Context, userID int64, courseRunID, unitID string, messages []models.ChatMessage) (completion.Result, error) {
	if err := validateMessages(messages); err != nil {
		return completion.Result{}, err
	}

	in, err := s.accessInput(ctx, userID, courseRunID, true)
	if err != nil {
		return completion.Result{}, err
	}
	decision, err := s.engine.Decide(ctx, userID, in)
	if err != nil {
		return completion.Result{}, err
	}
	if !decision.Allow {
		return completion.Result{}, &AccessError{Reason: decision.Reason}
	}

	courseID := s.courseID(ctx, courseRunID)
	if s.cfg.Assistant.ChatHistoryEnabled {
		last := messages[len(messages)-1]
		if err := s.history.Save(ctx, userID, courseID, last.Role, last.Content); err != nil {
			return completion.Result{}, fmt.Errorf("save user message: %w", err)
		}
	}

	prompt := s.renderer.RenderPrompt(ctx, userID, courseRunID, unitID)
	reduced, err := s.reducer.Reduce(prompt, messages)
	if err != nil {
		return completion.Result{}, &ValidationError{Detail: err.Error()}
	}

	result := s.completion.ChatCompletion(ctx, prompt, reduced, courseID)
	if result.StatusCode != http.StatusOK {
		log.Printf("chat completion failed for user %d course %s: status %d", userID, courseID, result.StatusCode)
		return result, nil
	}
	if s.cfg.Assistant.ChatHistoryEnabled && result.Message != nil && result.Message.Content != "" {
		if err := s.history.Save(ctx, userID, courseID, models.RoleAssistant, result.Message.Content); err != nil {
			return completion.Result{}, fmt.Errorf("save assistant message: %w", err)
		}
	}
	return result, nil
}

// validateMessages enforces the inbound message contract. Callers may only
// send user and assistant roles; the system prompt is injected server side.
func validateMessages(messages []models.ChatMessage) error {
	if len(messages) == 0 || messages[len(messages)-1].Role != models.RoleUser {
		return &ValidationError{Detail: detailLastRole}
	}
	var errs []string
	for i, msg := range messages {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			errs = append(errs, fmt.Sprintf("message %d: %q is not a valid role", i, msg.Role))
		}
		if strings.TrimSpace(msg.Content) == "" {
			errs = append(errs, fmt.Sprintf("message %d: content cannot be empty", i))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Detail: "Invalid message list.", Errors: errs}
	}
	return nil
}
