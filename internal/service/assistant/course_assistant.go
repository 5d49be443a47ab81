package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnassist/internal/models"
)

const detailStaffOnly = "Must be course staff."

// courseOverride returns the per-course enable override, or nil when no
// staff member has set one. Absence means default enabled.
func (s *Service) courseOverride(ctx context.Context, courseID string) (*bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled FROM course_assistant_enabled WHERE course_id = ?`, courseID,
	).Scan(&enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup course override: %w", err)
	}
	return &enabled, nil
}

// Enabled reports whether the assistant is usable for the course: the
// global flag must be on and no staff override may disable it.
func (s *Service) Enabled(ctx context.Context, courseRunID string) (bool, error) {
	if !s.cfg.Assistant.Available {
		return false, nil
	}
	override, err := s.courseOverride(ctx, s.courseID(ctx, courseRunID))
	if err != nil {
		return false, err
	}
	if override != nil {
		return *override, nil
	}
	return true, nil
}

// SetCourseEnabled upserts the per-course override. Only course staff may
// change it.
func (s *Service) SetCourseEnabled(ctx context.Context, userID int64, courseRunID string, enabled bool) (*models.CourseEnabled, error) {
	role, err := s.directory.GetUserRole(ctx, userID, courseRunID)
	if err != nil {
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	if !models.IsStaffRole(role) {
		return nil, &AccessError{Reason: detailStaffOnly}
	}

	courseID := s.courseID(ctx, courseRunID)
	now := time.Now().UTC()
	var query string
	switch s.driver {
	case "mysql":
		query = `INSERT INTO course_assistant_enabled (course_id, enabled, updated_at) VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE enabled = VALUES(enabled), updated_at = VALUES(updated_at)`
	default:
		query = `INSERT INTO course_assistant_enabled (course_id, enabled, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(course_id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`
	}
	if _, err := s.db.ExecContext(ctx, query, courseID, enabled, now); err != nil {
		return nil, fmt.Errorf("store course override: %w", err)
	}
	return &models.CourseEnabled{CourseID: courseID, Enabled: enabled, UpdatedAt: now}, nil
}
