package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLDirectory implements the platform ports against the service database.
type SQLDirectory struct {
	db *sql.DB
}

func NewSQLDirectory(db *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// GetEnrollment returns the user's enrollment in the course run, or nil.
func (d *SQLDirectory) GetEnrollment(ctx context.Context, userID int64, courseRunID string) (*Enrollment, error) {
	var mode string
	err := d.db.QueryRowContext(ctx,
		`SELECT mode FROM enrollments WHERE user_id = ? AND course_run_id = ?`,
		userID, courseRunID,
	).Scan(&mode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}
	return &Enrollment{Mode: mode}, nil
}

// GetUserRole returns the user's course role, or "" for ordinary learners.
func (d *SQLDirectory) GetUserRole(ctx context.Context, userID int64, courseRunID string) (string, error) {
	var role string
	err := d.db.QueryRowContext(ctx,
		`SELECT role FROM course_staff WHERE user_id = ? AND course_run_id = ?`,
		userID, courseRunID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup user role: %w", err)
	}
	return role, nil
}

// CourseID maps a course run to its parent course, or "" when unmapped.
func (d *SQLDirectory) CourseID(ctx context.Context, courseRunID string) (string, error) {
	var courseID string
	err := d.db.QueryRowContext(ctx,
		`SELECT course_id FROM course_runs WHERE course_run_id = ?`, courseRunID,
	).Scan(&courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup course run: %w", err)
	}
	return courseID, nil
}

// UpgradeDeadline returns the run's verified-upgrade deadline, or nil.
func (d *SQLDirectory) UpgradeDeadline(ctx context.Context, courseRunID string) (*time.Time, error) {
	var deadline sql.NullTime
	err := d.db.QueryRowContext(ctx,
		`SELECT upgrade_deadline FROM course_runs WHERE course_run_id = ?`, courseRunID,
	).Scan(&deadline)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup upgrade deadline: %w", err)
	}
	if !deadline.Valid {
		return nil, nil
	}
	t := deadline.Time
	return &t, nil
}

// UnitContent returns the stored text content of a course unit.
func (d *SQLDirectory) UnitContent(ctx context.Context, courseRunID, unitID string) (string, error) {
	var content string
	err := d.db.QueryRowContext(ctx,
		`SELECT content FROM course_units WHERE course_run_id = ? AND unit_id = ?`,
		courseRunID, unitID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("unit %s not found in %s", unitID, courseRunID)
		}
		return "", fmt.Errorf("lookup unit content: %w", err)
	}
	return content, nil
}
