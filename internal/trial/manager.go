package trial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnassist/internal/config"
	"learnassist/internal/models"
)

// Manager creates, fetches, and evaluates expiry of per-user audit trials.
// A trial is created at most once per user and never overwritten.
type Manager struct {
	db       *sql.DB
	driver   string
	cfg      config.TrialConfig
	assigner Assigner

	// now is swappable in tests.
	now func() time.Time
}

// NewManager builds a trial manager. A nil assigner disables experiment
// lookups.
func NewManager(db *sql.DB, driver string, cfg config.TrialConfig, assigner Assigner) *Manager {
	if assigner == nil {
		assigner = DisabledAssigner{}
	}
	return &Manager{
		db:       db,
		driver:   strings.ToLower(driver),
		cfg:      cfg,
		assigner: assigner,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the user's trial, or nil if none exists. It never creates.
func (m *Manager) Get(ctx context.Context, userID int64) (*models.AuditTrial, error) {
	var trial models.AuditTrial
	err := m.db.QueryRowContext(ctx,
		`SELECT id, user_id, start_date FROM audit_trials WHERE user_id = ?`, userID,
	).Scan(&trial.ID, &trial.UserID, &trial.StartDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup audit trial: %w", err)
	}
	return &trial, nil
}

// GetOrCreate returns the existing trial or creates one starting now. The
// insert is create-if-absent at the storage layer, so concurrent first calls
// for the same user produce exactly one row.
func (m *Manager) GetOrCreate(ctx context.Context, userID int64) (*models.AuditTrial, error) {
	if userID <= 0 {
		return nil, errors.New("invalid user id")
	}
	now := m.now()

	var stmt string
	switch m.driver {
	case "mysql":
		stmt = `INSERT IGNORE INTO audit_trials (user_id, start_date, created_at) VALUES (?, ?, ?)`
	default:
		stmt = `INSERT INTO audit_trials (user_id, start_date, created_at) VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO NOTHING`
	}
	if _, err := m.db.ExecContext(ctx, stmt, userID, now, now); err != nil {
		return nil, fmt.Errorf("create audit trial: %w", err)
	}

	trial, err := m.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if trial == nil {
		return nil, errors.New("audit trial missing after create")
	}
	return trial, nil
}

// LengthDays returns the trial length for the user. The configured default
// applies unless an experiment variation maps to a different length; any
// experiment failure silently falls back to the default. Negative configured
// values clamp to zero.
func (m *Manager) LengthDays(ctx context.Context, userID int64, enrollmentMode string) int {
	days := m.cfg.DefaultLengthDays
	if enabled, variation := m.assigner.Assign(ctx, userID, enrollmentMode); enabled {
		if override, ok := m.cfg.Variations[variation]; ok {
			days = override
		}
	}
	if days < 0 {
		days = 0
	}
	return days
}

// ExpirationDate computes when a trial of the given length lapses.
func (m *Manager) ExpirationDate(trial *models.AuditTrial, lengthDays int) time.Time {
	return trial.StartDate.AddDate(0, 0, lengthDays)
}

// IsExpired reports whether the trial no longer grants access: the course's
// upgrade deadline has already passed, no trial exists, or the trial window
// has elapsed.
func (m *Manager) IsExpired(upgradeDeadline *time.Time, trial *models.AuditTrial, lengthDays int) bool {
	now := m.now()
	if upgradeDeadline != nil && !upgradeDeadline.After(now) {
		return true
	}
	if trial == nil {
		return true
	}
	return !now.Before(m.ExpirationDate(trial, lengthDays))
}
