package models

import "time"

// AuditTrial is the one-time trial window granted to an audit learner.
// At most one row exists per user; the row is never overwritten once created.
type AuditTrial struct {
	ID        int64     `json:"-"`
	UserID    int64     `json:"-"`
	StartDate time.Time `json:"start_date"`
}

// CourseEnabled is a per-course override of the assistant availability,
// set by course staff. Absence of a row means default-enabled.
type CourseEnabled struct {
	CourseID  string    `json:"course_id"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"-"`
}
