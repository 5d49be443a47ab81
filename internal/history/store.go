package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnassist/internal/models"
)

// Store persists chat messages. Rows are append-only; edits never happen.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save appends one message to the user's history for a course.
func (s *Store) Save(ctx context.Context, userID int64, courseID string, role models.Role, content string) error {
	if userID <= 0 {
		return errors.New("invalid user id")
	}
	if courseID == "" {
		return errors.New("course id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assistant_messages (user_id, course_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, courseID, role, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns the user's last limit messages for the course in
// chronological order: the query walks newest-first and the result is
// re-reversed for display.
func (s *Store) Recent(ctx context.Context, userID int64, courseID string, limit int) ([]models.HistoryMessage, error) {
	if limit <= 0 {
		return []models.HistoryMessage{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, course_id, role, content, created_at
		 FROM assistant_messages
		 WHERE user_id = ? AND course_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, courseID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []models.HistoryMessage
	for rows.Next() {
		var m models.HistoryMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.CourseID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.HistoryMessage, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}
