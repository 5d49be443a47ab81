package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is a single entry of the chat payload exchanged with callers
// and with the completion backend.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryMessage is a persisted chat message. Rows are append-only and
// eventually purged by the retention job.
type HistoryMessage struct {
	ID        int64     `json:"-"`
	UserID    int64     `json:"-"`
	CourseID  string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}
