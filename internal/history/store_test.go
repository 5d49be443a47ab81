package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"learnassist/internal/config"
	"learnassist/internal/models"
	"learnassist/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, id int64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, '', ?)`,
		id, "user_"+time.Now().Format("150405.000000000"), time.Now().UTC())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func seedMessage(t *testing.T, db *sql.DB, userID int64, courseID string, role models.Role, content string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO assistant_messages (user_id, course_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, courseID, role, content, createdAt,
	)
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}
}

func TestSaveAndRecentChronological(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, 1)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	seedMessage(t, db, 1, "edx+test", models.RoleUser, "Older message", base)
	seedMessage(t, db, 1, "edx+test", models.RoleAssistant, "Middle message", base.Add(time.Hour))
	seedMessage(t, db, 1, "edx+test", models.RoleUser, "Newer message", base.Add(2*time.Hour))

	got, err := store.Recent(ctx, 1, "edx+test", 50)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"Older message", "Middle message", "Newer message"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, content := range want {
		if got[i].Content != content {
			t.Fatalf("position %d = %q, want %q", i, got[i].Content, content)
		}
	}
}

func TestRecentLimitKeepsNewest(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, 1)
	store := NewStore(db)

	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedMessage(t, db, 1, "edx+test", models.RoleUser, string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
	}

	got, err := store.Recent(context.Background(), 1, "edx+test", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Content != "d" || got[1].Content != "e" {
		t.Fatalf("expected the two newest in order, got %+v", got)
	}
}

func TestRecentScopedToUserAndCourse(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, 1)
	seedUser(t, db, 2)
	store := NewStore(db)
	now := time.Now().UTC()

	seedMessage(t, db, 1, "edx+test", models.RoleUser, "mine", now)
	seedMessage(t, db, 2, "edx+test", models.RoleUser, "other user", now)
	seedMessage(t, db, 1, "edx+other", models.RoleUser, "other course", now)

	got, err := store.Recent(context.Background(), 1, "edx+test", 50)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Content != "mine" {
		t.Fatalf("history leaked across users or courses: %+v", got)
	}
}

func TestSaveValidatesInput(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	if err := store.Save(context.Background(), 0, "edx+test", models.RoleUser, "x"); err == nil {
		t.Fatalf("expected error for missing user")
	}
	if err := store.Save(context.Background(), 1, "", models.RoleUser, "x"); err == nil {
		t.Fatalf("expected error for missing course")
	}
}

func TestRetentionPurgesInBatches(t *testing.T) {
	db := openTestDB(t)
	seedUser(t, db, 1)

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	fresh := time.Now().UTC()
	for i := 0; i < 7; i++ {
		seedMessage(t, db, 1, "edx+test", models.RoleUser, "expired", old)
	}
	seedMessage(t, db, 1, "edx+test", models.RoleUser, "keep me", fresh)

	r := NewRetention(db, config.RetentionConfig{
		ExpiryDays:   30,
		BatchSize:    3,
		SleepSeconds: 0,
	})
	deleted, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deleted != 7 {
		t.Fatalf("deleted = %d, want 7", deleted)
	}

	var remaining int
	if err := db.QueryRow(`SELECT COUNT(*) FROM assistant_messages`).Scan(&remaining); err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want the fresh row only", remaining)
	}
}
