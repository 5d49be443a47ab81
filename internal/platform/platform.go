package platform

import (
	"context"
	"time"
)

// The assistant treats the surrounding learning platform as a set of narrow
// collaborators. Production adapters are table-backed; tests use fakes.

// Enrollment is the slice of an enrollment record the assistant cares about.
type Enrollment struct {
	Mode string
}

// EnrollmentLookup resolves a user's enrollment in a course run. A nil
// result with a nil error means the user is not enrolled.
type EnrollmentLookup interface {
	GetEnrollment(ctx context.Context, userID int64, courseRunID string) (*Enrollment, error)
}

// RoleLookup resolves the user's role in a course run. An empty role means
// an ordinary learner.
type RoleLookup interface {
	GetUserRole(ctx context.Context, userID int64, courseRunID string) (string, error)
}

// CourseDirectory resolves course run metadata. CourseID returns "" when the
// run is unknown; callers degrade to the run id. UpgradeDeadline returns nil
// when the course has no verified-upgrade deadline.
type CourseDirectory interface {
	CourseID(ctx context.Context, courseRunID string) (string, error)
	UpgradeDeadline(ctx context.Context, courseRunID string) (*time.Time, error)
}

// ContentProvider fetches the text content of a course unit for prompt
// rendering. An error for an unknown unit is recoverable; rendering
// proceeds with empty supplemental content.
type ContentProvider interface {
	UnitContent(ctx context.Context, courseRunID, unitID string) (string, error)
}
