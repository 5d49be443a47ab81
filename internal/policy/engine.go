package policy

import (
	"context"
	"fmt"
	"time"

	"learnassist/internal/models"
)

// Deny reasons surfaced to callers.
const (
	ReasonNotEnabled   = "Learning assistant not enabled for course."
	ReasonTrialExpired = "The audit trial for this user has expired."
	ReasonNoEnrollment = "Must be staff or have valid enrollment."
)

// Decision is the outcome of an access check.
type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision             { return Decision{Allow: true} }
func deny(reason string) Decision { return Decision{Allow: false, Reason: reason} }

// Input carries everything the decision procedure branches on.
type Input struct {
	AssistantAvailable bool
	CourseOverride     *bool // nil means no override row, default enabled
	EnrollmentMode     string
	UserRole           string
	UpgradeDeadline    *time.Time

	// CreateTrial controls whether the audit branch may create a missing
	// trial. Chat turns create; read-only views only look up.
	CreateTrial bool
}

// TrialService is the slice of the audit trial manager the engine needs.
type TrialService interface {
	Get(ctx context.Context, userID int64) (*models.AuditTrial, error)
	GetOrCreate(ctx context.Context, userID int64) (*models.AuditTrial, error)
	LengthDays(ctx context.Context, userID int64, enrollmentMode string) int
	IsExpired(upgradeDeadline *time.Time, trial *models.AuditTrial, lengthDays int) bool
}

// Engine decides whether a user may use the assistant for a course. Aside
// from the audit-trial get-or-create it has no side effects, and repeated
// calls with the same inputs yield the same decision.
type Engine struct {
	trials TrialService
}

func NewEngine(trials TrialService) *Engine {
	return &Engine{trials: trials}
}

// Decide runs the ordered decision procedure; the first matching rule wins.
func (e *Engine) Decide(ctx context.Context, userID int64, in Input) (Decision, error) {
	if !in.AssistantAvailable {
		return deny(ReasonNotEnabled), nil
	}

	enabled := true
	if in.CourseOverride != nil {
		enabled = *in.CourseOverride
	}
	if !enabled {
		return deny(ReasonNotEnabled), nil
	}

	if models.IsStaffRole(in.UserRole) {
		return allow(), nil
	}

	if models.IsVerifiedMode(in.EnrollmentMode) {
		return allow(), nil
	}

	if models.IsAuditMode(in.EnrollmentMode) {
		var (
			trial *models.AuditTrial
			err   error
		)
		if in.CreateTrial {
			trial, err = e.trials.GetOrCreate(ctx, userID)
		} else {
			trial, err = e.trials.Get(ctx, userID)
		}
		if err != nil {
			return Decision{}, fmt.Errorf("audit trial lookup: %w", err)
		}
		days := e.trials.LengthDays(ctx, userID, in.EnrollmentMode)
		if e.trials.IsExpired(in.UpgradeDeadline, trial, days) {
			return deny(ReasonTrialExpired), nil
		}
		return allow(), nil
	}

	return deny(ReasonNoEnrollment), nil
}
