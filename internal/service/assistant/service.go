package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"learnassist/internal/completion"
	"learnassist/internal/config"
	"learnassist/internal/history"
	"learnassist/internal/models"
	"learnassist/internal/platform"
	"learnassist/internal/policy"
	"learnassist/internal/render"
	"learnassist/internal/tokens"
	"learnassist/internal/trial"
)

// CompletionClient is the outbound chat backend contract consumed by the
// orchestrator. Connection failures arrive as synthesized results, never
// as errors.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, prompt string, messages []models.ChatMessage, courseID string) completion.Result
}

// Directory bundles the host-platform lookups a chat turn needs.
type Directory interface {
	platform.EnrollmentLookup
	platform.RoleLookup
	platform.CourseDirectory
}

// Service orchestrates chat turns and the read-side views around them.
type Service struct {
	db         *sql.DB
	driver     string
	cfg        *config.Config
	engine     *policy.Engine
	trials     *trial.Manager
	renderer   *render.Renderer
	completion CompletionClient
	history    *history.Store
	directory  Directory
	reducer    tokens.Reducer
}

// NewService wires the orchestrator from its collaborators. The token
// budget knobs come from the assistant config section.
func NewService(
	db *sql.DB,
	driver string,
	cfg *config.Config,
	engine *policy.Engine,
	trials *trial.Manager,
	renderer *render.Renderer,
	client CompletionClient,
	store *history.Store,
	directory Directory,
) *Service {
	est := tokens.NewEstimator(cfg.Assistant.CharsPerToken, cfg.Assistant.JSONPadding)
	return &Service{
		db:         db,
		driver:     driver,
		cfg:        cfg,
		engine:     engine,
		trials:     trials,
		renderer:   renderer,
		completion: client,
		history:    store,
		directory:  directory,
		reducer:    tokens.NewReducer(est, cfg.Assistant.MaxTokens, cfg.Assistant.ResponseTokens),
	}
}

// AccessError is an authorization denial, surfaced as 403.
type AccessError struct {
	Reason string
}

func (e *AccessError) Error() string {
	return e.Reason
}

// ValidationError is a malformed request, surfaced as 400.
type ValidationError struct {
	Detail string
	Errors []string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// courseID maps a course run to its parent course identifier. A missing
// mapping falls back to the run id so history and overrides still work.
func (s *Service) courseID(ctx context.Context, courseRunID string) string {
	id, err := s.directory.CourseID(ctx, courseRunID)
	if err != nil {
		log.Printf("course id lookup failed for %s, using run id: %v", courseRunID, err)
		return courseRunID
	}
	if id == "" {
		return courseRunID
	}
	return id
}

// accessInput assembles the policy inputs for one user/course pair.
func (s *Service) accessInput(ctx context.Context, userID int64, courseRunID string, createTrial bool) (policy.Input, error) {
	override, err := s.courseOverride(ctx, s.courseID(ctx, courseRunID))
	if err != nil {
		return policy.Input{}, err
	}
	role, err := s.directory.GetUserRole(ctx, userID, courseRunID)
	if err != nil {
		return policy.Input{}, fmt.Errorf("lookup role: %w", err)
	}
	mode := ""
	enrollment, err := s.directory.GetEnrollment(ctx, userID, courseRunID)
	if err != nil {
		return policy.Input{}, fmt.Errorf("lookup enrollment: %w", err)
	}
	if enrollment != nil {
		mode = enrollment.Mode
	}
	deadline, err := s.directory.UpgradeDeadline(ctx, courseRunID)
	if err != nil {
		return policy.Input{}, fmt.Errorf("lookup upgrade deadline: %w", err)
	}
	return policy.Input{
		AssistantAvailable: s.cfg.Assistant.Available,
		CourseOverride:     override,
		EnrollmentMode:     mode,
		UserRole:           role,
		UpgradeDeadline:    deadline,
		CreateTrial:        createTrial,
	}, nil
}

func (s *Service) enrollmentMode(ctx context.Context, userID int64, courseRunID string) string {
	enrollment, err := s.directory.GetEnrollment(ctx, userID, courseRunID)
	if err != nil || enrollment == nil {
		return ""
	}
	return enrollment.Mode
}
