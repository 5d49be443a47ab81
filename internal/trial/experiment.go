package trial

import "context"

// Assigner resolves an A/B experiment variation for a user. Implementations
// wrap an external experimentation SDK; lookup failures must be reported via
// enabled=false rather than an error so that callers silently fall back to
// the configured default.
type Assigner interface {
	Assign(ctx context.Context, userID int64, enrollmentMode string) (enabled bool, variation string)
}

// DisabledAssigner is the default when no experiment is configured.
type DisabledAssigner struct{}

func (DisabledAssigner) Assign(ctx context.Context, userID int64, enrollmentMode string) (bool, string) {
	return false, ""
}

// StaticAssigner returns a fixed variation for every user. Useful for
// rollouts driven purely by configuration, and for tests.
type StaticAssigner struct {
	Variation string
}

func (s StaticAssigner) Assign(ctx context.Context, userID int64, enrollmentMode string) (bool, string) {
	if s.Variation == "" {
		return false, ""
	}
	return true, s.Variation
}
