package models

// Enrollment modes recognized by the access policy. The set of mode strings
// is owned by the platform; the assistant only branches on the family.
const (
	ModeVerified         = "verified"
	ModeCredit           = "credit"
	ModeNoIDProfessional = "no-id-professional"
	ModeAudit            = "audit"
	ModeHonor            = "honor"
)

var verifiedModes = map[string]struct{}{
	ModeVerified:         {},
	ModeCredit:           {},
	ModeNoIDProfessional: {},
}

var auditModes = map[string]struct{}{
	ModeAudit: {},
	ModeHonor: {},
}

// IsVerifiedMode reports whether the mode grants full, non-time-boxed access.
func IsVerifiedMode(mode string) bool {
	_, ok := verifiedModes[mode]
	return ok
}

// IsAuditMode reports whether the mode grants trial-gated access.
func IsAuditMode(mode string) bool {
	_, ok := auditModes[mode]
	return ok
}

// IsStaffRole reports whether the course role bypasses enrollment checks.
func IsStaffRole(role string) bool {
	return role == "staff" || role == "instructor"
}
