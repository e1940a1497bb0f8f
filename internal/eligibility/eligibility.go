// Package eligibility defines the narrow read-only view of the hiring
// pipeline that other subsystems consult before allowing guarded actions.
// Keeping the interface at two methods is deliberate: dependents learn
// whether an action is permitted, never why, and get no write access.
package eligibility

import "context"

// Gate answers eligibility questions about an application without exposing
// pipeline internals.
type Gate interface {
	// IsApplicationInScreeningOrLater reports whether the application
	// belongs to the organization, is not deleted, and has progressed to
	// screening or beyond. Rejected and withdrawn applications are never
	// eligible regardless of how far they got before exiting.
	IsApplicationInScreeningOrLater(ctx context.Context, applicationID, organizationID string) (bool, error)

	// IsUserInApplication reports whether the user is the candidate on the
	// application or staff of the owning organization.
	IsUserInApplication(ctx context.Context, applicationID, organizationID, userID string) (bool, error)
}
