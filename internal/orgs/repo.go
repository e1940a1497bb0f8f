package orgs

import "context"

// Repo exposes organization staff membership reads. Identity and profile
// data live in an external system; this core only needs to know whether an
// opaque user ID is active staff of an organization.
type Repo interface {
	IsStaff(ctx context.Context, organizationID, userID string) (bool, error)
}
