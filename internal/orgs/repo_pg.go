package orgs

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// IsStaff reports whether the user is an active member of the organization.
func (r *PGRepo) IsStaff(ctx context.Context, organizationID, userID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1
    FROM organization_members
    WHERE organization_id = $1 AND user_id = $2 AND removed_at IS NULL
)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, organizationID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

var _ Repo = (*PGRepo)(nil)
