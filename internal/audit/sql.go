package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Execer is satisfied by both *sql.DB and *sql.Tx. Repos pass their open
// transaction so the event commits atomically with the primary write.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert appends an event to the audit log. Missing ID and CreatedAt are
// filled in; the table has no UPDATE or DELETE path.
func Insert(ctx context.Context, ex Execer, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO audit_events (id, organization_id, actor_id, action, entity_type, entity_id, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var details sql.NullString
	if e.Details != "" {
		details = sql.NullString{String: e.Details, Valid: true}
	}
	_, err := ex.ExecContext(ctx, query,
		e.ID,
		e.OrganizationID,
		e.ActorID,
		e.Action,
		e.EntityType,
		e.EntityID,
		details,
		e.CreatedAt,
	)
	return err
}
