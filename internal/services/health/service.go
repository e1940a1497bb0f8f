package health

import (
	"context"
	"database/sql"
	"time"
)

// Service reports process liveness and database reachability.
type Service struct {
	db      *sql.DB
	started time.Time
	now     func() time.Time
}

// NewService constructs a health service. db may be nil when the process runs
// on in-memory repositories.
func NewService(db *sql.DB) *Service {
	return &Service{
		db:      db,
		started: time.Now().UTC(),
		now:     time.Now,
	}
}

// Status returns the health payload served on /health.
func (s *Service) Status(ctx context.Context) map[string]any {
	payload := map[string]any{
		"ok":            true,
		"uptimeSeconds": int64(s.now().UTC().Sub(s.started) / time.Second),
	}
	if s.db == nil {
		payload["database"] = "memory"
		return payload
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		payload["ok"] = false
		payload["database"] = "unreachable"
		return payload
	}
	payload["database"] = "ok"
	return payload
}
