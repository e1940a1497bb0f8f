package applications

import (
	"context"
	"sort"
	"sync"

	"recruit-backend/internal/audit"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu            sync.RWMutex
	apps          map[string]Application
	history       map[string][]StatusHistory // applicationId -> rows
	confirmations map[string]PreHireConfirmation
	auditLog      *audit.MemoryLog
}

// NewMemoryRepo constructs a MemoryRepo that appends audit events to log.
func NewMemoryRepo(log *audit.MemoryLog) *MemoryRepo {
	if log == nil {
		log = audit.NewMemoryLog()
	}
	return &MemoryRepo{
		apps:          make(map[string]Application),
		history:       make(map[string][]StatusHistory),
		confirmations: make(map[string]PreHireConfirmation),
		auditLog:      log,
	}
}

// Create stores the application with its creation history row.
func (r *MemoryRepo) Create(ctx context.Context, app Application, history StatusHistory, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.JobID == app.JobID && existing.CandidateID == app.CandidateID &&
			existing.Status != StatusWithdrawn && !existing.IsDeleted {
			return ErrAlreadyApplied
		}
	}
	r.apps[app.ID] = app
	r.history[app.ID] = append(r.history[app.ID], history)
	r.auditLog.Append(event)
	return nil
}

// GetByID returns a non-deleted application.
func (r *MemoryRepo) GetByID(ctx context.Context, applicationID string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[applicationID]
	if !ok || app.IsDeleted {
		return Application{}, ErrNotFound
	}
	return app, nil
}

// UpdateStatus applies a version-checked update with its history row.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, app Application, expectedVersion int, history StatusHistory, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.apps[app.ID]
	if !ok || stored.IsDeleted {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrConflict
	}
	r.apps[app.ID] = app
	r.history[app.ID] = append(r.history[app.ID], history)
	r.auditLog.Append(event)
	return nil
}

// CreatePreHireConfirmation stores the confirmation unless one exists.
func (r *MemoryRepo) CreatePreHireConfirmation(ctx context.Context, conf PreHireConfirmation, event audit.Event) (PreHireConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return PreHireConfirmation{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.confirmations[conf.ApplicationID]; ok {
		return stored, nil
	}
	r.confirmations[conf.ApplicationID] = conf
	r.auditLog.Append(event)
	return conf, nil
}

// GetPreHireConfirmation returns the confirmation for an application.
func (r *MemoryRepo) GetPreHireConfirmation(ctx context.Context, applicationID string) (PreHireConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return PreHireConfirmation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	conf, ok := r.confirmations[applicationID]
	if !ok {
		return PreHireConfirmation{}, ErrNotFound
	}
	return conf, nil
}

// History returns transition rows, newest first.
func (r *MemoryRepo) History(ctx context.Context, applicationID string) ([]StatusHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rows := r.history[applicationID]
	r.mu.RUnlock()

	out := make([]StatusHistory, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
