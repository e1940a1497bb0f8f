package orgs

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	staff map[string]map[string]bool // organizationId -> userId -> active
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		staff: make(map[string]map[string]bool),
	}
}

// AddStaff marks a user as active staff of an organization.
func (r *MemoryRepo) AddStaff(organizationID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staff[organizationID] == nil {
		r.staff[organizationID] = make(map[string]bool)
	}
	r.staff[organizationID][userID] = true
}

// RemoveStaff deactivates a membership.
func (r *MemoryRepo) RemoveStaff(organizationID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.staff[organizationID]; ok {
		members[userID] = false
	}
}

// IsStaff reports whether the user is an active member of the organization.
func (r *MemoryRepo) IsStaff(ctx context.Context, organizationID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.staff[organizationID][userID], nil
}

var _ Repo = (*MemoryRepo)(nil)
