package documents

import (
	"context"
	"sort"
	"sync"
	"time"

	"recruit-backend/internal/audit"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	docs     map[string]Document
	grants   map[string]ShareGrant
	auditLog *audit.MemoryLog
}

// NewMemoryRepo constructs a MemoryRepo that appends audit events to log.
func NewMemoryRepo(log *audit.MemoryLog) *MemoryRepo {
	if log == nil {
		log = audit.NewMemoryLog()
	}
	return &MemoryRepo{
		docs:     make(map[string]Document),
		grants:   make(map[string]ShareGrant),
		auditLog: log,
	}
}

// Create stores a document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

// GetByID returns a non-deleted document.
func (r *MemoryRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.IsDeleted {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// ListByUploader returns documents for a user, newest first.
func (r *MemoryRepo) ListByUploader(ctx context.Context, uploaderUserID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.docs {
		if doc.UploaderUserID == uploaderUserID && !doc.IsDeleted {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []Document{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// UpdateExtraction stores the extracted text metadata for a document.
func (r *MemoryRepo) UpdateExtraction(ctx context.Context, documentID, extractedKey string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return ErrNotFound
	}
	if doc.ExtractedTextKey == "" {
		doc.ExtractedTextKey = extractedKey
		doc.ExtractedAt = &extractedAt
		r.docs[documentID] = doc
	}
	return nil
}

// SoftDelete marks a document deleted.
func (r *MemoryRepo) SoftDelete(ctx context.Context, documentID string, at time.Time, deletedBy string, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.IsDeleted {
		return ErrNotFound
	}
	deletedAt := at
	doc.IsDeleted = true
	doc.DeletedAt = &deletedAt
	doc.DeletedBy = deletedBy
	r.docs[documentID] = doc
	r.auditLog.Append(event)
	return nil
}

// CreateGrant stores a grant.
func (r *MemoryRepo) CreateGrant(ctx context.Context, grant ShareGrant, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[grant.ID] = grant
	r.auditLog.Append(event)
	return nil
}

// GetActiveGrant returns the unrevoked, unexpired grant for the pair.
func (r *MemoryRepo) GetActiveGrant(ctx context.Context, documentID, businessUserID string, now time.Time) (ShareGrant, error) {
	if err := ctx.Err(); err != nil {
		return ShareGrant{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.grants {
		if g.DocumentID == documentID && g.BusinessUserID == businessUserID && g.Active(now) {
			return g, nil
		}
	}
	return ShareGrant{}, ErrNotFound
}

// RevokeGrant records the revocation, retaining the row.
func (r *MemoryRepo) RevokeGrant(ctx context.Context, grantID string, at time.Time, revokedBy, reason string, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[grantID]
	if !ok || g.RevokedAt != nil {
		return ErrNotFound
	}
	revokedAt := at
	g.RevokedAt = &revokedAt
	g.RevokedByUserID = revokedBy
	g.RevocationReason = reason
	r.grants[grantID] = g
	r.auditLog.Append(event)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
