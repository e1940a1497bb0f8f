package documents

import "time"

// Document represents an uploaded document owned by a candidate user.
type Document struct {
	ID               string
	UploaderUserID   string
	FileName         string
	MimeType         string
	SizeBytes        int64
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	IsDeleted        bool
	DeletedAt        *time.Time
	DeletedBy        string
	CreatedAt        time.Time
}

// ShareGrant authorizes one business-side user to fetch one document.
// Revocation retires the row without deleting it; at most one active grant
// exists per (document, business user) pair.
type ShareGrant struct {
	ID                string
	DocumentID        string
	CandidateUserID   string
	BusinessUserID    string
	ApplicationID     *string
	DocumentRequestID *string
	GrantedAt         time.Time
	ExpiresAt         *time.Time
	RevokedAt         *time.Time
	RevokedByUserID   string
	RevocationReason  string
}

// Active reports whether the grant is unrevoked and unexpired at now.
func (g ShareGrant) Active(now time.Time) bool {
	if g.RevokedAt != nil {
		return false
	}
	if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
		return false
	}
	return true
}
