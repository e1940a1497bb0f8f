package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"recruit-backend/internal/audit"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, uploader_user_id, file_name, mime_type, size_bytes, storage_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UploaderUserID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.CreatedAt,
	)
	return err
}

// GetByID returns a non-deleted document.
func (r *PGRepo) GetByID(ctx context.Context, documentID string) (Document, error) {
	const query = `
SELECT id, uploader_user_id, file_name, mime_type, size_bytes, storage_key, extracted_text_key, extracted_at, created_at
FROM documents
WHERE id = $1 AND is_deleted = FALSE
LIMIT 1`
	var doc Document
	var extractedKey sql.NullString
	var extractedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID,
		&doc.UploaderUserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&extractedKey,
		&extractedAt,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if extractedKey.Valid {
		doc.ExtractedTextKey = extractedKey.String
	}
	if extractedAt.Valid {
		doc.ExtractedAt = &extractedAt.Time
	}
	return doc, nil
}

// ListByUploader lists documents ordered newest-first.
func (r *PGRepo) ListByUploader(ctx context.Context, uploaderUserID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, uploader_user_id, file_name, mime_type, size_bytes, storage_key, extracted_text_key, extracted_at, created_at
FROM documents
WHERE uploader_user_id = $1 AND is_deleted = FALSE
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, uploaderUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var extractedKey sql.NullString
		var extractedAt sql.NullTime
		if err := rows.Scan(
			&doc.ID,
			&doc.UploaderUserID,
			&doc.FileName,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.StorageKey,
			&extractedKey,
			&extractedAt,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		if extractedKey.Valid {
			doc.ExtractedTextKey = extractedKey.String
		}
		if extractedAt.Valid {
			doc.ExtractedAt = &extractedAt.Time
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateExtraction stores the extracted text metadata for a document.
func (r *PGRepo) UpdateExtraction(ctx context.Context, documentID, extractedKey string, extractedAt time.Time) error {
	const query = `
UPDATE documents
SET extracted_text_key = $1, extracted_at = $2
WHERE id = $3 AND extracted_text_key IS NULL`
	_, err := r.DB.ExecContext(ctx, query, extractedKey, extractedAt, documentID)
	return err
}

// SoftDelete marks a document deleted with its audit event in one
// transaction.
func (r *PGRepo) SoftDelete(ctx context.Context, documentID string, at time.Time, deletedBy string, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE documents
SET is_deleted = TRUE, deleted_at = $1, deleted_by = $2
WHERE id = $3 AND is_deleted = FALSE`
	res, err := tx.ExecContext(ctx, query, at, deletedBy, documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateGrant inserts a grant with its audit event in one transaction.
func (r *PGRepo) CreateGrant(ctx context.Context, grant ShareGrant, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
INSERT INTO document_share_grants (
    id, document_id, candidate_user_id, business_user_id, application_id, document_request_id, granted_at, expires_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query,
		grant.ID,
		grant.DocumentID,
		grant.CandidateUserID,
		grant.BusinessUserID,
		nullStringPtr(grant.ApplicationID),
		nullStringPtr(grant.DocumentRequestID),
		grant.GrantedAt,
		nullTime(grant.ExpiresAt),
	); err != nil {
		return err
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// GetActiveGrant returns the unrevoked, unexpired grant for the pair.
func (r *PGRepo) GetActiveGrant(ctx context.Context, documentID, businessUserID string, now time.Time) (ShareGrant, error) {
	const query = `
SELECT id, document_id, candidate_user_id, business_user_id, application_id, document_request_id, granted_at, expires_at, revoked_at, revoked_by_user_id, revocation_reason
FROM document_share_grants
WHERE document_id = $1
  AND business_user_id = $2
  AND revoked_at IS NULL
  AND (expires_at IS NULL OR expires_at > $3)
LIMIT 1`
	var g ShareGrant
	var applicationID, requestID, revokedBy, reason sql.NullString
	var expiresAt, revokedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, documentID, businessUserID, now).Scan(
		&g.ID,
		&g.DocumentID,
		&g.CandidateUserID,
		&g.BusinessUserID,
		&applicationID,
		&requestID,
		&g.GrantedAt,
		&expiresAt,
		&revokedAt,
		&revokedBy,
		&reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ShareGrant{}, ErrNotFound
		}
		return ShareGrant{}, err
	}
	if applicationID.Valid {
		id := applicationID.String
		g.ApplicationID = &id
	}
	if requestID.Valid {
		id := requestID.String
		g.DocumentRequestID = &id
	}
	if expiresAt.Valid {
		g.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		g.RevokedAt = &revokedAt.Time
	}
	if revokedBy.Valid {
		g.RevokedByUserID = revokedBy.String
	}
	if reason.Valid {
		g.RevocationReason = reason.String
	}
	return g, nil
}

// RevokeGrant records the revocation with its audit event in one
// transaction.
func (r *PGRepo) RevokeGrant(ctx context.Context, grantID string, at time.Time, revokedBy, reason string, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE document_share_grants
SET revoked_at = $1, revoked_by_user_id = $2, revocation_reason = $3
WHERE id = $4 AND revoked_at IS NULL`
	res, err := tx.ExecContext(ctx, query, at, revokedBy, nullString(reason), grantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
