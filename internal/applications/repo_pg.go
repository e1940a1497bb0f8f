package applications

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

const applicationColumns = `
id, job_id, candidate_id, organization_id, status, rejection_reason,
applied_at, screened_at, interviewed_at, offered_at, prehire_started_at,
hired_at, rejected_at, withdrawn_at,
version, is_deleted, deleted_at, deleted_by, created_at, updated_at`

// Create inserts the application, its creation history row, and the audit
// event in one transaction.
func (r *PGRepo) Create(ctx context.Context, app Application, history StatusHistory, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const existsQuery = `
SELECT EXISTS (
    SELECT 1 FROM applications
    WHERE job_id = $1 AND candidate_id = $2 AND status <> $3 AND is_deleted = FALSE
)`
	var exists bool
	if err := tx.QueryRowContext(ctx, existsQuery, app.JobID, app.CandidateID, StatusWithdrawn).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyApplied
	}

	const insertQuery = `
INSERT INTO applications (
    id, job_id, candidate_id, organization_id, status, applied_at, version, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, insertQuery,
		app.ID,
		app.JobID,
		app.CandidateID,
		app.OrganizationID,
		app.Status,
		app.AppliedAt,
		app.Version,
		app.CreatedAt,
		app.UpdatedAt,
	); err != nil {
		return err
	}

	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID returns a non-deleted application.
func (r *PGRepo) GetByID(ctx context.Context, applicationID string) (Application, error) {
	const query = `
SELECT ` + applicationColumns + `
FROM applications
WHERE id = $1 AND is_deleted = FALSE
LIMIT 1`
	return scanApplication(r.DB.QueryRowContext(ctx, query, applicationID))
}

// UpdateStatus applies a version-stamped status update with its history row
// and audit event, all in one transaction. Zero rows affected means the
// stored version moved under us.
func (r *PGRepo) UpdateStatus(ctx context.Context, app Application, expectedVersion int, history StatusHistory, event audit.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE applications
SET status = $1,
    rejection_reason = $2,
    screened_at = $3,
    interviewed_at = $4,
    offered_at = $5,
    prehire_started_at = $6,
    hired_at = $7,
    rejected_at = $8,
    withdrawn_at = $9,
    version = $10,
    updated_at = $11
WHERE id = $12 AND version = $13 AND is_deleted = FALSE`
	res, err := tx.ExecContext(ctx, query,
		app.Status,
		nullString(app.RejectionReason),
		nullTime(app.ScreenedAt),
		nullTime(app.InterviewedAt),
		nullTime(app.OfferedAt),
		nullTime(app.PreHireStartedAt),
		nullTime(app.HiredAt),
		nullTime(app.RejectedAt),
		nullTime(app.WithdrawnAt),
		app.Version,
		app.UpdatedAt,
		app.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}

	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}
	if err := audit.Insert(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// CreatePreHireConfirmation inserts the confirmation unless one is already
// on record, returning whichever ends up stored.
func (r *PGRepo) CreatePreHireConfirmation(ctx context.Context, conf PreHireConfirmation, event audit.Event) (PreHireConfirmation, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return PreHireConfirmation{}, err
	}
	defer tx.Rollback()

	const insertQuery = `
INSERT INTO prehire_confirmations (
    id, application_id, confirmed_by_user_id, right_to_work_confirmed, confirmation_text, text_version, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (application_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insertQuery,
		conf.ID,
		conf.ApplicationID,
		conf.ConfirmedByUserID,
		conf.RightToWorkConfirmed,
		conf.ConfirmationText,
		conf.TextVersion,
		conf.CreatedAt,
	)
	if err != nil {
		return PreHireConfirmation{}, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return PreHireConfirmation{}, err
	}
	if inserted == 0 {
		// First write won; surface the stored record untouched.
		stored, err := getPreHireConfirmation(ctx, tx, conf.ApplicationID)
		if err != nil {
			return PreHireConfirmation{}, err
		}
		if err := tx.Commit(); err != nil {
			return PreHireConfirmation{}, err
		}
		return stored, nil
	}

	if err := audit.Insert(ctx, tx, event); err != nil {
		return PreHireConfirmation{}, err
	}
	if err := tx.Commit(); err != nil {
		return PreHireConfirmation{}, err
	}
	return conf, nil
}

// GetPreHireConfirmation returns the confirmation for an application.
func (r *PGRepo) GetPreHireConfirmation(ctx context.Context, applicationID string) (PreHireConfirmation, error) {
	return getPreHireConfirmation(ctx, r.DB, applicationID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPreHireConfirmation(ctx context.Context, q queryRower, applicationID string) (PreHireConfirmation, error) {
	const query = `
SELECT id, application_id, confirmed_by_user_id, right_to_work_confirmed, confirmation_text, text_version, created_at
FROM prehire_confirmations
WHERE application_id = $1
LIMIT 1`
	var conf PreHireConfirmation
	err := q.QueryRowContext(ctx, query, applicationID).Scan(
		&conf.ID,
		&conf.ApplicationID,
		&conf.ConfirmedByUserID,
		&conf.RightToWorkConfirmed,
		&conf.ConfirmationText,
		&conf.TextVersion,
		&conf.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PreHireConfirmation{}, ErrNotFound
		}
		return PreHireConfirmation{}, err
	}
	return conf, nil
}

// History returns transition records, newest first.
func (r *PGRepo) History(ctx context.Context, applicationID string) ([]StatusHistory, error) {
	const query = `
SELECT id, application_id, from_status, to_status, actor_id, note, prehire_flagged, prehire_text, created_at
FROM application_status_history
WHERE application_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusHistory
	for rows.Next() {
		var h StatusHistory
		var fromStatus sql.NullString
		var note sql.NullString
		var preHireText sql.NullString
		if err := rows.Scan(
			&h.ID,
			&h.ApplicationID,
			&fromStatus,
			&h.ToStatus,
			&h.ActorID,
			&note,
			&h.PreHireFlagged,
			&preHireText,
			&h.CreatedAt,
		); err != nil {
			return nil, err
		}
		if fromStatus.Valid {
			from := Status(fromStatus.String)
			h.FromStatus = &from
		}
		if note.Valid {
			h.Note = note.String
		}
		if preHireText.Valid {
			h.PreHireText = preHireText.String
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func insertHistory(ctx context.Context, ex audit.Execer, h StatusHistory) error {
	const query = `
INSERT INTO application_status_history (
    id, application_id, from_status, to_status, actor_id, note, prehire_flagged, prehire_text, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var fromStatus sql.NullString
	if h.FromStatus != nil {
		fromStatus = sql.NullString{String: string(*h.FromStatus), Valid: true}
	}
	_, err := ex.ExecContext(ctx, query,
		h.ID,
		h.ApplicationID,
		fromStatus,
		h.ToStatus,
		h.ActorID,
		nullString(h.Note),
		h.PreHireFlagged,
		nullString(h.PreHireText),
		h.CreatedAt,
	)
	return err
}

func scanApplication(row *sql.Row) (Application, error) {
	var app Application
	var rejectionReason sql.NullString
	var screenedAt, interviewedAt, offeredAt, preHireStartedAt sql.NullTime
	var hiredAt, rejectedAt, withdrawnAt, deletedAt sql.NullTime
	var deletedBy sql.NullString
	err := row.Scan(
		&app.ID,
		&app.JobID,
		&app.CandidateID,
		&app.OrganizationID,
		&app.Status,
		&rejectionReason,
		&app.AppliedAt,
		&screenedAt,
		&interviewedAt,
		&offeredAt,
		&preHireStartedAt,
		&hiredAt,
		&rejectedAt,
		&withdrawnAt,
		&app.Version,
		&app.IsDeleted,
		&deletedAt,
		&deletedBy,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	if rejectionReason.Valid {
		app.RejectionReason = rejectionReason.String
	}
	app.ScreenedAt = timePtr(screenedAt)
	app.InterviewedAt = timePtr(interviewedAt)
	app.OfferedAt = timePtr(offeredAt)
	app.PreHireStartedAt = timePtr(preHireStartedAt)
	app.HiredAt = timePtr(hiredAt)
	app.RejectedAt = timePtr(rejectedAt)
	app.WithdrawnAt = timePtr(withdrawnAt)
	app.DeletedAt = timePtr(deletedAt)
	if deletedBy.Valid {
		app.DeletedBy = deletedBy.String
	}
	return app, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

var _ Repo = (*PGRepo)(nil)
