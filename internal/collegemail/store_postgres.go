package collegemail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

// PostgresStore persists records in the email_verifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	token, owner_id, claimed_email, domain, status, verified, verified_at,
	decided_by, rejection_reason, expires_at, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	now := time.Now()
	query := `
		INSERT INTO email_verifications (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.Token, uuid.UUID(rec.OwnerID), rec.ClaimedEmail, rec.Domain,
		string(rec.Status), rec.Verified, rec.VerifiedAt,
		nullableAdmin(rec.DecidedBy), rec.RejectionReason,
		rec.ExpiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("insert email verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM email_verifications WHERE token = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email verification token: %w", sentinel.ErrNotFound)
	}
	return rec, err
}

// MarkVerified flips verified in one statement so concurrent confirms of the
// same token race safely: exactly one caller sees first=true.
func (s *PostgresStore) MarkVerified(ctx context.Context, token string, status Status, at time.Time) (*Record, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE email_verifications
		SET verified = TRUE, verified_at = $2, status = $3, updated_at = $2
		WHERE token = $1 AND verified = FALSE
	`, token, at, string(status))
	if err != nil {
		return nil, false, fmt.Errorf("mark email verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("mark email verified: %w", err)
	}
	rec, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, false, err
	}
	return rec, affected == 1, nil
}

// Update writes the record guarded by the status the caller read. Zero rows
// affected means a concurrent writer changed the record first, or the row is
// gone; a follow-up read tells the two apart.
func (s *PostgresStore) Update(ctx context.Context, rec *Record, from Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE email_verifications
		SET status = $2, verified = $3, verified_at = $4, decided_by = $5,
		    rejection_reason = $6, updated_at = $7
		WHERE token = $1 AND status = $8
	`, rec.Token, string(rec.Status), rec.Verified, rec.VerifiedAt,
		nullableAdmin(rec.DecidedBy), rec.RejectionReason, time.Now(), string(from))
	if err != nil {
		return fmt.Errorf("update email verification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update email verification: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM email_verifications WHERE token = $1`, rec.Token).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("email verification token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("resolve guarded email verification write: %w", err)
	}
	return fmt.Errorf("email verification is %s: %w", status, sentinel.ErrConflict)
}

func (s *PostgresStore) FindPendingAdmin(ctx context.Context, owner id.SubjectID) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM email_verifications
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(owner), string(StatusPendingAdmin)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending email verification: %w", sentinel.ErrNotFound)
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec      Record
		owner    uuid.UUID
		status   string
		decider  *uuid.UUID
	)
	err := row.Scan(&rec.Token, &owner, &rec.ClaimedEmail, &rec.Domain,
		&status, &rec.Verified, &rec.VerifiedAt, &decider,
		&rec.RejectionReason, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan email verification: %w", err)
	}
	rec.OwnerID = id.SubjectID(owner)
	rec.Status = Status(status)
	if decider != nil {
		rec.DecidedBy = id.AdminID(*decider)
	}
	return &rec, nil
}

func nullableAdmin(admin id.AdminID) *uuid.UUID {
	if admin.IsNil() {
		return nil
	}
	u := uuid.UUID(admin)
	return &u
}
