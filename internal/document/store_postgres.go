package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
	txcontext "veristay/pkg/platform/tx"
)

// PostgresStore persists documents in the documents table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `
	id, owner_id, doc_type, category, status, evidence_ref, property_ref,
	reviewer_id, reviewed_at, rejection_reason, expires_at, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, doc *Document) error {
	now := time.Now()
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID), uuid.UUID(doc.OwnerID),
		string(doc.Type), string(doc.Category), string(doc.Status),
		doc.EvidenceRef, doc.PropertyRef,
		nullableAdmin(doc.ReviewerID), doc.ReviewedAt, doc.RejectionReason,
		doc.ExpiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, uuid.UUID(docID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	return doc, err
}

// Update writes the mutable review fields, guarded by the status the caller
// read. Zero rows affected means another writer won the race (or the row is
// gone); resolveGuarded tells the two apart.
func (s *PostgresStore) Update(ctx context.Context, doc *Document, from id.DocumentStatus) error {
	query := `
		UPDATE documents
		SET status = $2, reviewer_id = $3, reviewed_at = $4,
		    rejection_reason = $5, evidence_ref = $6, expires_at = $7,
		    updated_at = $8
		WHERE id = $1 AND status = $9
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID), string(doc.Status),
		nullableAdmin(doc.ReviewerID), doc.ReviewedAt, doc.RejectionReason,
		doc.EvidenceRef, doc.ExpiresAt, time.Now(), string(from),
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return s.resolveGuarded(ctx, res, doc.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, docID id.DocumentID, from id.DocumentStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND status = $2`,
		uuid.UUID(docID), string(from))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return s.resolveGuarded(ctx, res, docID)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.SubjectID) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByStatus(ctx context.Context, owner id.SubjectID) (map[id.DocumentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM documents WHERE owner_id = $1 GROUP BY status`,
		uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[id.DocumentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan document count: %w", err)
		}
		counts[id.DocumentStatus(status)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc              Document
		rawID, rawOwner  uuid.UUID
		docType          string
		category, status string
		reviewer         *uuid.UUID
	)
	err := row.Scan(&rawID, &rawOwner, &docType, &category, &status,
		&doc.EvidenceRef, &doc.PropertyRef, &reviewer, &doc.ReviewedAt,
		&doc.RejectionReason, &doc.ExpiresAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ID = id.DocumentID(rawID)
	doc.OwnerID = id.SubjectID(rawOwner)
	doc.Type = id.DocumentType(docType)
	doc.Category = id.DocumentCategory(category)
	doc.Status = id.DocumentStatus(status)
	if reviewer != nil {
		doc.ReviewerID = id.AdminID(*reviewer)
	}
	return &doc, nil
}

func nullableAdmin(admin id.AdminID) *uuid.UUID {
	if admin.IsNil() {
		return nil
	}
	u := uuid.UUID(admin)
	return &u
}

func (s *PostgresStore) resolveGuarded(ctx context.Context, res sql.Result, docID id.DocumentID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("document rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM documents WHERE id = $1`, uuid.UUID(docID)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("resolve guarded document write: %w", err)
	}
	return fmt.Errorf("document %s is %s: %w", docID, status, sentinel.ErrConflict)
}
