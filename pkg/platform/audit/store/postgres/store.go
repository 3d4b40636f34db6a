// Package postgres persists audit entries in the audit_entries table.
// Insert-only: the table carries no UPDATE or DELETE path in this codebase.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/audit"
	txcontext "veristay/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins an ambient transaction when the caller started one, so a
// document mutation and its audit entry can commit together where supported.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO audit_entries (
			id, subject_id, actor_id, action, reason, document_id,
			provider_ref, subject_id_hash, token, request_ip, user_agent,
			request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var actorID, documentID *uuid.UUID
	if !entry.ActorID.IsNil() {
		a := uuid.UUID(entry.ActorID)
		actorID = &a
	}
	if !entry.DocumentID.IsNil() {
		d := uuid.UUID(entry.DocumentID)
		documentID = &d
	}

	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.SubjectID),
		actorID,
		string(entry.Action),
		entry.Reason,
		documentID,
		entry.ProviderRef,
		entry.SubjectIDHash,
		entry.Token,
		entry.RequestIP,
		entry.UserAgent,
		entry.RequestID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject id.SubjectID) ([]audit.Entry, error) {
	return s.list(ctx, subject, nil)
}

func (s *Store) ListBySubjectActions(ctx context.Context, subject id.SubjectID, actions []audit.Action) ([]audit.Entry, error) {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return s.list(ctx, subject, names)
}

func (s *Store) list(ctx context.Context, subject id.SubjectID, actions []string) ([]audit.Entry, error) {
	query := `
		SELECT id, subject_id, actor_id, action, reason, document_id,
		       provider_ref, subject_id_hash, token, request_ip, user_agent,
		       request_id, created_at
		FROM audit_entries
		WHERE subject_id = $1
	`
	args := []any{uuid.UUID(subject)}
	if len(actions) > 0 {
		query += ` AND action = ANY($2)`
		args = append(args, pq.Array(actions))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			subjectID  uuid.UUID
			actorID    *uuid.UUID
			documentID *uuid.UUID
			action     string
		)
		if err := rows.Scan(
			&e.ID, &subjectID, &actorID, &action, &e.Reason, &documentID,
			&e.ProviderRef, &e.SubjectIDHash, &e.Token, &e.RequestIP,
			&e.UserAgent, &e.RequestID, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.SubjectID = id.SubjectID(subjectID)
		e.Action = audit.Action(action)
		if actorID != nil {
			e.ActorID = id.AdminID(*actorID)
		}
		if documentID != nil {
			e.DocumentID = id.DocumentID(*documentID)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
