package subject

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

// PostgresStore persists subjects in the subjects table. The track event log
// is a jsonb column; the version column backs optimistic concurrency.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, sub *Subject) error {
	events, err := json.Marshal(sub.TrackEvents)
	if err != nil {
		return fmt.Errorf("marshal track events: %w", err)
	}
	identity, address, property, aadhaar, err := marshalRecords(sub)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		INSERT INTO subjects (
			id, email, is_owner, identity, address, property, aadhaar,
			state, track_events, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(sub.ID), sub.Email, sub.IsOwner,
		identity, address, property, aadhaar,
		string(sub.State), events, now,
	)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	sub.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, subjectID id.SubjectID) (*Subject, error) {
	query := `
		SELECT id, email, is_owner, identity, address, property, aadhaar,
		       state, track_events, version, created_at, updated_at
		FROM subjects
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(subjectID))

	var (
		sub                                  Subject
		rawID                                uuid.UUID
		identity, address, property, aadhaar []byte
		events                               []byte
		state                                string
	)
	err := row.Scan(&rawID, &sub.Email, &sub.IsOwner,
		&identity, &address, &property, &aadhaar,
		&state, &events, &sub.Version, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subject %s: %w", subjectID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find subject: %w", err)
	}

	sub.ID = id.SubjectID(rawID)
	sub.State = id.VerificationState(state)
	if err := json.Unmarshal(events, &sub.TrackEvents); err != nil {
		return nil, fmt.Errorf("unmarshal track events: %w", err)
	}
	if err := json.Unmarshal(identity, &sub.Identity); err != nil {
		return nil, fmt.Errorf("unmarshal identity record: %w", err)
	}
	if err := json.Unmarshal(address, &sub.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address record: %w", err)
	}
	if err := json.Unmarshal(property, &sub.Property); err != nil {
		return nil, fmt.Errorf("unmarshal property record: %w", err)
	}
	if err := json.Unmarshal(aadhaar, &sub.Aadhaar); err != nil {
		return nil, fmt.Errorf("unmarshal aadhaar record: %w", err)
	}
	return &sub, nil
}

// Update writes the subject back iff the stored version still matches,
// incrementing it atomically. A stale version yields sentinel.ErrConflict so
// the trust service can reload and retry.
func (s *PostgresStore) Update(ctx context.Context, sub *Subject) error {
	events, err := json.Marshal(sub.TrackEvents)
	if err != nil {
		return fmt.Errorf("marshal track events: %w", err)
	}
	identity, address, property, aadhaar, err := marshalRecords(sub)
	if err != nil {
		return err
	}

	query := `
		UPDATE subjects
		SET email = $3, is_owner = $4, identity = $5, address = $6,
		    property = $7, aadhaar = $8, state = $9, track_events = $10,
		    version = version + 1, updated_at = $11
		WHERE id = $1 AND version = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(sub.ID), sub.Version,
		sub.Email, sub.IsOwner, identity, address, property, aadhaar,
		string(sub.State), events, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subject rows: %w", err)
	}
	if affected == 0 {
		// Distinguish a vanished subject from a stale version.
		var exists bool
		check := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1)`, uuid.UUID(sub.ID))
		if err := check.Scan(&exists); err != nil {
			return fmt.Errorf("check subject existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("subject %s: %w", sub.ID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("subject %s version %d: %w", sub.ID, sub.Version, sentinel.ErrConflict)
	}
	sub.Version++
	return nil
}

func marshalRecords(sub *Subject) (identity, address, property, aadhaar []byte, err error) {
	if identity, err = json.Marshal(sub.Identity); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal identity record: %w", err)
	}
	if address, err = json.Marshal(sub.Address); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal address record: %w", err)
	}
	if property, err = json.Marshal(sub.Property); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal property record: %w", err)
	}
	if aadhaar, err = json.Marshal(sub.Aadhaar); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal aadhaar record: %w", err)
	}
	return identity, address, property, aadhaar, nil
}
