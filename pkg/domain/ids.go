// Package domain holds the value types shared across verification tracks:
// typed identifiers, the canonical verification state, and the enums that
// describe documents and track events.
//
// Typed IDs wrap uuid.UUID so a SubjectID can never be passed where a
// DocumentID is expected. Construct them via the Parse functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "veristay/pkg/domain-errors"
)

// SubjectID identifies the user whose trust status is evaluated.
type SubjectID uuid.UUID

// AdminID identifies an administrator acting on a subject's records.
type AdminID uuid.UUID

// DocumentID identifies a single submitted document.
type DocumentID uuid.UUID

func (id SubjectID) String() string  { return uuid.UUID(id).String() }
func (id AdminID) String() string    { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id SubjectID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders IDs as canonical UUID strings in JSON; the nil ID
// renders empty rather than as the nil UUID.
func (id SubjectID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id AdminID) MarshalText() ([]byte, error)    { return marshalID(uuid.UUID(id)) }
func (id DocumentID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }

func (id *SubjectID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = SubjectID(u)
	return err
}

func (id *AdminID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = AdminID(u)
	return err
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = DocumentID(u)
	return err
}

func marshalID(u uuid.UUID) ([]byte, error) {
	if u == uuid.Nil {
		return nil, nil
	}
	return []byte(u.String()), nil
}

func unmarshalID(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(b))
}

// NewSubjectID returns a fresh random SubjectID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// ParseSubjectID constructs a SubjectID from external input.
// Errors with CodeInvalidInput when the value is empty, malformed, or nil.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseID(s, "subject id")
	return SubjectID(u), err
}

// ParseAdminID constructs an AdminID from external input.
func ParseAdminID(s string) (AdminID, error) {
	u, err := parseID(s, "admin id")
	return AdminID(u), err
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseID(s, "document id")
	return DocumentID(u), err
}

func parseID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be the nil UUID")
	}
	return u, nil
}
