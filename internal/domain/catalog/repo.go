package catalog

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by SessionByID when no session matches.
var ErrSessionNotFound = errors.New("session not found")

// Repository executes the five query shapes against the store. Methods return
// the store's natural row order and an empty slice (not an error) for zero
// matches; the service layer owns the empty-vs-error distinction.
type Repository interface {
	// Records supports patient_code, session_date, session_id and modality.
	Records(ctx context.Context, f Filter) ([]RecordRow, error)

	// Events supports patient_code, session_date and session_id.
	Events(ctx context.Context, f Filter) ([]EventRow, error)

	// ClassifiedEvents additionally supports event_types (all-of) and
	// returns each event's sorted ", "-joined matched type names.
	ClassifiedEvents(ctx context.Context, f Filter) ([]ClassifiedEventRow, error)

	// Sessions supports patient_code, event_types (all-of) and modality.
	Sessions(ctx context.Context, f Filter) ([]SessionRow, error)

	// SessionsByPatient lists session ids for a patient code.
	SessionsByPatient(ctx context.Context, patientCode string) ([]SessionIDRow, error)

	// SessionByID resolves a session for the date-consistency gate.
	SessionByID(ctx context.Context, id int64) (*Session, error)
}

// RecordStore resolves record identifiers to their file metadata for the
// retrieval pipeline.
type RecordStore interface {
	RecordByID(ctx context.Context, id int64) (*Record, error)
	RecordsByIDs(ctx context.Context, ids []int64) ([]*Record, error)
}

// ErrRecordNotFound is returned by RecordByID when no record matches.
var ErrRecordNotFound = errors.New("record not found")
