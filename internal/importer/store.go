package importer

import (
	"context"
	"errors"
	"time"

	"github.com/preepi/recordings/internal/domain/catalog"
)

// ErrNoMatch is returned by lookup methods when no row matches.
var ErrNoMatch = errors.New("no matching row")

// Store is the write side of the metadata schema, used only by the import
// commands. The serving API stays read-only.
type Store interface {
	InsertPatient(ctx context.Context, p *catalog.Patient) (int64, error)
	GetOrCreateDiagnosis(ctx context.Context, name string) (int64, error)
	LinkPatientDiagnosis(ctx context.Context, patientID, diagnosisID int64) error

	PatientIDByCode(ctx context.Context, code string) (int64, error)
	InsertSession(ctx context.Context, s *catalog.Session) (int64, error)

	// SessionIDForTime resolves the session containing t for a patient,
	// over the half-open [start, end) interval.
	SessionIDForTime(ctx context.Context, patientCode string, t time.Time) (int64, error)
	FirstSessionIDByPatient(ctx context.Context, code string) (int64, error)

	GetOrCreateSeizureType(ctx context.Context, name string) (int64, error)
	InsertEvent(ctx context.Context, e *catalog.Event) (int64, error)
	LinkEventSeizureType(ctx context.Context, eventID, seizureTypeID int64) error

	InsertRecord(ctx context.Context, r *catalog.Record) (int64, error)
}
