package importer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preepi/recordings/internal/domain/catalog"
)

type storePG struct {
	pool *pgxpool.Pool
}

// NewStore returns a PostgreSQL-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) InsertPatient(ctx context.Context, p *catalog.Patient) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO patients (patient_code, laterality, common_auras, comorbidities)
		 VALUES ($1, $2, $3, $4) RETURNING patient_id`,
		p.PatientCode, p.Laterality, p.CommonAuras, p.Comorbid).Scan(&id)
	return id, err
}

func (s *storePG) GetOrCreateDiagnosis(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO diagnoses (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING diagnosis_id`, name).Scan(&id)
	return id, err
}

func (s *storePG) LinkPatientDiagnosis(ctx context.Context, patientID, diagnosisID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO patient_diagnoses (patient_id, diagnosis_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, patientID, diagnosisID)
	return err
}

func (s *storePG) PatientIDByCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT patient_id FROM patients WHERE patient_code = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoMatch
	}
	return id, err
}

func (s *storePG) InsertSession(ctx context.Context, sess *catalog.Session) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (patient_id, hospital_code, start_time, end_time)
		 VALUES ($1, $2, $3, $4) RETURNING session_id`,
		sess.PatientID, sess.HospitalCode, sess.StartTime, sess.EndTime).Scan(&id)
	return id, err
}

func (s *storePG) SessionIDForTime(ctx context.Context, patientCode string, t time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT s.session_id
		 FROM sessions s
		 JOIN patients p ON s.patient_id = p.patient_id
		 WHERE p.patient_code = $1 AND s.start_time <= $2 AND s.end_time > $3`,
		patientCode, t, t).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoMatch
	}
	return id, err
}

func (s *storePG) FirstSessionIDByPatient(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT s.session_id
		 FROM sessions s
		 JOIN patients p ON s.patient_id = p.patient_id
		 WHERE p.patient_code = $1
		 ORDER BY s.session_id
		 LIMIT 1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoMatch
	}
	return id, err
}

func (s *storePG) GetOrCreateSeizureType(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO seizure_types (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING seizure_type_id`, name).Scan(&id)
	return id, err
}

func (s *storePG) InsertEvent(ctx context.Context, e *catalog.Event) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (session_id, onset_time, offset_time, annotations)
		 VALUES ($1, $2, $3, $4) RETURNING event_id`,
		e.SessionID, e.OnsetTime, e.OffsetTime, e.Annotations).Scan(&id)
	return id, err
}

func (s *storePG) LinkEventSeizureType(ctx context.Context, eventID, seizureTypeID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO event_seizure_types (event_id, seizure_type_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventID, seizureTypeID)
	return err
}

func (s *storePG) InsertRecord(ctx context.Context, r *catalog.Record) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO records (session_id, modality, share_path, file_name, file_extension)
		 VALUES ($1, $2, $3, $4, $5) RETURNING record_id`,
		r.SessionID, r.Modality, r.SharePath, r.FileName, r.FileExtension).Scan(&id)
	return id, err
}
