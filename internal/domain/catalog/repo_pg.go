package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func NewRecordStore(pool *pgxpool.Pool) RecordStore {
	return &repoPG{pool: pool}
}

func (r *repoPG) Records(ctx context.Context, f Filter) ([]RecordRow, error) {
	q := newQueryBuilder()
	if f.PatientCode != "" {
		q.addEquality("p.patient_code", f.PatientCode)
	}
	if f.SessionDate != nil {
		q.addContainment("s.start_time", "s.end_time", *f.SessionDate)
	}
	if f.SessionID != 0 {
		q.addEquality("s.session_id", f.SessionID)
	}
	if f.Modality != "" {
		q.addEquality("r.modality", string(f.Modality))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT r.record_id
		FROM records r
		JOIN sessions s ON r.session_id = s.session_id
		JOIN patients p ON s.patient_id = p.patient_id
		WHERE 1=1`+q.Where(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecordRow
	for rows.Next() {
		var row RecordRow
		if err := rows.Scan(&row.RecordID); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *repoPG) Events(ctx context.Context, f Filter) ([]EventRow, error) {
	q := newQueryBuilder()
	if f.PatientCode != "" {
		q.addEquality("p.patient_code", f.PatientCode)
	}
	if f.SessionDate != nil {
		q.addContainment("s.start_time", "s.end_time", *f.SessionDate)
	}
	if f.SessionID != 0 {
		q.addEquality("s.session_id", f.SessionID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT e.event_id, e.onset_time, e.offset_time, e.annotations
		FROM events e
		JOIN sessions s ON e.session_id = s.session_id
		JOIN patients p ON s.patient_id = p.patient_id
		WHERE 1=1`+q.Where(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventRow
	for rows.Next() {
		var row EventRow
		if err := rows.Scan(&row.EventID, &row.OnsetTime, &row.OffsetTime, &row.Annotations); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *repoPG) ClassifiedEvents(ctx context.Context, f Filter) ([]ClassifiedEventRow, error) {
	q := newQueryBuilder()
	if f.PatientCode != "" {
		q.addEquality("p.patient_code", f.PatientCode)
	}
	if f.SessionDate != nil {
		q.addContainment("s.start_time", "s.end_time", *f.SessionDate)
	}
	if f.SessionID != 0 {
		q.addEquality("s.session_id", f.SessionID)
	}

	// With an event_types filter the join is restricted to the requested
	// names, so the aggregated list shows exactly the matched set and the
	// HAVING count enforces all-of. Without it, every linked name is listed.
	join := `JOIN event_seizure_types est ON est.event_id = e.event_id
		JOIN seizure_types st ON st.seizure_type_id = est.seizure_type_id`
	having := ""
	if len(f.EventTypes) > 0 {
		join += q.raw(" AND st.name = ANY($%d)", f.EventTypes)
		having = q.raw("HAVING COUNT(DISTINCT st.name) = $%d", len(f.EventTypes))
	}

	query := `
		SELECT e.event_id, e.onset_time, e.offset_time, e.annotations,
		       string_agg(DISTINCT st.name, ', ' ORDER BY st.name) AS seizure_types
		FROM events e
		JOIN sessions s ON e.session_id = s.session_id
		JOIN patients p ON s.patient_id = p.patient_id
		` + join + `
		WHERE 1=1` + q.Where() + `
		GROUP BY e.event_id, e.onset_time, e.offset_time, e.annotations
		` + having

	rows, err := r.pool.Query(ctx, query, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ClassifiedEventRow
	for rows.Next() {
		var row ClassifiedEventRow
		if err := rows.Scan(&row.EventID, &row.OnsetTime, &row.OffsetTime, &row.Annotations, &row.SeizureTypes); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *repoPG) Sessions(ctx context.Context, f Filter) ([]SessionRow, error) {
	q := newQueryBuilder()
	if f.PatientCode != "" {
		q.addEquality("p.patient_code", f.PatientCode)
	}
	if len(f.EventTypes) > 0 {
		q.addAllOfSeizureTypes("e.event_id", f.EventTypes)
	}
	if f.Modality != "" {
		q.addEquality("r.modality", string(f.Modality))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT s.session_id, s.hospital_code, s.start_time, s.end_time
		FROM sessions s
		JOIN patients p ON s.patient_id = p.patient_id
		JOIN events e ON s.session_id = e.session_id
		JOIN records r ON s.session_id = r.session_id
		WHERE 1=1`+q.Where(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.SessionID, &row.HospitalCode, &row.StartTime, &row.EndTime); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *repoPG) SessionsByPatient(ctx context.Context, patientCode string) ([]SessionIDRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.session_id
		FROM patients p
		JOIN sessions s ON p.patient_id = s.patient_id
		WHERE p.patient_code = $1`, patientCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionIDRow
	for rows.Next() {
		var row SessionIDRow
		if err := rows.Scan(&row.SessionID); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *repoPG) SessionByID(ctx context.Context, id int64) (*Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx, `
		SELECT session_id, patient_id, hospital_code, start_time, end_time
		FROM sessions
		WHERE session_id = $1`, id,
	).Scan(&s.ID, &s.PatientID, &s.HospitalCode, &s.StartTime, &s.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

const recordColumns = `record_id, session_id, modality, share_path, file_name, file_extension`

func (r *repoPG) RecordByID(ctx context.Context, id int64) (*Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM records WHERE record_id = $1`, id,
	).Scan(&rec.ID, &rec.SessionID, &rec.Modality, &rec.SharePath, &rec.FileName, &rec.FileExtension)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) RecordsByIDs(ctx context.Context, ids []int64) ([]*Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE record_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Modality, &rec.SharePath, &rec.FileName, &rec.FileExtension); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}
