// Package importer populates the metadata schema from clinician-maintained
// CSV exports and from a scan of the file share. Rows that cannot be resolved
// are logged and skipped; a bad row never aborts the run.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/preepi/recordings/internal/domain/catalog"
	"github.com/preepi/recordings/internal/platform/fileshare"
)

// Importer runs the CSV and share-scan imports.
type Importer struct {
	store Store
	share fileshare.Share
	log   zerolog.Logger
}

func New(store Store, share fileshare.Share, log zerolog.Logger) *Importer {
	return &Importer{store: store, share: share, log: log}
}

// Result counts the outcome of an import run.
type Result struct {
	Imported int
	Skipped  int
}

// csvRows reads a headered CSV and yields each row as a header-keyed map.
func csvRows(r io.Reader, fn func(row map[string]string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // clinician exports are occasionally ragged
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading csv header: %w", err)
	}

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading csv row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[strings.TrimSpace(name)] = strings.TrimSpace(fields[i])
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Patients imports patient rows with their comma-separated diagnosis list.
// Diagnoses are created on first use, lower-cased.
func (imp *Importer) Patients(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := csvRows(r, func(row map[string]string) error {
		code := row["patient_code"]
		if code == "" {
			imp.log.Warn().Msg("skipping patient row without patient_code")
			res.Skipped++
			return nil
		}

		patient := &catalog.Patient{
			PatientCode: code,
			Laterality:  optional(row["laterality"]),
			CommonAuras: optional(row["common_auras"]),
			Comorbid:    optional(row["comorbidities"]),
		}
		patientID, err := imp.store.InsertPatient(ctx, patient)
		if err != nil {
			imp.log.Error().Err(err).Str("patient_code", code).Msg("patient insert failed")
			res.Skipped++
			return nil
		}

		for _, diag := range splitList(row["diagnosis"]) {
			diagID, err := imp.store.GetOrCreateDiagnosis(ctx, strings.ToLower(diag))
			if err != nil {
				return fmt.Errorf("diagnosis %q: %w", diag, err)
			}
			if err := imp.store.LinkPatientDiagnosis(ctx, patientID, diagID); err != nil {
				return fmt.Errorf("linking diagnosis %q: %w", diag, err)
			}
		}

		imp.log.Info().Str("patient_code", code).Int64("patient_id", patientID).Msg("imported patient")
		res.Imported++
		return nil
	})
	return res, err
}

// Sessions imports session rows, resolving each patient by code.
func (imp *Importer) Sessions(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := csvRows(r, func(row map[string]string) error {
		code := row["patient_code"]
		patientID, err := imp.store.PatientIDByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				imp.log.Warn().Str("patient_code", code).Msg("skipping session for unknown patient")
				res.Skipped++
				return nil
			}
			return err
		}

		start, err := catalog.ParseTimestamp(row["start_time"])
		if err != nil {
			imp.log.Warn().Str("patient_code", code).Str("start_time", row["start_time"]).Msg("skipping session with bad start_time")
			res.Skipped++
			return nil
		}
		end, err := catalog.ParseTimestamp(row["end_time"])
		if err != nil || !end.After(start) {
			imp.log.Warn().Str("patient_code", code).Str("end_time", row["end_time"]).Msg("skipping session with bad end_time")
			res.Skipped++
			return nil
		}

		session := &catalog.Session{
			PatientID:    patientID,
			HospitalCode: optional(row["hospital_code"]),
			StartTime:    start,
			EndTime:      end,
		}
		sessionID, err := imp.store.InsertSession(ctx, session)
		if err != nil {
			imp.log.Error().Err(err).Str("patient_code", code).Msg("session insert failed")
			res.Skipped++
			return nil
		}

		imp.log.Info().Str("patient_code", code).Int64("session_id", sessionID).Msg("imported session")
		res.Imported++
		return nil
	})
	return res, err
}

// Events imports event rows with their comma-separated type list. The session
// is resolved by patient code and onset-time containment; seizure types are
// created on first use, lower-cased.
func (imp *Importer) Events(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := csvRows(r, func(row map[string]string) error {
		code := row["patient_code"]
		onset, err := catalog.ParseTimestamp(row["onset_time"])
		if err != nil {
			imp.log.Warn().Str("patient_code", code).Str("onset_time", row["onset_time"]).Msg("skipping event with bad onset_time")
			res.Skipped++
			return nil
		}

		sessionID, err := imp.store.SessionIDForTime(ctx, code, onset)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				imp.log.Warn().Str("patient_code", code).Time("onset_time", onset).Msg("skipping event outside any session")
				res.Skipped++
				return nil
			}
			return err
		}

		event := &catalog.Event{
			SessionID:   sessionID,
			OnsetTime:   &onset,
			Annotations: optional(row["annotations"]),
		}
		if v := row["offset_time"]; v != "" {
			offset, err := catalog.ParseTimestamp(v)
			if err == nil {
				event.OffsetTime = &offset
			}
		}

		eventID, err := imp.store.InsertEvent(ctx, event)
		if err != nil {
			imp.log.Error().Err(err).Str("patient_code", code).Msg("event insert failed")
			res.Skipped++
			return nil
		}

		for _, name := range splitList(row["event_type"]) {
			typeID, err := imp.store.GetOrCreateSeizureType(ctx, strings.ToLower(name))
			if err != nil {
				return fmt.Errorf("seizure type %q: %w", name, err)
			}
			if err := imp.store.LinkEventSeizureType(ctx, eventID, typeID); err != nil {
				return fmt.Errorf("linking seizure type %q: %w", name, err)
			}
		}

		imp.log.Info().Int64("event_id", eventID).Int64("session_id", sessionID).Msg("imported event")
		res.Imported++
		return nil
	})
	return res, err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
