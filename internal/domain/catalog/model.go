// Package catalog exposes the recording metadata graph: patients, sessions,
// records, events and their seizure-type classifications, with the filtered
// query shapes built over it.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Modality is the category of a record's source data. The set is closed; it
// also determines sensitivity (video and reports carry identifiable content).
type Modality string

const (
	ModalityHospitalEEG   Modality = "hospital_eeg"
	ModalityWearable      Modality = "wearable"
	ModalityHospitalVideo Modality = "hospital_video"
	ModalityReport        Modality = "report"
)

var modalities = map[Modality]bool{
	ModalityHospitalEEG:   true,
	ModalityWearable:      true,
	ModalityHospitalVideo: true,
	ModalityReport:        true,
}

// ParseModality validates a modality value.
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	if !modalities[m] {
		return "", fmt.Errorf("unknown modality %q", s)
	}
	return m, nil
}

// Sensitive reports whether records of this modality carry identifiable
// patient content. Video and clinical reports do; EEG and wearable signals
// do not.
func (m Modality) Sensitive() bool {
	return m == ModalityHospitalVideo || m == ModalityReport
}

// SeizureTypes is the versioned vocabulary of event classifications. Names
// are stored lower-cased; membership matches the v2 schema.
var SeizureTypes = map[string]bool{
	"seizure":                   true,
	"non-seizure":               true,
	"subclinical":               true,
	"electrographic":            true,
	"non-electrographic":        true,
	"aware":                     true,
	"impaired awareness":        true,
	"unknown awareness":         true,
	"focal":                     true,
	"generalized":               true,
	"to bilateral tonic-clonic": true,
	"tonic-clonic":              true,
	"tonic":                     true,
	"absence":                   true,
	"motor":                     true,
	"non-motor":                 true,
	"automatisms":               true,
	"behavior arrest":           true,
}

// NormalizeSeizureTypes lower-cases, deduplicates and validates a set of
// seizure-type names, returning them sorted.
func NormalizeSeizureTypes(values []string) ([]string, error) {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		name := strings.ToLower(strings.TrimSpace(v))
		if name == "" {
			continue
		}
		if !SeizureTypes[name] {
			return nil, fmt.Errorf("unknown event type %q", v)
		}
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// -- Entities --

type Patient struct {
	ID          int64   `json:"patient_id"`
	PatientCode string  `json:"patient_code"`
	Laterality  *string `json:"laterality,omitempty"`
	CommonAuras *string `json:"common_auras,omitempty"`
	Comorbid    *string `json:"comorbidities,omitempty"`
}

// Session is a hospital stay interval. Events and records associate to it by
// timestamp containment over [StartTime, EndTime).
type Session struct {
	ID           int64     `json:"session_id"`
	PatientID    int64     `json:"-"`
	HospitalCode *string   `json:"hospital_code,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// Contains reports half-open interval containment: StartTime <= t < EndTime.
func (s *Session) Contains(t time.Time) bool {
	return !t.Before(s.StartTime) && t.Before(s.EndTime)
}

// Record is a physical file on the remote share.
type Record struct {
	ID            int64    `json:"record_id"`
	SessionID     int64    `json:"session_id"`
	Modality      Modality `json:"modality"`
	SharePath     string   `json:"-"`
	FileName      string   `json:"file_name"`
	FileExtension string   `json:"file_extension"`
}

// File returns the download name: original name plus extension.
func (r *Record) File() string {
	return r.FileName + r.FileExtension
}

type Event struct {
	ID          int64      `json:"event_id"`
	SessionID   int64      `json:"-"`
	OnsetTime   *time.Time `json:"onset_time"`
	OffsetTime  *time.Time `json:"offset_time"`
	Annotations *string    `json:"annotations"`
}

// -- Query result rows --

type RecordRow struct {
	RecordID int64 `json:"record_id"`
}

type EventRow struct {
	EventID     int64      `json:"event_id"`
	OnsetTime   *time.Time `json:"onset_time"`
	OffsetTime  *time.Time `json:"offset_time"`
	Annotations *string    `json:"annotations"`
}

// ClassifiedEventRow is an EventRow plus the sorted, deduplicated, ", "-joined
// list of matched seizure-type names.
type ClassifiedEventRow struct {
	EventRow
	SeizureTypes string `json:"seizure_types"`
}

type SessionRow struct {
	SessionID    int64     `json:"session_id"`
	HospitalCode *string   `json:"hospital_code"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

type SessionIDRow struct {
	SessionID int64 `json:"session_id"`
}
