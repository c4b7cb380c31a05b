package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preepi/recordings/internal/platform/apperror"
)

type mockRepo struct {
	records    []RecordRow
	events     []EventRow
	classified []ClassifiedEventRow
	sessions   []SessionRow
	sessionIDs []SessionIDRow
	session    *Session
	err        error

	sessionByIDCalls int
	queryCalls       int
}

func (m *mockRepo) Records(ctx context.Context, f Filter) ([]RecordRow, error) {
	m.queryCalls++
	return m.records, m.err
}

func (m *mockRepo) Events(ctx context.Context, f Filter) ([]EventRow, error) {
	m.queryCalls++
	return m.events, m.err
}

func (m *mockRepo) ClassifiedEvents(ctx context.Context, f Filter) ([]ClassifiedEventRow, error) {
	m.queryCalls++
	return m.classified, m.err
}

func (m *mockRepo) Sessions(ctx context.Context, f Filter) ([]SessionRow, error) {
	m.queryCalls++
	return m.sessions, m.err
}

func (m *mockRepo) SessionsByPatient(ctx context.Context, patientCode string) ([]SessionIDRow, error) {
	m.queryCalls++
	return m.sessionIDs, m.err
}

func (m *mockRepo) SessionByID(ctx context.Context, id int64) (*Session, error) {
	m.sessionByIDCalls++
	if m.session == nil {
		return nil, ErrSessionNotFound
	}
	return m.session, nil
}

func filterWithDate(sessionID int64, ts string) Filter {
	t, err := ParseTimestamp(ts)
	if err != nil {
		panic(err)
	}
	return Filter{SessionID: sessionID, SessionDate: &t}
}

func TestService_SessionDateGate(t *testing.T) {
	session := &Session{
		ID:        3,
		StartTime: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		session  *Session
		filter   Filter
		wantKind apperror.Kind
	}{
		{"date inside bounds", session, filterWithDate(3, "2024-01-01 11:00:00"), ""},
		{"date at start is contained", session, filterWithDate(3, "2024-01-01 08:00:00"), ""},
		{"date before start", session, filterWithDate(3, "2024-01-01 07:59:59"), apperror.KindInvalidArgument},
		{"date at end is excluded", session, filterWithDate(3, "2024-01-01 12:00:00"), apperror.KindInvalidArgument},
		{"date after end", session, filterWithDate(3, "2024-01-02 00:00:00"), apperror.KindInvalidArgument},
		{"unknown session", nil, filterWithDate(99, "2024-01-01 11:00:00"), apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{session: tt.session, records: []RecordRow{{RecordID: 1}}}
			svc := NewService(repo)

			_, err := svc.Records(context.Background(), tt.filter)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("Records: %v", err)
				}
				return
			}
			if !apperror.IsKind(err, tt.wantKind) {
				t.Fatalf("Records error = %v, want kind %s", err, tt.wantKind)
			}
			if repo.queryCalls != 0 {
				t.Error("main query ran despite a failed consistency gate")
			}
		})
	}
}

func TestService_GateSkippedWhenEitherFilterAbsent(t *testing.T) {
	repo := &mockRepo{records: []RecordRow{{RecordID: 1}}}
	svc := NewService(repo)

	for _, f := range []Filter{
		{SessionID: 3},
		filterWithDate(0, "2024-01-01 11:00:00"),
		{},
	} {
		if _, err := svc.Records(context.Background(), f); err != nil {
			t.Fatalf("Records(%+v): %v", f, err)
		}
	}
	if repo.sessionByIDCalls != 0 {
		t.Errorf("SessionByID called %d times, want 0", repo.sessionByIDCalls)
	}
}

func TestService_EmptyResultIsNotFound(t *testing.T) {
	svc := NewService(&mockRepo{})
	ctx := context.Background()

	checks := []struct {
		name string
		call func() error
	}{
		{"records", func() error { _, err := svc.Records(ctx, Filter{}); return err }},
		{"events", func() error { _, err := svc.Events(ctx, Filter{}); return err }},
		{"classified events", func() error { _, err := svc.ClassifiedEvents(ctx, Filter{}); return err }},
		{"sessions", func() error { _, err := svc.Sessions(ctx, Filter{}); return err }},
		{"sessions by patient", func() error { _, err := svc.SessionsByPatient(ctx, "ABCD"); return err }},
	}
	for _, c := range checks {
		if err := c.call(); !apperror.IsKind(err, apperror.KindNotFound) {
			t.Errorf("%s: error = %v, want not_found", c.name, err)
		}
	}
}

func TestService_StoreErrorIsInternal(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("connection reset")})

	_, err := svc.Records(context.Background(), Filter{})
	if !apperror.IsKind(err, apperror.KindInternal) {
		t.Fatalf("error = %v, want internal", err)
	}
	if apperror.ReasonOf(err) == "connection reset" {
		t.Error("store error text leaked into the client-facing reason")
	}
}

func TestService_ResultsPassThrough(t *testing.T) {
	onset := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	repo := &mockRepo{
		classified: []ClassifiedEventRow{{
			EventRow:     EventRow{EventID: 7, OnsetTime: &onset},
			SeizureTypes: "focal, motor",
		}},
	}
	svc := NewService(repo)

	rows, err := svc.ClassifiedEvents(context.Background(), Filter{EventTypes: []string{"focal", "motor"}})
	if err != nil {
		t.Fatalf("ClassifiedEvents: %v", err)
	}
	if len(rows) != 1 || rows[0].EventID != 7 || rows[0].SeizureTypes != "focal, motor" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestService_SessionsByPatientRequiresCode(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.SessionsByPatient(context.Background(), "")
	if !apperror.IsKind(err, apperror.KindInvalidArgument) {
		t.Fatalf("error = %v, want invalid_argument", err)
	}
}
