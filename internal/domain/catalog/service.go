package catalog

import (
	"context"
	"errors"

	"github.com/preepi/recordings/internal/platform/apperror"
)

// Service runs the query shapes, owning the session/date consistency gate and
// the empty-result-vs-store-error distinction.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// checkSessionDate is the cross-filter consistency gate: when both session_id
// and session_date are supplied, the session must exist and the date must lie
// in its half-open [start, end) interval. It runs before the main query;
// a nonexistent session short-circuits before the containment check.
func (s *Service) checkSessionDate(ctx context.Context, f Filter) error {
	if f.SessionID == 0 || f.SessionDate == nil {
		return nil
	}

	session, err := s.repo.SessionByID(ctx, f.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return apperror.NotFound("session_id not found")
		}
		return apperror.Internal("session lookup failed", err)
	}

	if !session.Contains(*f.SessionDate) {
		return apperror.InvalidArgument("session_date outside session bounds")
	}
	return nil
}

func (s *Service) Records(ctx context.Context, f Filter) ([]RecordRow, error) {
	if err := s.checkSessionDate(ctx, f); err != nil {
		return nil, err
	}

	rows, err := s.repo.Records(ctx, f)
	if err != nil {
		return nil, apperror.Internal("record query failed", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no records found matching the filters")
	}
	return rows, nil
}

func (s *Service) Events(ctx context.Context, f Filter) ([]EventRow, error) {
	if err := s.checkSessionDate(ctx, f); err != nil {
		return nil, err
	}

	rows, err := s.repo.Events(ctx, f)
	if err != nil {
		return nil, apperror.Internal("event query failed", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no events found matching the filters")
	}
	return rows, nil
}

func (s *Service) ClassifiedEvents(ctx context.Context, f Filter) ([]ClassifiedEventRow, error) {
	if err := s.checkSessionDate(ctx, f); err != nil {
		return nil, err
	}

	rows, err := s.repo.ClassifiedEvents(ctx, f)
	if err != nil {
		return nil, apperror.Internal("event query failed", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no events found matching the filters")
	}
	return rows, nil
}

func (s *Service) Sessions(ctx context.Context, f Filter) ([]SessionRow, error) {
	rows, err := s.repo.Sessions(ctx, f)
	if err != nil {
		return nil, apperror.Internal("session query failed", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no sessions found matching the filters")
	}
	return rows, nil
}

func (s *Service) SessionsByPatient(ctx context.Context, patientCode string) ([]SessionIDRow, error) {
	if patientCode == "" {
		return nil, apperror.InvalidArgument("patient_code is required")
	}

	rows, err := s.repo.SessionsByPatient(ctx, patientCode)
	if err != nil {
		return nil, apperror.Internal("session query failed", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no sessions found for this patient code")
	}
	return rows, nil
}
