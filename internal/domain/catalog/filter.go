package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/preepi/recordings/internal/platform/apperror"
)

// TimestampLayout is the wire format for session_date filters.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp accepts the documented "YYYY-MM-DD HH:MM:SS" form and its
// RFC 3339-style variant with a "T" separator.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, expected %s", s, "YYYY-MM-DD HH:MM:SS")
}

// Filter is the normalized set of optional query filters. Each field is
// independently optional; the zero value matches everything. EventTypes
// carries all-of semantics: a match must be linked to every named type.
type Filter struct {
	PatientCode string
	SessionDate *time.Time
	SessionID   int64 // 0 when unset
	Modality    Modality
	EventTypes  []string // normalized lower-case, sorted, deduplicated
}

// FilterParams are raw, still-unvalidated filter inputs as they arrive on the
// wire. Empty strings and nil slices mean "absent".
type FilterParams struct {
	PatientCode string
	SessionDate string
	SessionID   string
	Modality    string
	EventTypes  []string
}

// NewFilter validates and normalizes raw filter parameters. Unknown enum
// values and malformed timestamps are rejected here, before any store access.
func NewFilter(p FilterParams) (Filter, error) {
	var f Filter

	f.PatientCode = strings.TrimSpace(p.PatientCode)

	if p.SessionDate != "" {
		t, err := ParseTimestamp(p.SessionDate)
		if err != nil {
			return Filter{}, apperror.InvalidArgument(err.Error())
		}
		f.SessionDate = &t
	}

	if p.SessionID != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(p.SessionID), 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, apperror.InvalidArgument(fmt.Sprintf("session_id must be a positive integer, got %q", p.SessionID))
		}
		f.SessionID = id
	}

	if p.Modality != "" {
		m, err := ParseModality(p.Modality)
		if err != nil {
			return Filter{}, apperror.InvalidArgument(err.Error())
		}
		f.Modality = m
	}

	if len(p.EventTypes) > 0 {
		types, err := NormalizeSeizureTypes(p.EventTypes)
		if err != nil {
			return Filter{}, apperror.InvalidArgument(err.Error())
		}
		f.EventTypes = types
	}

	return f, nil
}

// queryBuilder accumulates parameterized WHERE-clause fragments with $n
// placeholders. Filters append clauses in a fixed canonical order, so the
// built predicate is independent of the order the inputs arrived in.
type queryBuilder struct {
	where strings.Builder
	args  []interface{}
	idx   int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{idx: 1}
}

// raw formats a fragment, filling %d verbs with consecutive placeholder
// indexes and registering one argument per verb. The caller places the
// returned fragment; used directly for SQL living outside the WHERE clause
// (join restrictions, HAVING).
func (q *queryBuilder) raw(fragment string, args ...interface{}) string {
	idxs := make([]interface{}, len(args))
	for i := range args {
		idxs[i] = q.idx + i
	}
	q.args = append(q.args, args...)
	q.idx += len(args)
	return fmt.Sprintf(fragment, idxs...)
}

// add appends a clause fragment to the WHERE accumulator.
func (q *queryBuilder) add(clause string, args ...interface{}) {
	q.where.WriteString(" AND ")
	q.where.WriteString(q.raw(clause, args...))
}

// addEquality constrains a column to a single value.
func (q *queryBuilder) addEquality(column string, value interface{}) {
	q.add(column+" = $%d", value)
}

// addContainment constrains a timestamp to the half-open session interval:
// start <= t AND end > t.
func (q *queryBuilder) addContainment(startCol, endCol string, t time.Time) {
	q.add(startCol+" <= $%d AND "+endCol+" > $%d", t, t)
}

// addAllOfSeizureTypes constrains eventIDCol to events linked to every one of
// the given type names: candidate links are grouped per event and only groups
// matching the full set survive.
func (q *queryBuilder) addAllOfSeizureTypes(eventIDCol string, names []string) {
	q.add(eventIDCol+` IN (
		SELECT est.event_id
		FROM event_seizure_types est
		JOIN seizure_types st ON est.seizure_type_id = st.seizure_type_id
		WHERE st.name = ANY($%d)
		GROUP BY est.event_id
		HAVING COUNT(DISTINCT st.name) = $%d
	)`, names, len(names))
}

// Where returns the accumulated clause fragments, to be appended after a
// "WHERE 1=1" anchor.
func (q *queryBuilder) Where() string {
	return q.where.String()
}

func (q *queryBuilder) Args() []interface{} {
	return q.args
}
