package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/preepi/recordings/internal/platform/apperror"
)

func newTestContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGetRecords(t *testing.T) {
	repo := &mockRepo{records: []RecordRow{{RecordID: 4}, {RecordID: 9}}}
	h := NewHandler(NewService(repo))

	c, rec := newTestContext("/records?patient_code=ABCD&modality=wearable")
	if err := h.GetRecords(c); err != nil {
		t.Fatalf("GetRecords: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var rows []RecordRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(rows) != 2 || rows[0].RecordID != 4 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestGetRecords_BadFilter(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}))

	c, _ := newTestContext("/records?modality=mri")
	err := h.GetRecords(c)
	if !apperror.IsKind(err, apperror.KindInvalidArgument) {
		t.Fatalf("error = %v, want invalid_argument", err)
	}
}

func TestGetClassifiedEvents_RepeatedEventTypes(t *testing.T) {
	repo := &mockRepo{classified: []ClassifiedEventRow{{
		EventRow:     EventRow{EventID: 1},
		SeizureTypes: "focal, motor",
	}}}
	h := NewHandler(NewService(repo))

	c, rec := newTestContext("/events/classified?event_types=focal&event_types=Motor")
	if err := h.GetClassifiedEvents(c); err != nil {
		t.Fatalf("GetClassifiedEvents: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetPatientSessions(t *testing.T) {
	repo := &mockRepo{sessionIDs: []SessionIDRow{{SessionID: 3}}}
	h := NewHandler(NewService(repo))

	c, rec := newTestContext("/")
	c.SetPath("/patients/:patient_code/sessions")
	c.SetParamNames("patient_code")
	c.SetParamValues("ABCD")

	if err := h.GetPatientSessions(c); err != nil {
		t.Fatalf("GetPatientSessions: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
