package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/records", h.GetRecords)
	g.GET("/events", h.GetEvents)
	g.GET("/events/classified", h.GetClassifiedEvents)
	g.GET("/sessions", h.GetSessions)
	g.GET("/patients/:patient_code/sessions", h.GetPatientSessions)
}

// GetRecords lists record ids filtered by patient_code, session_date,
// session_id and modality.
func (h *Handler) GetRecords(c echo.Context) error {
	f, err := NewFilter(FilterParams{
		PatientCode: c.QueryParam("patient_code"),
		SessionDate: c.QueryParam("session_date"),
		SessionID:   c.QueryParam("session_id"),
		Modality:    c.QueryParam("modality"),
	})
	if err != nil {
		return err
	}

	rows, err := h.svc.Records(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// GetEvents lists events filtered by patient_code, session_date and
// session_id.
func (h *Handler) GetEvents(c echo.Context) error {
	f, err := NewFilter(FilterParams{
		PatientCode: c.QueryParam("patient_code"),
		SessionDate: c.QueryParam("session_date"),
		SessionID:   c.QueryParam("session_id"),
	})
	if err != nil {
		return err
	}

	rows, err := h.svc.Events(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// GetClassifiedEvents lists events with their seizure-type names, optionally
// requiring every type in event_types (all-of).
func (h *Handler) GetClassifiedEvents(c echo.Context) error {
	f, err := NewFilter(FilterParams{
		PatientCode: c.QueryParam("patient_code"),
		SessionDate: c.QueryParam("session_date"),
		SessionID:   c.QueryParam("session_id"),
		EventTypes:  c.QueryParams()["event_types"],
	})
	if err != nil {
		return err
	}

	rows, err := h.svc.ClassifiedEvents(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// GetSessions lists sessions filtered by patient_code, event_types (all-of)
// and modality.
func (h *Handler) GetSessions(c echo.Context) error {
	f, err := NewFilter(FilterParams{
		PatientCode: c.QueryParam("patient_code"),
		Modality:    c.QueryParam("modality"),
		EventTypes:  c.QueryParams()["event_types"],
	})
	if err != nil {
		return err
	}

	rows, err := h.svc.Sessions(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// GetPatientSessions lists session ids for a patient code.
func (h *Handler) GetPatientSessions(c echo.Context) error {
	rows, err := h.svc.SessionsByPatient(c.Request().Context(), c.Param("patient_code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}
