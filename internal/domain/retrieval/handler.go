package retrieval

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/preepi/recordings/internal/platform/apperror"
	"github.com/preepi/recordings/internal/platform/auth"
)

const archiveName = "records.zip"

// Handler serves the download endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/download", h.downloadMany)
	g.GET("/download/:record_id", h.downloadOne)
}

func (h *Handler) downloadOne(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.InvalidArgument("record_id must be a positive integer")
	}

	ctx := c.Request().Context()
	rec, err := h.svc.Resolve(ctx, auth.PrincipalFrom(ctx), id)
	if err != nil {
		return err
	}

	rc, err := h.svc.Open(ctx, rec)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, rec.File()))
	return c.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (h *Handler) downloadMany(c echo.Context) error {
	ids, err := parseRecordIDs(c.QueryParams()["record_ids"])
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	records, err := h.svc.ResolveMany(ctx, auth.PrincipalFrom(ctx), ids)
	if err != nil {
		return err
	}

	// Headers commit here; a failure past this point can only abort the
	// stream, not change the status.
	c.Response().Header().Set(echo.HeaderContentType, "application/zip")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, archiveName))
	c.Response().WriteHeader(http.StatusOK)

	return h.svc.WriteArchive(ctx, c.Response(), records)
}

// parseRecordIDs accepts repeated record_ids params, each holding one id or a
// comma-separated list. Duplicates are dropped, keeping first-seen order, so
// a repeated id cannot produce duplicate archive members.
func parseRecordIDs(values []string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, apperror.InvalidArgument(fmt.Sprintf("invalid record_id %q", part))
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apperror.InvalidArgument("record_ids is required")
	}
	return ids, nil
}
