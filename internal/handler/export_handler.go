package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "weekplan/backend/internal/errors"
	"weekplan/backend/internal/export"
	"weekplan/backend/internal/model"
	"weekplan/backend/internal/service"
)

type ExportHandler struct {
	plannerService  *service.PlannerService
	workTimeService *service.WorkTimeService
	exporter        *export.Exporter
	now             func() time.Time
}

func NewExportHandler(plannerService *service.PlannerService, workTimeService *service.WorkTimeService, exporter *export.Exporter) *ExportHandler {
	return &ExportHandler{
		plannerService:  plannerService,
		workTimeService: workTimeService,
		exporter:        exporter,
		now:             time.Now,
	}
}

// Export renders the board as it currently stands, unsaved edits included.
func (h *ExportHandler) Export(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	view, apiErr := h.plannerService.LoadWeek(ctx, scope.userID, scope.year, scope.week, false)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if len(view.Days) != 7 {
		writeError(c, apperrors.Internal("week has no days"))
		return
	}
	monday, err := time.Parse(model.DateLayout, view.Days[0])
	if err != nil {
		writeError(c, apperrors.Internal("invalid week start"))
		return
	}

	workTimes, apiErr := h.workTimeService.List(ctx, scope.userID, view.Days[0], view.Days[6])
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	file, err := h.exporter.Export(c.DefaultQuery("format", export.FormatXLSX), export.Report{
		Year:        scope.year,
		Week:        scope.week,
		Monday:      monday,
		Events:      view.Events,
		WorkTimes:   workTimes,
		GeneratedAt: h.now(),
	})
	if errors.Is(err, export.ErrUnsupportedFormat) {
		writeError(c, apperrors.BadRequest("unsupported_format", "format must be one of xlsx, pdf, ics"))
		return
	}
	if err != nil {
		writeError(c, apperrors.Internal("failed to render report"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
