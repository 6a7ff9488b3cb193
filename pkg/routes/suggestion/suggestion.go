package suggestion

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	mappingconfigsvc "github.com/Ramsey-B/fern/internal/services/mappingconfig"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	suggestionpkg "github.com/Ramsey-B/fern/pkg/suggestion"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers suggestion routes under a company group
func Register(g *echo.Group) {
	g.POST("", ApplySuggestion)
}

// ApplySuggestionRequest carries an assistant-produced batch. The batch is
// advisory: every record is validated against the live session and bad
// records are skipped, never fatal.
type ApplySuggestionRequest struct {
	StatementType models.StatementType `json:"statement_type" validate:"required"`
	EntityPath    []string             `json:"entity_path" validate:"required,min=1"`
	Suggestion    models.Suggestion    `json:"suggestion" validate:"required"`
}

// ApplySuggestion applies a suggestion batch to the company's mapping surface
func ApplySuggestion(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	req, err := utils.BindRequest[ApplySuggestionRequest](c)
	if err != nil {
		return err
	}
	if !req.StatementType.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid statement type")
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, importer, err := ectoinject.GetContext[*suggestionpkg.Importer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, saver, err := ectoinject.GetContext[*mappingconfigsvc.DebouncedSaver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, service, err := ectoinject.GetContext[*mappingconfigsvc.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var report suggestionpkg.ImportReport
	err = manager.WithSession(ctx, tenantID, companyID, req.StatementType, func(sess *sessionpkg.Session) error {
		report = importer.Apply(ctx, sess, models.EntityPath(req.EntityPath), req.Suggestion)
		if report.RowsApplied+report.ColumnsApplied > 0 {
			saver.Request(sess)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordSuggestionRecords(tenantID, string(req.StatementType),
		report.RowsApplied+report.ColumnsApplied, len(report.Skipped))

	service.PublishEvent(ctx, &kafka.MappingEventMessage{
		Event:         kafka.EventSuggestionApplied,
		TenantID:      tenantID,
		CompanyID:     companyID,
		StatementType: req.StatementType,
		MappingCount:  report.RowsApplied,
		EvictedCount:  report.Evicted,
		SkippedCount:  len(report.Skipped),
		Timestamp:     time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, report)
}
