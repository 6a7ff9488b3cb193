package mapping

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	mappingconfigsvc "github.com/Ramsey-B/fern/internal/services/mappingconfig"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers mapping surface routes under a company group. The
// statement type is part of the path: one surface per statement type.
func Register(g *echo.Group) {
	g.GET("", GetSurface)
	g.POST("/rows", AssignRow)
	g.DELETE("/rows", UnassignRow)
	g.POST("/rows/clear", ClearMappings)
	g.POST("/columns", AssignColumn)
	g.DELETE("/columns/:role", ClearColumn)
	g.GET("/columns/range", GetDerivedRange)
	g.POST("/save", SaveSurface)
}

func statementTypeParam(c echo.Context) (models.StatementType, error) {
	statementType := models.StatementType(c.Param("statementType"))
	if !statementType.IsValid() {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "invalid statement type")
	}
	return statementType, nil
}

// SurfaceResponse is the full state of one mapping surface
type SurfaceResponse struct {
	StatementType  models.StatementType         `json:"statement_type"`
	TemplateCode   string                       `json:"template_code"`
	SourceFileName string                       `json:"source_file_name,omitempty"`
	Mappings       []models.HierarchicalMapping `json:"mappings"`
	ColumnConfig   models.ColumnConfig          `json:"column_config"`
	Roles          []models.ColumnRole          `json:"roles"`
}

// GetSurface returns the current state of the mapping surface
func GetSurface(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var resp SurfaceResponse
	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		resp = SurfaceResponse{
			StatementType: statementType,
			TemplateCode:  sess.Template().Code,
			Mappings:      sess.Store().Snapshot(),
			ColumnConfig:  sess.Assigner().Config(),
			Roles:         sess.Assigner().Roles(),
		}
		if sess.Dataset() != nil {
			resp.SourceFileName = sess.Dataset().FileName
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// AssignRowRequest maps one source row to a line item at an entity path
type AssignRowRequest struct {
	EntityPath   []string `json:"entity_path" validate:"required,min=1"`
	LineItemCode string   `json:"line_item_code" validate:"required"`
	RowIndex     *int     `json:"row_index" validate:"required"`
}

// AssignRowResponse reports the commit and whatever it displaced
type AssignRowResponse struct {
	Mapping models.HierarchicalMapping   `json:"mapping"`
	Evicted []models.HierarchicalMapping `json:"evicted,omitempty"`
}

// AssignRow commits a row mapping, evicting ancestor or descendant mappings
// for the same line item
func AssignRow(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[AssignRowRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, saver, err := ectoinject.GetContext[*mappingconfigsvc.DebouncedSaver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var resp AssignRowResponse
	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		evicted, err := sess.AssignRow(models.EntityPath(req.EntityPath), req.LineItemCode, *req.RowIndex)
		if err != nil {
			return err
		}
		resp = AssignRowResponse{
			Mapping: models.HierarchicalMapping{
				EntityPath:     models.EntityPath(req.EntityPath),
				LineItemCode:   req.LineItemCode,
				SourceRowIndex: *req.RowIndex,
			},
			Evicted: evicted,
		}
		metrics.RecordAssignment(tenantID, string(statementType), "user", len(evicted))
		saver.Request(sess)
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// UnassignRowRequest removes the mapping at exactly this path and line item
type UnassignRowRequest struct {
	EntityPath   []string `json:"entity_path" validate:"required,min=1"`
	LineItemCode string   `json:"line_item_code" validate:"required"`
}

// UnassignRow removes one row mapping
func UnassignRow(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UnassignRowRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, saver, err := ectoinject.GetContext[*mappingconfigsvc.DebouncedSaver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	removed := false
	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		removed = sess.UnassignRow(models.EntityPath(req.EntityPath), req.LineItemCode)
		if removed {
			saver.Request(sess)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"removed": removed})
}

// ClearMappingsRequest clears one line item's mappings, or everything when
// no code is given
type ClearMappingsRequest struct {
	LineItemCode string `json:"line_item_code,omitempty"`
}

// ClearMappings wipes mappings from the surface
func ClearMappings(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[ClearMappingsRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, saver, err := ectoinject.GetContext[*mappingconfigsvc.DebouncedSaver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	cleared := 0
	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		if req.LineItemCode != "" {
			cleared = sess.Store().ClearLineItem(req.LineItemCode)
		} else {
			cleared = sess.Store().Len()
			sess.Store().ClearAll()
		}
		saver.Request(sess)
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{"cleared": cleared})
}

// AssignColumnRequest binds a source column to a role
type AssignColumnRequest struct {
	Role       models.ColumnRole `json:"role" validate:"required"`
	ColumnName string            `json:"column_name" validate:"required"`
}

// AssignColumn binds a column to a role, stealing it from any other role
// that held it
func AssignColumn(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[AssignColumnRequest](c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, saver, err := ectoinject.GetContext[*mappingconfigsvc.DebouncedSaver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var stolenFrom *models.ColumnRole
	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		stolenFrom, err = sess.AssignColumn(req.Role, req.ColumnName)
		if err != nil {
			return err
		}
		metrics.ColumnAssignmentsTotal.WithLabelValues(tenantID, string(statementType), string(req.Role)).Inc()
		saver.Request(sess)
		return nil
	})
	if err != nil {
		return err
	}

	resp := map[string]any{"role": req.Role, "column_name": req.ColumnName}
	if stolenFrom != nil {
		resp["stolen_from"] = *stolenFrom
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearColumn unbinds a role
func ClearColumn(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}
	role := models.ColumnRole(c.Param("role"))

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, saver, err := ectoinject.GetContext[*mappingconfigsvc.DebouncedSaver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		sess.Assigner().ClearRole(role)
		saver.Request(sess)
		return nil
	})
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// GetDerivedRange resolves the value column span between two role-bound
// endpoints. An empty range means the surface is not configured yet, not an
// error.
func GetDerivedRange(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	startRole := models.ColumnRole(c.QueryParam("start_role"))
	endRole := models.ColumnRole(c.QueryParam("end_role"))
	if startRole == "" {
		startRole = models.ColumnRoleValueStart
	}
	if endRole == "" {
		endRole = models.ColumnRoleValueEnd
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var columns []string
	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		if sess.Dataset() == nil {
			return nil
		}
		columns = sess.Assigner().DerivedRange(startRole, endRole, sess.Dataset().Headers)
		return nil
	})
	if err != nil {
		return err
	}

	if columns == nil {
		columns = []string{}
	}
	return c.JSON(http.StatusOK, map[string][]string{"columns": columns})
}

// SaveSurface persists the surface immediately, bypassing the debounce
// window
func SaveSurface(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	statementType, err := statementTypeParam(c)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, service, err := ectoinject.GetContext[*mappingconfigsvc.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	err = manager.WithSession(ctx, tenantID, companyID, statementType, func(sess *sessionpkg.Session) error {
		return service.Save(ctx, sess)
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}

// RegisterRestore registers the company-wide restore route
func RegisterRestore(g *echo.Group) {
	g.POST("/restore", RestoreCompany)
}

// RestoreCompany rehydrates every statement surface for the company
func RestoreCompany(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	ctx, service, err := ectoinject.GetContext[*mappingconfigsvc.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	results, err := service.RestoreCompany(ctx, tenantID, companyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"results": results})
}
