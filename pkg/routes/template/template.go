package template

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectolinq"
	"github.com/labstack/echo/v4"

	templaterepo "github.com/Ramsey-B/fern/internal/repositories/template"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers statement template routes
func Register(g *echo.Group) {
	g.GET("", ListTemplates)
	g.GET("/:code", GetTemplate)
	g.PUT("/:code", UpsertTemplate)
}

// ListTemplates lists the tenant's statement templates
func ListTemplates(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[templaterepo.TemplateRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	templates, err := repo.List(ctx, tenantID)
	if err != nil {
		return err
	}

	if statementType := models.StatementType(c.QueryParam("statement_type")); statementType != "" {
		if !statementType.IsValid() {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid statement type")
		}
		templates = ectolinq.Filter(templates, func(t models.Template) bool {
			return t.StatementType == statementType
		})
	}

	return c.JSON(http.StatusOK, templates)
}

// GetTemplate gets one template by code
func GetTemplate(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	code := c.Param("code")

	ctx, repo, err := ectoinject.GetContext[templaterepo.TemplateRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	template, err := repo.GetByCode(ctx, tenantID, code)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, template)
}

// UpsertTemplateRequest is the payload for creating or replacing a template
type UpsertTemplateRequest struct {
	Name          string               `json:"name" validate:"required"`
	StatementType models.StatementType `json:"statement_type" validate:"required"`
	LineItems     []models.LineItem    `json:"line_items" validate:"required,min=1,dive"`
	IsActive      bool                 `json:"is_active"`
}

// UpsertTemplate creates or replaces a template
func UpsertTemplate(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	code := c.Param("code")

	req, err := utils.BindRequest[UpsertTemplateRequest](c)
	if err != nil {
		return err
	}
	if !req.StatementType.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid statement type")
	}

	ctx, repo, err := ectoinject.GetContext[templaterepo.TemplateRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	template := models.Template{
		Code:          code,
		TenantID:      tenantID,
		Name:          req.Name,
		StatementType: req.StatementType,
		LineItems:     req.LineItems,
		IsActive:      req.IsActive,
	}
	if err := repo.Upsert(ctx, template); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, template)
}
