package dataset

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/stagedfile"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers staged file routes under a company group
func Register(g *echo.Group) {
	g.GET("", ListStagedFiles)
	g.POST("", StageFile)
	g.DELETE("/:fileName", DeleteStagedFile)
	g.POST("/:fileName/select", SelectFile)
}

// StageFileRequest carries a parsed upload: the dashboard parses the
// spreadsheet client-side and stages rows and headers here.
type StageFileRequest struct {
	FileName string     `json:"file_name" validate:"required"`
	Headers  []string   `json:"headers" validate:"required,min=1"`
	Rows     [][]string `json:"rows"`
}

// StageFile stores a parsed upload for mapping work
func StageFile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	req, err := utils.BindRequest[StageFileRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[stagedfile.StagedFileRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	dataset := &models.SourceDataset{
		FileName: req.FileName,
		Headers:  req.Headers,
		Rows:     req.Rows,
	}
	if err := repo.Put(ctx, tenantID, companyID, dataset); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"file_name": dataset.FileName,
		"rows":      dataset.RowCount(),
		"columns":   len(dataset.Headers),
	})
}

// ListStagedFiles lists the staged file names for the company
func ListStagedFiles(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)

	ctx, repo, err := ectoinject.GetContext[stagedfile.StagedFileRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	names, err := repo.ListNames(ctx, tenantID, companyID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string][]string{"files": names})
}

// DeleteStagedFile removes a staged file
func DeleteStagedFile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)
	fileName := c.Param("fileName")

	ctx, repo, err := ectoinject.GetContext[stagedfile.StagedFileRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, companyID, fileName); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// SelectFileRequest picks which mapping surface the file is staged into
type SelectFileRequest struct {
	StatementType models.StatementType `json:"statement_type" validate:"required"`
}

// SelectFile makes a staged file the active dataset of a mapping surface.
// Switching files wipes the surface's row mappings and column roles; they
// describe the old file's rows.
func SelectFile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	companyID := context.GetCompanyID(ctx)
	fileName := c.Param("fileName")

	req, err := utils.BindRequest[SelectFileRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[stagedfile.StagedFileRepository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	dataset, err := repo.Get(ctx, tenantID, companyID, fileName)
	if err != nil {
		return err
	}

	ctx, manager, err := ectoinject.GetContext[*sessionsvc.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	err = manager.WithSession(ctx, tenantID, companyID, req.StatementType, func(sess *sessionpkg.Session) error {
		sess.SetDataset(dataset)
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"file_name": dataset.FileName,
		"rows":      dataset.RowCount(),
		"headers":   dataset.Headers,
	})
}
