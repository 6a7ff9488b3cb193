package template

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

type TemplateRepository interface {
	Upsert(ctx context.Context, template models.Template) error
	GetByCode(ctx context.Context, tenantID, code string) (models.Template, error)
	GetActiveForStatementType(ctx context.Context, tenantID string, statementType models.StatementType) (models.Template, error)
	List(ctx context.Context, tenantID string) ([]models.Template, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new statement template repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Upsert(ctx context.Context, template models.Template) error {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.Upsert")
	defer span.End()

	row := FromTemplate(template)
	row.CreatedTS = toNullTime(time.Now().UTC())

	ib := templateStruct.InsertInto(templateTable, row)
	ub := ib.OnConflict("tenant_id", "code")
	ub.Set(
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("statement_type", database.Excluded("statement_type")),
		ub.Assign("line_items", database.Excluded("line_items")),
		ub.Assign("is_active", database.Excluded("is_active")),
		ub.Assign("updated_at", time.Now().UTC()),
	)

	sql, args := ib.Build()

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": template.TenantID,
			"code":      template.Code,
		}).Error("error upserting template")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting template")
	}

	return nil
}

func (r *Repository) GetByCode(ctx context.Context, tenantID, code string) (models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.GetByCode")
	defer span.End()

	sb := templateStruct.SelectFrom(templateTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("code", code),
	)

	sql, args := sb.Build()

	var row TemplateRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return models.Template{}, httperror.NewHTTPError(http.StatusNotFound, "template not found")
		}

		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"code":      code,
		}).Error("error getting template")
		return models.Template{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting template")
	}

	return ToTemplate(&row), nil
}

func (r *Repository) GetActiveForStatementType(ctx context.Context, tenantID string, statementType models.StatementType) (models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.GetActiveForStatementType")
	defer span.End()

	sb := templateStruct.SelectFrom(templateTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("statement_type", string(statementType)),
		sb.Equal("is_active", true),
	)
	sb.OrderBy("updated_at").Desc()
	sb.Limit(1)

	sql, args := sb.Build()

	var row TemplateRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return models.Template{}, httperror.NewHTTPError(http.StatusNotFound, "no active template for statement type")
		}

		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":      tenantID,
			"statement_type": statementType,
		}).Error("error getting active template")
		return models.Template{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting active template")
	}

	return ToTemplate(&row), nil
}

func (r *Repository) List(ctx context.Context, tenantID string) ([]models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "TemplateRepository.List")
	defer span.End()

	sb := templateStruct.SelectFrom(templateTable)
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("code").Asc()

	sql, args := sb.Build()

	var rows []TemplateRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
		}).Error("error listing templates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing templates")
	}

	templates := make([]models.Template, 0, len(rows))
	for i := range rows {
		templates = append(templates, ToTemplate(&rows[i]))
	}
	return templates, nil
}
