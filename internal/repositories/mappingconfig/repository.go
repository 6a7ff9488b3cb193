package mappingconfig

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

type MappingConfigRepository interface {
	Upsert(ctx context.Context, config models.MappingConfig) error
	Get(ctx context.Context, tenantID, companyID string, statementType models.StatementType) (models.MappingConfig, error)
	GetAllForStatementType(ctx context.Context, tenantID string, statementType models.StatementType) ([]models.MappingConfig, error)
	Delete(ctx context.Context, tenantID, companyID string, statementType models.StatementType) error
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mapping config repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Upsert(ctx context.Context, config models.MappingConfig) error {
	ctx, span := tracing.StartSpan(ctx, "MappingConfigRepository.Upsert")
	defer span.End()

	row := FromMappingConfig(config)
	row.CreatedTS.Time = nowUTC()
	row.CreatedTS.Valid = true

	ib := mappingConfigStruct.InsertInto(mappingConfigTable, row)
	ub := ib.OnConflict("tenant_id", "company_id", "statement_type")
	ub.Set(
		ub.Assign("template_code", database.Excluded("template_code")),
		ub.Assign("source_file_name", database.Excluded("source_file_name")),
		ub.Assign("mappings", database.Excluded("mappings")),
		ub.Assign("column_config", database.Excluded("column_config")),
		ub.Assign("updated_at", nowUTC()),
	)

	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":      config.TenantID,
		"company_id":     config.CompanyID,
		"statement_type": config.StatementType,
		"template_code":  config.TemplateCode,
		"mapping_count":  len(config.Mappings),
	}).Info("Upserting mapping config")
	_, err = tx.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":      config.TenantID,
			"company_id":     config.CompanyID,
			"statement_type": config.StatementType,
		}).Error("error upserting mapping config")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error upserting mapping config")
	}

	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, tenantID, companyID string, statementType models.StatementType) (models.MappingConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingConfigRepository.Get")
	defer span.End()

	sb := mappingConfigStruct.SelectFrom(mappingConfigTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("company_id", companyID),
		sb.Equal("statement_type", string(statementType)),
	)

	sql, args := sb.Build()

	var row MappingConfigRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return models.MappingConfig{}, httperror.NewHTTPError(http.StatusNotFound, "mapping config not found")
		}

		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":      tenantID,
			"company_id":     companyID,
			"statement_type": statementType,
		}).Error("error getting mapping config")
		return models.MappingConfig{}, httperror.NewHTTPError(http.StatusInternalServerError, "error getting mapping config")
	}

	return ToMappingConfig(&row), nil
}

func (r *Repository) GetAllForStatementType(ctx context.Context, tenantID string, statementType models.StatementType) ([]models.MappingConfig, error) {
	ctx, span := tracing.StartSpan(ctx, "MappingConfigRepository.GetAllForStatementType")
	defer span.End()

	sb := mappingConfigStruct.SelectFrom(mappingConfigTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("statement_type", string(statementType)),
	)
	sb.OrderBy("company_id").Asc()

	sql, args := sb.Build()

	var rows []MappingConfigRow
	err := r.db.SelectContext(ctx, &rows, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":      tenantID,
			"statement_type": statementType,
		}).Error("error listing mapping configs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing mapping configs")
	}

	configs := make([]models.MappingConfig, 0, len(rows))
	for i := range rows {
		configs = append(configs, ToMappingConfig(&rows[i]))
	}
	return configs, nil
}

func (r *Repository) Delete(ctx context.Context, tenantID, companyID string, statementType models.StatementType) error {
	ctx, span := tracing.StartSpan(ctx, "MappingConfigRepository.Delete")
	defer span.End()

	db := mappingConfigStruct.DeleteFrom(mappingConfigTable)
	db.Where(
		db.Equal("tenant_id", tenantID),
		db.Equal("company_id", companyID),
		db.Equal("statement_type", string(statementType)),
	)

	sql, args := db.Build()

	_, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":      tenantID,
			"company_id":     companyID,
			"statement_type": statementType,
		}).Error("error deleting mapping config")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting mapping config")
	}

	return nil
}
