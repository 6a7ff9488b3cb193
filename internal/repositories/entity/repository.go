package entity

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

type EntityRepository interface {
	GetForCompany(ctx context.Context, tenantID, companyID string) ([]*models.Entity, error)
	Create(ctx context.Context, tenantID, companyID string, entity *models.Entity) (*models.Entity, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetForCompany returns the flat entity list for a company, in code order.
// The tree shape is resolved in memory from parent ids, not in SQL.
func (r *Repository) GetForCompany(ctx context.Context, tenantID, companyID string) ([]*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.GetForCompany")
	defer span.End()

	sb := entityStruct.SelectFrom(entityTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("company_id", companyID),
	)
	sb.OrderBy("code").Asc()

	query, args := sb.Build()

	var rows []EntityRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"company_id": companyID,
		}).Error("error getting entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error getting entities")
	}

	entities := make([]*models.Entity, 0, len(rows))
	for i := range rows {
		entities = append(entities, ToEntity(&rows[i]))
	}
	return entities, nil
}

func (r *Repository) Create(ctx context.Context, tenantID, companyID string, entity *models.Entity) (*models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRepository.Create")
	defer span.End()

	if entity.ID == "" {
		entity.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	row := &EntityRow{
		ID:        sql.NullString{String: entity.ID, Valid: true},
		TenantID:  sql.NullString{String: tenantID, Valid: true},
		CompanyID: sql.NullString{String: companyID, Valid: true},
		Code:      sql.NullString{String: entity.Code, Valid: entity.Code != ""},
		Name:      sql.NullString{String: entity.Name, Valid: entity.Name != ""},
		CreatedTS: sql.NullTime{Time: now, Valid: true},
		UpdatedTS: sql.NullTime{Time: now, Valid: true},
	}
	if entity.ParentID != nil {
		row.ParentID = sql.NullString{String: *entity.ParentID, Valid: true}
	}

	ib := entityStruct.InsertInto(entityTable, row)
	query, args := ib.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  tenantID,
			"company_id": companyID,
			"code":       entity.Code,
		}).Error("error creating entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error creating entity")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         entity.ID,
		"tenant_id":  tenantID,
		"company_id": companyID,
		"code":       entity.Code,
	}).Info("created entity")

	return entity, nil
}
