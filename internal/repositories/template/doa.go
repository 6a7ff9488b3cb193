package template

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func toNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type TemplateRow struct {
	Code          sql.NullString                    `db:"code"`
	TenantID      sql.NullString                    `db:"tenant_id"`
	Name          sql.NullString                    `db:"name"`
	StatementType sql.NullString                    `db:"statement_type"`
	LineItems     database.JSONB[[]models.LineItem] `db:"line_items"`
	IsActive      sql.NullBool                      `db:"is_active"`
	CreatedTS     sql.NullTime                      `db:"created_at"`
	UpdatedTS     sql.NullTime                      `db:"updated_at"`
}

const (
	templateTable = "statement_templates"
)

var templateStruct = database.NewStruct(new(TemplateRow))

func ToTemplate(row *TemplateRow) models.Template {
	return models.Template{
		Code:          row.Code.String,
		TenantID:      row.TenantID.String,
		Name:          row.Name.String,
		StatementType: models.StatementType(row.StatementType.String),
		LineItems:     row.LineItems.Data,
		IsActive:      row.IsActive.Bool,
		CreatedAt:     row.CreatedTS.Time,
		UpdatedAt:     row.UpdatedTS.Time,
	}
}

func FromTemplate(t models.Template) *TemplateRow {
	return &TemplateRow{
		Code:          sql.NullString{String: t.Code, Valid: t.Code != ""},
		TenantID:      sql.NullString{String: t.TenantID, Valid: t.TenantID != ""},
		Name:          sql.NullString{String: t.Name, Valid: t.Name != ""},
		StatementType: sql.NullString{String: string(t.StatementType), Valid: t.StatementType != ""},
		LineItems:     database.JSONB[[]models.LineItem]{Data: t.LineItems},
		IsActive:      sql.NullBool{Bool: t.IsActive, Valid: true},
	}
}
