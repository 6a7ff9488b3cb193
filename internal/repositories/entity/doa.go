package entity

import (
	"database/sql"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

type EntityRow struct {
	ID        sql.NullString `db:"id"`
	TenantID  sql.NullString `db:"tenant_id"`
	CompanyID sql.NullString `db:"company_id"`
	Code      sql.NullString `db:"code"`
	Name      sql.NullString `db:"name"`
	ParentID  sql.NullString `db:"parent_id"`
	CreatedTS sql.NullTime   `db:"created_at"`
	UpdatedTS sql.NullTime   `db:"updated_at"`
}

const (
	entityTable = "entities"
)

var entityStruct = database.NewStruct(new(EntityRow))

func ToEntity(row *EntityRow) *models.Entity {
	e := &models.Entity{
		ID:   row.ID.String,
		Code: row.Code.String,
		Name: row.Name.String,
	}
	if row.ParentID.Valid && row.ParentID.String != "" {
		parentID := row.ParentID.String
		e.ParentID = &parentID
	}
	return e
}
