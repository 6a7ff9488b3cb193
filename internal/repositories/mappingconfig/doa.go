package mappingconfig

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func FromMappingConfig(config models.MappingConfig) *MappingConfigRow {
	return &MappingConfigRow{
		TenantID:       sql.NullString{String: config.TenantID, Valid: config.TenantID != ""},
		CompanyID:      sql.NullString{String: config.CompanyID, Valid: config.CompanyID != ""},
		StatementType:  sql.NullString{String: string(config.StatementType), Valid: config.StatementType != ""},
		TemplateCode:   sql.NullString{String: config.TemplateCode, Valid: config.TemplateCode != ""},
		SourceFileName: sql.NullString{String: config.SourceFileName, Valid: config.SourceFileName != ""},
		Mappings:       database.JSONB[[]models.HierarchicalMapping]{Data: config.Mappings},
		ColumnConfig:   database.JSONB[models.ColumnConfig]{Data: config.ColumnConfig},
	}
}

type MappingConfigRow struct {
	TenantID       sql.NullString                               `db:"tenant_id"`
	CompanyID      sql.NullString                               `db:"company_id"`
	StatementType  sql.NullString                               `db:"statement_type"`
	TemplateCode   sql.NullString                               `db:"template_code"`
	SourceFileName sql.NullString                               `db:"source_file_name"`
	Mappings       database.JSONB[[]models.HierarchicalMapping] `db:"mappings"`
	ColumnConfig   database.JSONB[models.ColumnConfig]          `db:"column_config"`
	CreatedTS      sql.NullTime                                 `db:"created_at"`
	UpdatedTS      sql.NullTime                                 `db:"updated_at"`
}

const (
	mappingConfigTable = "mapping_configs"
)

var mappingConfigStruct = database.NewStruct(new(MappingConfigRow))

func ToMappingConfig(row *MappingConfigRow) models.MappingConfig {
	return models.MappingConfig{
		TenantID:       row.TenantID.String,
		CompanyID:      row.CompanyID.String,
		StatementType:  models.StatementType(row.StatementType.String),
		TemplateCode:   row.TemplateCode.String,
		SourceFileName: row.SourceFileName.String,
		Mappings:       row.Mappings.Data,
		ColumnConfig:   row.ColumnConfig.Data,
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
