package models

// RowSuggestion proposes mapping one source row to a line item on the active
// entity path. Produced by the AI assistant; untrusted until validated.
type RowSuggestion struct {
	RowIndex     int    `json:"row_index"`
	LineItemCode string `json:"line_item_code"`
}

// ColumnSuggestion proposes binding a source column to a role.
type ColumnSuggestion struct {
	ColumnName string     `json:"column_name"`
	Role       ColumnRole `json:"role"`
}

// Suggestion is one candidate batch from the AI assistant. Every record is
// validated against the active template and dataset before it can touch the
// mapping store; invalid records are skipped, never applied.
type Suggestion struct {
	RowSuggestions    []RowSuggestion    `json:"row_suggestions,omitempty"`
	ColumnSuggestions []ColumnSuggestion `json:"column_suggestions,omitempty"`
}

// MappingConfig is the persisted snapshot of one (company, statement type)
// mapping surface: which template was active, the row mappings, the column
// roles, and which staged file the row indexes refer to.
type MappingConfig struct {
	TenantID       string                `json:"tenant_id"`
	CompanyID      string                `json:"company_id"`
	StatementType  StatementType         `json:"statement_type"`
	TemplateCode   string                `json:"template_code"`
	Mappings       []HierarchicalMapping `json:"hierarchical_mappings"`
	ColumnConfig   ColumnConfig          `json:"column_config"`
	SourceFileName string                `json:"source_file_name"`
}
