package models

import "time"

// LineItem is one named row of a statement template. Computed items are
// derived by the model engine from other line items; they are never mapping
// targets, so rows from an uploaded file cannot be assigned to them.
type LineItem struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Section     string `json:"section,omitempty"`
	IsComputed  bool   `json:"is_computed"`
	// Formula is the opaque expression string for computed items. Evaluation
	// lives in the model engine, not here.
	Formula string `json:"formula,omitempty"`
}

// Template is a statement template: the ordered set of line items a mapping
// screen offers as targets.
type Template struct {
	Code          string        `json:"code" db:"code"`
	TenantID      string        `json:"tenant_id" db:"tenant_id"`
	Name          string        `json:"name" db:"name"`
	StatementType StatementType `json:"statement_type" db:"statement_type"`
	LineItems     []LineItem    `json:"line_items" db:"line_items"`
	IsActive      bool          `json:"is_active" db:"is_active"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// LineItem returns the line item with the given code, or nil.
func (t *Template) LineItem(code string) *LineItem {
	for i := range t.LineItems {
		if t.LineItems[i].Code == code {
			return &t.LineItems[i]
		}
	}
	return nil
}

// MappableCodes returns the set of line item codes that can hold a mapping.
func (t *Template) MappableCodes() map[string]struct{} {
	codes := make(map[string]struct{}, len(t.LineItems))
	for _, item := range t.LineItems {
		if item.IsComputed {
			continue
		}
		codes[item.Code] = struct{}{}
	}
	return codes
}
