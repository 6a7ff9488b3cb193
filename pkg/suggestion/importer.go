package suggestion

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/session"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SkippedRecord explains why one suggestion record was not applied.
type SkippedRecord struct {
	RowIndex     *int   `json:"row_index,omitempty"`
	LineItemCode string `json:"line_item_code,omitempty"`
	ColumnName   string `json:"column_name,omitempty"`
	Role         string `json:"role,omitempty"`
	Reason       string `json:"reason"`
}

// ImportReport summarizes one suggestion batch. Applying a batch never
// fails: invalid records land here instead of erroring, so a half-good AI
// batch still applies its good half.
type ImportReport struct {
	RowsApplied    int             `json:"rows_applied"`
	ColumnsApplied int             `json:"columns_applied"`
	Evicted        int             `json:"evicted"`
	Skipped        []SkippedRecord `json:"skipped,omitempty"`
}

// Importer feeds AI-assistant suggestion batches through the same session
// mutation API a human uses. The assistant is an untrusted producer: every
// record is validated by the session before it can touch the stores.
type Importer struct {
	logger ectologger.Logger
}

func NewImporter(logger ectologger.Logger) *Importer {
	return &Importer{logger: logger}
}

// Apply runs the batch against the session. Row suggestions map onto the
// given entity path; column suggestions bind roles on the staged file.
func (i *Importer) Apply(ctx context.Context, sess *session.Session, path models.EntityPath, batch models.Suggestion) ImportReport {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Apply")
	defer span.End()

	report := ImportReport{}

	for _, rs := range batch.RowSuggestions {
		rowIndex := rs.RowIndex
		evicted, err := sess.AssignRow(path, rs.LineItemCode, rs.RowIndex)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRecord{
				RowIndex:     &rowIndex,
				LineItemCode: rs.LineItemCode,
				Reason:       err.Error(),
			})
			continue
		}
		report.RowsApplied++
		report.Evicted += len(evicted)
	}

	for _, cs := range batch.ColumnSuggestions {
		if !cs.Role.IsValidFor(sess.StatementType) {
			report.Skipped = append(report.Skipped, SkippedRecord{
				ColumnName: cs.ColumnName,
				Role:       string(cs.Role),
				Reason:     "role not valid for statement type",
			})
			continue
		}
		if _, err := sess.AssignColumn(cs.Role, cs.ColumnName); err != nil {
			report.Skipped = append(report.Skipped, SkippedRecord{
				ColumnName: cs.ColumnName,
				Role:       string(cs.Role),
				Reason:     err.Error(),
			})
			continue
		}
		report.ColumnsApplied++
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"company_id":      sess.CompanyID,
		"statement_type":  sess.StatementType,
		"rows_applied":    report.RowsApplied,
		"columns_applied": report.ColumnsApplied,
		"skipped":         len(report.Skipped),
	}).Info("applied suggestion batch")

	return report
}
