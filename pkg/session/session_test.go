package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string { return &s }

func testForest() *hierarchy.Forest {
	return hierarchy.BuildForest([]*models.Entity{
		{ID: "1", Code: "GROUP"},
		{ID: "2", Code: "EU", ParentID: strPtr("1")},
		{ID: "3", Code: "DE", ParentID: strPtr("2")},
	})
}

func testTemplate() *models.Template {
	return &models.Template{
		Code:          "ifrs-pl",
		StatementType: models.StatementTypePL,
		LineItems: []models.LineItem{
			{Code: "revenue", DisplayName: "Revenue"},
			{Code: "cogs", DisplayName: "Cost of Goods Sold"},
			{Code: "gross_profit", DisplayName: "Gross Profit", IsComputed: true},
		},
	}
}

func testDataset() *models.SourceDataset {
	return &models.SourceDataset{
		FileName: "upload.csv",
		Headers:  []string{"Account", "2023", "2024"},
		Rows: [][]string{
			{"Revenue", "100", "120"},
			{"COGS", "40", "45"},
		},
	}
}

func newTestSession() *Session {
	s := New("tenant-1", "company-1", models.StatementTypePL, testTemplate(), testForest())
	s.SetDataset(testDataset())
	return s
}

func TestAssignRow(t *testing.T) {
	s := newTestSession()

	evicted, err := s.AssignRow(models.EntityPath{"GROUP", "EU"}, "revenue", 0)

	require.NoError(t, err)
	assert.Empty(t, evicted)
	_, ok := s.Store().Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
	assert.True(t, ok)
}

func TestAssignRow_Validation(t *testing.T) {
	s := newTestSession()

	_, err := s.AssignRow(models.EntityPath{"GROUP", "XX"}, "revenue", 0)
	assert.Error(t, err, "unknown entity path")

	_, err = s.AssignRow(models.EntityPath{"GROUP"}, "ebitda", 0)
	assert.Error(t, err, "line item not in template")

	_, err = s.AssignRow(models.EntityPath{"GROUP"}, "gross_profit", 0)
	assert.Error(t, err, "computed line item")

	_, err = s.AssignRow(models.EntityPath{"GROUP"}, "revenue", 99)
	assert.Error(t, err, "row out of range")

	assert.Equal(t, 0, s.Store().Len(), "failed assigns must not mutate")
}

func TestAssignRow_EvictsConflicts(t *testing.T) {
	s := newTestSession()
	_, err := s.AssignRow(models.EntityPath{"GROUP", "EU", "DE"}, "revenue", 0)
	require.NoError(t, err)

	evicted, err := s.AssignRow(models.EntityPath{"GROUP", "EU"}, "revenue", 1)

	require.NoError(t, err)
	require.Len(t, evicted, 1)
	assert.Equal(t, "GROUP/EU/DE", evicted[0].EntityPath.Key())
}

func TestSetDataset_ClearsState(t *testing.T) {
	s := newTestSession()
	_, _ = s.AssignRow(models.EntityPath{"GROUP"}, "revenue", 0)
	_, _ = s.AssignColumn(models.ColumnRoleValue, "2024")
	gen := s.Generation()

	s.SetDataset(&models.SourceDataset{FileName: "other.csv", Headers: []string{"A"}})

	assert.Equal(t, 0, s.Store().Len())
	assert.Equal(t, "", s.Assigner().Column(models.ColumnRoleValue))
	assert.Greater(t, s.Generation(), gen)
}

func TestSetTemplate_RetainsSurvivingCodes(t *testing.T) {
	s := newTestSession()
	_, _ = s.AssignRow(models.EntityPath{"GROUP"}, "revenue", 0)
	_, _ = s.AssignRow(models.EntityPath{"GROUP"}, "cogs", 1)

	dropped := s.SetTemplate(&models.Template{
		Code:          "ifrs-pl-v2",
		StatementType: models.StatementTypePL,
		LineItems:     []models.LineItem{{Code: "revenue", DisplayName: "Revenue"}},
	})

	require.Len(t, dropped, 1)
	assert.Equal(t, "cogs", dropped[0].LineItemCode)
	assert.Equal(t, 1, s.Store().Len())
}

func TestAssignColumn(t *testing.T) {
	s := newTestSession()

	_, err := s.AssignColumn(models.ColumnRoleValue, "2024")
	require.NoError(t, err)
	assert.Equal(t, "2024", s.Assigner().Column(models.ColumnRoleValue))

	_, err = s.AssignColumn(models.ColumnRoleValue, "NotAColumn")
	assert.Error(t, err)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := newTestSession()
	_, _ = s.AssignRow(models.EntityPath{"GROUP", "EU"}, "revenue", 0)
	_, _ = s.AssignColumn(models.ColumnRoleLineItem, "Account")
	_, _ = s.AssignColumn(models.ColumnRoleValue, "2024")

	config := s.Snapshot()
	assert.Equal(t, "ifrs-pl", config.TemplateCode)
	assert.Equal(t, "upload.csv", config.SourceFileName)

	restored := New("tenant-1", "company-1", models.StatementTypePL, testTemplate(), testForest())
	n := restored.Restore(config, testDataset())

	assert.Equal(t, 1, n)
	_, ok := restored.Store().Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
	assert.True(t, ok)
	assert.Equal(t, "2024", restored.Assigner().Column(models.ColumnRoleValue))
}

func TestRestore_DropsStaleReferences(t *testing.T) {
	s := New("tenant-1", "company-1", models.StatementTypePL, testTemplate(), testForest())

	n := s.Restore(models.MappingConfig{
		TemplateCode: "ifrs-pl",
		Mappings: []models.HierarchicalMapping{
			{EntityPath: models.EntityPath{"GROUP"}, LineItemCode: "revenue", SourceRowIndex: 0},
			{EntityPath: models.EntityPath{"GROUP"}, LineItemCode: "retired_item", SourceRowIndex: 1},
			{EntityPath: models.EntityPath{"GONE"}, LineItemCode: "cogs", SourceRowIndex: 1},
			{EntityPath: models.EntityPath{"GROUP", "EU"}, LineItemCode: "cogs", SourceRowIndex: 99},
		},
		ColumnConfig: models.ColumnConfig{
			models.ColumnRoleValue:    "2024",
			models.ColumnRoleScenario: "Scenario", // not a pl role
		},
	}, testDataset())

	assert.Equal(t, 1, n)
	_, ok := s.Store().Lookup(models.EntityPath{"GROUP"}, "revenue")
	assert.True(t, ok)
	assert.Equal(t, "2024", s.Assigner().Column(models.ColumnRoleValue))
	assert.Equal(t, "", s.Assigner().Column(models.ColumnRoleScenario))
}

func TestRestore_NilDatasetKeepsRowMappings(t *testing.T) {
	s := New("tenant-1", "company-1", models.StatementTypePL, testTemplate(), testForest())

	n := s.Restore(models.MappingConfig{
		TemplateCode: "ifrs-pl",
		Mappings: []models.HierarchicalMapping{
			{EntityPath: models.EntityPath{"GROUP"}, LineItemCode: "revenue", SourceRowIndex: 5},
		},
	}, nil)

	// the staged file may be gone; mappings still restore and the UI shows
	// them as pointing at an absent file
	assert.Equal(t, 1, n)
}
