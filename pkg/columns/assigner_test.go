package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestAssignRole_Overwrite(t *testing.T) {
	a := NewAssigner(models.StatementRoles)

	_, err := a.AssignRole(models.ColumnRoleValue, "2023")
	require.NoError(t, err)
	stolen, err := a.AssignRole(models.ColumnRoleValue, "2024")
	require.NoError(t, err)

	assert.Nil(t, stolen)
	assert.Equal(t, "2024", a.Column(models.ColumnRoleValue))
}

func TestAssignRole_StealsFromOtherRole(t *testing.T) {
	a := NewAssigner(models.StatementRoles)

	_, err := a.AssignRole(models.ColumnRoleLineItem, "Account")
	require.NoError(t, err)
	stolen, err := a.AssignRole(models.ColumnRoleValue, "Account")
	require.NoError(t, err)

	require.NotNil(t, stolen)
	assert.Equal(t, models.ColumnRoleLineItem, *stolen)
	assert.Equal(t, "", a.Column(models.ColumnRoleLineItem))
	assert.Equal(t, "Account", a.Column(models.ColumnRoleValue))
}

func TestAssignRole_UnknownRole(t *testing.T) {
	a := NewAssigner(models.StatementRoles)

	_, err := a.AssignRole(models.ColumnRoleScenario, "Scenario")

	assert.Error(t, err)
	assert.Equal(t, "", a.Column(models.ColumnRoleScenario))
}

func TestClearRole(t *testing.T) {
	a := NewAssigner(models.StatementRoles)
	_, _ = a.AssignRole(models.ColumnRoleValue, "2024")

	a.ClearRole(models.ColumnRoleValue)

	assert.Equal(t, "", a.Column(models.ColumnRoleValue))
}

func TestConfigAndLoad(t *testing.T) {
	a := NewAssigner(models.StatementRoles)
	_, _ = a.AssignRole(models.ColumnRoleLineItem, "Account")
	_, _ = a.AssignRole(models.ColumnRoleValue, "2024")

	config := a.Config()

	b := NewAssigner(models.StatementRoles)
	b.Load(config)
	assert.Equal(t, "Account", b.Column(models.ColumnRoleLineItem))
	assert.Equal(t, "2024", b.Column(models.ColumnRoleValue))

	// snapshot is detached
	config[models.ColumnRoleValue] = "mutated"
	assert.Equal(t, "2024", a.Column(models.ColumnRoleValue))
}

func TestLoad_DropsForeignRolesAndDuplicates(t *testing.T) {
	a := NewAssigner(models.StatementRoles)

	a.Load(models.ColumnConfig{
		models.ColumnRoleLineItem: "Account",
		models.ColumnRoleValue:    "Account",  // same column twice
		models.ColumnRoleScenario: "Scenario", // not in the statement role set
	})

	// declared order replays line_item first, then value steals the column
	assert.Equal(t, "", a.Column(models.ColumnRoleLineItem))
	assert.Equal(t, "Account", a.Column(models.ColumnRoleValue))
	assert.Equal(t, "", a.Column(models.ColumnRoleScenario))
}

func TestDerivedRange(t *testing.T) {
	headers := []string{"Scenario", "Variable", "Units", "2022", "2023", "2024"}
	a := NewAssigner(models.ScenarioRoles)
	_, _ = a.AssignRole(models.ColumnRoleValueStart, "2022")
	_, _ = a.AssignRole(models.ColumnRoleValueEnd, "2024")

	assert.Equal(t, []string{"2022", "2023", "2024"}, a.DerivedRange(models.ColumnRoleValueStart, models.ColumnRoleValueEnd, headers))
}

func TestDerivedRange_ReversedEndpoints(t *testing.T) {
	headers := []string{"2022", "2023", "2024"}
	a := NewAssigner(models.ScenarioRoles)
	_, _ = a.AssignRole(models.ColumnRoleValueStart, "2024")
	_, _ = a.AssignRole(models.ColumnRoleValueEnd, "2022")

	assert.Equal(t, []string{"2022", "2023", "2024"}, a.DerivedRange(models.ColumnRoleValueStart, models.ColumnRoleValueEnd, headers))
}

func TestDerivedRange_EmptyStates(t *testing.T) {
	headers := []string{"2022", "2023"}
	a := NewAssigner(models.ScenarioRoles)

	assert.Empty(t, a.DerivedRange(models.ColumnRoleValueStart, models.ColumnRoleValueEnd, headers), "nothing bound")

	_, _ = a.AssignRole(models.ColumnRoleValueStart, "2022")
	assert.Empty(t, a.DerivedRange(models.ColumnRoleValueStart, models.ColumnRoleValueEnd, headers), "end unbound")

	_, _ = a.AssignRole(models.ColumnRoleValueEnd, "2099")
	assert.Empty(t, a.DerivedRange(models.ColumnRoleValueStart, models.ColumnRoleValueEnd, headers), "end not in headers")
}
