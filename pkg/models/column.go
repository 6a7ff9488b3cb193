package models

// ColumnRole is a semantic label bound to at most one column of an uploaded
// dataset. The legal role set depends on the screen: statement mapping uses
// {line_item, value, currency}, scenario mapping uses {scenario, variable,
// units, value_start, value_end}.
type ColumnRole string

const (
	ColumnRoleLineItem   ColumnRole = "line_item"
	ColumnRoleValue      ColumnRole = "value"
	ColumnRoleCurrency   ColumnRole = "currency"
	ColumnRoleScenario   ColumnRole = "scenario"
	ColumnRoleVariable   ColumnRole = "variable"
	ColumnRoleUnits      ColumnRole = "units"
	ColumnRoleValueStart ColumnRole = "value_start"
	ColumnRoleValueEnd   ColumnRole = "value_end"
)

// StatementRoles is the closed role set for the statement mapping screens.
var StatementRoles = []ColumnRole{
	ColumnRoleLineItem,
	ColumnRoleValue,
	ColumnRoleCurrency,
}

// ScenarioRoles is the closed role set for the scenario mapping screen.
var ScenarioRoles = []ColumnRole{
	ColumnRoleScenario,
	ColumnRoleVariable,
	ColumnRoleUnits,
	ColumnRoleValueStart,
	ColumnRoleValueEnd,
}

// RolesFor returns the role set for a statement type.
func RolesFor(statementType StatementType) []ColumnRole {
	if statementType == StatementTypeScenario {
		return ScenarioRoles
	}
	return StatementRoles
}

// IsValidFor reports whether the role belongs to the statement type's role
// set.
func (r ColumnRole) IsValidFor(statementType StatementType) bool {
	for _, role := range RolesFor(statementType) {
		if role == r {
			return true
		}
	}
	return false
}

// ColumnConfig is the persisted form of the role assignments: role name to
// source column name, "" meaning unassigned.
type ColumnConfig map[ColumnRole]string
