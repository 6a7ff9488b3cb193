package columns

import (
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Assigner binds semantic roles to source-column names for one statement
// surface. The role set is closed at construction (it differs between
// statement and scenario screens). At most one column per role, and at most
// one role per column: binding a column that already holds a different role
// steals it from that role.
//
// Not safe for concurrent use; callers serialize through the owning session.
type Assigner struct {
	roles   []models.ColumnRole
	allowed map[models.ColumnRole]bool
	byRole  map[models.ColumnRole]string
}

func NewAssigner(roles []models.ColumnRole) *Assigner {
	allowed := make(map[models.ColumnRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return &Assigner{
		roles:   roles,
		allowed: allowed,
		byRole:  make(map[models.ColumnRole]string),
	}
}

// AssignRole binds the column to the role, overwriting any previous binding
// for that role. If the column currently holds a different role, that role is
// cleared and returned as stolenFrom. An unknown role is an error.
func (a *Assigner) AssignRole(role models.ColumnRole, columnName string) (stolenFrom *models.ColumnRole, err error) {
	if !a.allowed[role] {
		return nil, errors.NewMappingError("unknown column role").AddRole(string(role))
	}
	for other, col := range a.byRole {
		if other != role && col == columnName {
			delete(a.byRole, other)
			stolen := other
			stolenFrom = &stolen
			break
		}
	}
	a.byRole[role] = columnName
	return stolenFrom, nil
}

// ClearRole removes the binding for the role, if any.
func (a *Assigner) ClearRole(role models.ColumnRole) {
	delete(a.byRole, role)
}

// Column returns the column bound to the role, or "" when unbound.
func (a *Assigner) Column(role models.ColumnRole) string {
	return a.byRole[role]
}

// Roles returns the closed role set this assigner was built with.
func (a *Assigner) Roles() []models.ColumnRole {
	return a.roles
}

// Config snapshots the current bindings. The result is detached from the
// assigner.
func (a *Assigner) Config() models.ColumnConfig {
	out := make(models.ColumnConfig, len(a.byRole))
	for role, col := range a.byRole {
		out[role] = col
	}
	return out
}

// Load replaces the bindings from a persisted config. Roles outside the
// closed set and duplicate column bindings are dropped rather than errored,
// so a config saved under an older role layout still restores what it can.
// Roles are replayed in the assigner's declared order, which makes the
// duplicate-column winner deterministic.
func (a *Assigner) Load(config models.ColumnConfig) {
	a.byRole = make(map[models.ColumnRole]string)
	for _, role := range a.roles {
		col, ok := config[role]
		if !ok || col == "" {
			continue
		}
		a.AssignRole(role, col)
	}
}

// ClearAll removes every binding.
func (a *Assigner) ClearAll() {
	a.byRole = make(map[models.ColumnRole]string)
}

// DerivedRange resolves the columns bound to startRole and endRole to the
// contiguous slice of allColumns between and including them, by position in
// the source header. When either endpoint is unbound or absent from
// allColumns the range is empty; an empty range means "not yet configured"
// and is never an error.
func (a *Assigner) DerivedRange(startRole, endRole models.ColumnRole, allColumns []string) []string {
	start := indexOf(allColumns, a.byRole[startRole])
	end := indexOf(allColumns, a.byRole[endRole])
	if start < 0 || end < 0 {
		return nil
	}
	if start > end {
		start, end = end, start
	}
	out := make([]string, end-start+1)
	copy(out, allColumns[start:end+1])
	return out
}

func indexOf(columns []string, name string) int {
	if name == "" {
		return -1
	}
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
