package models

// StatementType identifies which dashboard mapping screen a configuration
// belongs to. PL/BS/CF statements map rows onto the entity hierarchy; the
// scenario screen maps driver rows onto a flat variable list.
type StatementType string

const (
	StatementTypePL       StatementType = "pl"
	StatementTypeBS       StatementType = "bs"
	StatementTypeCF       StatementType = "cf"
	StatementTypeScenario StatementType = "scenario"
)

// AllStatementTypes is the restore order: restores run sequentially, one
// statement type at a time, so a partial failure in one type never corrupts
// the in-memory state being built for another.
var AllStatementTypes = []StatementType{
	StatementTypePL,
	StatementTypeBS,
	StatementTypeCF,
	StatementTypeScenario,
}

func (s StatementType) IsValid() bool {
	switch s {
	case StatementTypePL, StatementTypeBS, StatementTypeCF, StatementTypeScenario:
		return true
	}
	return false
}

func (s StatementType) String() string {
	return string(s)
}
