package session

import (
	"github.com/Ramsey-B/fern/pkg/columns"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/mapping"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Session is the live mapping state for one (company, statement type)
// surface: the active template, the resolved entity forest, the staged
// dataset, and the two mutable stores. All validation happens here so the
// store and assigner stay small and total.
//
// The generation counter fences async work: restores and file switches bump
// it, and a caller holding a stale generation must drop its result instead
// of writing it back. Session itself is not goroutine safe; the owning
// manager serializes access.
type Session struct {
	TenantID      string
	CompanyID     string
	StatementType models.StatementType

	template *models.Template
	forest   *hierarchy.Forest
	dataset  *models.SourceDataset

	store    *mapping.Store
	assigner *columns.Assigner

	generation uint64
}

func New(tenantID, companyID string, statementType models.StatementType, template *models.Template, forest *hierarchy.Forest) *Session {
	return &Session{
		TenantID:      tenantID,
		CompanyID:     companyID,
		StatementType: statementType,
		template:      template,
		forest:        forest,
		store:         mapping.NewStore(),
		assigner:      columns.NewAssigner(models.RolesFor(statementType)),
	}
}

func (s *Session) Template() *models.Template     { return s.template }
func (s *Session) Forest() *hierarchy.Forest      { return s.forest }
func (s *Session) Dataset() *models.SourceDataset { return s.dataset }
func (s *Session) Store() *mapping.Store          { return s.store }
func (s *Session) Assigner() *columns.Assigner    { return s.assigner }
func (s *Session) Generation() uint64             { return s.generation }

// SetDataset stages a new source file. Row mappings and column roles refer
// to the old file's rows and headers, so both are destroyed wholesale.
func (s *Session) SetDataset(dataset *models.SourceDataset) {
	s.dataset = dataset
	s.store.ClearAll()
	s.assigner.ClearAll()
	s.generation++
}

// SetTemplate switches the active template. Mappings whose line item codes
// survive in the new template are kept; the rest are dropped and returned.
func (s *Session) SetTemplate(template *models.Template) []models.HierarchicalMapping {
	s.template = template
	keep := make(map[string]bool)
	for code := range template.MappableCodes() {
		keep[code] = true
	}
	dropped := s.store.RetainLineItems(keep)
	s.generation++
	return dropped
}

// AssignRow validates a (path, line item, row) triple and commits it to the
// store, returning whatever conflicting mappings were evicted.
func (s *Session) AssignRow(path models.EntityPath, lineItemCode string, rowIndex int) ([]models.HierarchicalMapping, error) {
	if s.forest.FindByPath(path) == nil {
		return nil, errors.NewMappingError("entity path not found in hierarchy").AddEntityPath(path.Key())
	}
	item := s.template.LineItem(lineItemCode)
	if item == nil {
		return nil, errors.NewMappingError("line item not in active template").AddLineItem(lineItemCode)
	}
	if item.IsComputed {
		return nil, errors.NewMappingError("computed line items cannot be mapped").AddLineItem(lineItemCode)
	}
	if s.dataset == nil || s.dataset.Row(rowIndex) == nil {
		return nil, errors.NewMappingError("source row index out of range").AddLineItem(lineItemCode)
	}

	evicted := s.store.Assign(models.HierarchicalMapping{
		EntityPath:     path,
		LineItemCode:   lineItemCode,
		SourceRowIndex: rowIndex,
	})
	return evicted, nil
}

// UnassignRow removes the mapping at exactly this (path, line item).
func (s *Session) UnassignRow(path models.EntityPath, lineItemCode string) bool {
	return s.store.Unassign(path, lineItemCode)
}

// AssignColumn validates the column against the staged headers and binds it.
func (s *Session) AssignColumn(role models.ColumnRole, columnName string) (*models.ColumnRole, error) {
	if s.dataset == nil || !s.dataset.HasColumn(columnName) {
		return nil, errors.NewMappingError("column not present in source file").AddColumn(columnName).AddRole(string(role))
	}
	return s.assigner.AssignRole(role, columnName)
}

// Snapshot captures everything the persistence layer stores for this
// surface.
func (s *Session) Snapshot() models.MappingConfig {
	config := models.MappingConfig{
		TenantID:      s.TenantID,
		CompanyID:     s.CompanyID,
		StatementType: s.StatementType,
		TemplateCode:  s.template.Code,
		Mappings:      s.store.Snapshot(),
		ColumnConfig:  s.assigner.Config(),
	}
	if s.dataset != nil {
		config.SourceFileName = s.dataset.FileName
	}
	return config
}

// Restore rehydrates the session from a persisted config.
//
// The persisted state may be stale relative to the current template or
// hierarchy: mappings for line items the template no longer has, or for
// entity paths that no longer resolve, are dropped silently rather than
// failing the restore. Column roles outside the surface's role set are
// dropped the same way. Returns how many row mappings survived.
func (s *Session) Restore(config models.MappingConfig, dataset *models.SourceDataset) int {
	s.dataset = dataset
	s.store.ClearAll()
	s.assigner.ClearAll()
	s.generation++

	keep := make(map[string]bool)
	for code := range s.template.MappableCodes() {
		keep[code] = true
	}
	for _, m := range config.Mappings {
		if !keep[m.LineItemCode] {
			continue
		}
		if s.forest.FindByPath(m.EntityPath) == nil {
			continue
		}
		if dataset != nil && dataset.Row(m.SourceRowIndex) == nil {
			continue
		}
		s.store.Assign(m)
	}
	s.assigner.Load(config.ColumnConfig)
	return s.store.Len()
}
