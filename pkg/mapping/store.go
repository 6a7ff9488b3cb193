package mapping

import (
	"sort"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Store holds the hierarchical row mappings for one statement surface.
//
// Per line item the stored entity paths form an antichain: no path is a
// strict prefix of another, so a value can never be counted at both a node
// and one of its ancestors. Assign enforces this by evicting every stored
// mapping whose path conflicts with the incoming one.
//
// Store is not safe for concurrent use; callers serialize through the owning
// session.
type Store struct {
	byLineItem map[string][]models.HierarchicalMapping
}

func NewStore() *Store {
	return &Store{byLineItem: make(map[string][]models.HierarchicalMapping)}
}

// Assign records a mapping and returns the mappings it evicted.
//
// Eviction is symmetric in the path relation: mapping a parent removes the
// existing child mappings for that line item, and mapping a child removes an
// existing parent mapping, regardless of which was assigned first. Assigning
// the same (path, line item) again overwrites the row index in place.
func (s *Store) Assign(m models.HierarchicalMapping) []models.HierarchicalMapping {
	existing := s.byLineItem[m.LineItemCode]

	evicted := ectolinq.Filter(existing, func(e models.HierarchicalMapping) bool {
		return e.EntityPath.ConflictsWith(m.EntityPath)
	})
	kept := ectolinq.Filter(existing, func(e models.HierarchicalMapping) bool {
		return !e.EntityPath.ConflictsWith(m.EntityPath) && !e.EntityPath.Equals(m.EntityPath)
	})

	s.byLineItem[m.LineItemCode] = append(kept, models.HierarchicalMapping{
		EntityPath:     m.EntityPath.Clone(),
		LineItemCode:   m.LineItemCode,
		SourceRowIndex: m.SourceRowIndex,
	})
	return evicted
}

// Unassign removes the mapping at exactly this (path, line item). Removing a
// path does not touch mappings at its ancestors or descendants. Returns
// whether a mapping was removed.
func (s *Store) Unassign(path models.EntityPath, lineItemCode string) bool {
	existing, ok := s.byLineItem[lineItemCode]
	if !ok {
		return false
	}
	kept := ectolinq.Filter(existing, func(e models.HierarchicalMapping) bool {
		return !e.EntityPath.Equals(path)
	})
	if len(kept) == len(existing) {
		return false
	}
	if len(kept) == 0 {
		delete(s.byLineItem, lineItemCode)
	} else {
		s.byLineItem[lineItemCode] = kept
	}
	return true
}

// Lookup returns the mapping at exactly this (path, line item), if any.
func (s *Store) Lookup(path models.EntityPath, lineItemCode string) (models.HierarchicalMapping, bool) {
	for _, e := range s.byLineItem[lineItemCode] {
		if e.EntityPath.Equals(path) {
			return e, true
		}
	}
	return models.HierarchicalMapping{}, false
}

// ForEntity returns every mapping stored at exactly this path, keyed by line
// item code. Ancestor and descendant mappings are not included.
func (s *Store) ForEntity(path models.EntityPath) map[string]models.HierarchicalMapping {
	out := make(map[string]models.HierarchicalMapping)
	for code, mappings := range s.byLineItem {
		for _, e := range mappings {
			if e.EntityPath.Equals(path) {
				out[code] = e
				break
			}
		}
	}
	return out
}

// ClearLineItem removes every mapping for the line item, at every path.
// Returns how many were removed.
func (s *Store) ClearLineItem(lineItemCode string) int {
	n := len(s.byLineItem[lineItemCode])
	delete(s.byLineItem, lineItemCode)
	return n
}

// ClearAll empties the store.
func (s *Store) ClearAll() {
	s.byLineItem = make(map[string][]models.HierarchicalMapping)
}

// RetainLineItems drops every mapping whose line item code is not in keep.
// Used when the active template changes and stale codes must not survive.
// Returns the dropped mappings.
func (s *Store) RetainLineItems(keep map[string]bool) []models.HierarchicalMapping {
	var dropped []models.HierarchicalMapping
	for code, mappings := range s.byLineItem {
		if !keep[code] {
			dropped = append(dropped, mappings...)
			delete(s.byLineItem, code)
		}
	}
	return dropped
}

// Len is the total number of stored mappings.
func (s *Store) Len() int {
	n := 0
	for _, mappings := range s.byLineItem {
		n += len(mappings)
	}
	return n
}

// Snapshot returns every mapping in a deterministic order: by line item
// code, then by entity path key. The result is a deep copy.
func (s *Store) Snapshot() []models.HierarchicalMapping {
	out := make([]models.HierarchicalMapping, 0, s.Len())
	for _, mappings := range s.byLineItem {
		for _, m := range mappings {
			out = append(out, models.HierarchicalMapping{
				EntityPath:     m.EntityPath.Clone(),
				LineItemCode:   m.LineItemCode,
				SourceRowIndex: m.SourceRowIndex,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineItemCode != out[j].LineItemCode {
			return out[i].LineItemCode < out[j].LineItemCode
		}
		return out[i].EntityPath.Key() < out[j].EntityPath.Key()
	})
	return out
}

// Replace rebuilds the store from a snapshot. Each mapping is rehydrated
// through Assign, so a snapshot that contains conflicting paths cannot smuggle
// a prefix violation back in; later entries win.
func (s *Store) Replace(mappings []models.HierarchicalMapping) {
	s.ClearAll()
	for _, m := range mappings {
		s.Assign(m)
	}
}
