package models

import "strings"

// EntityPath is the root-to-node sequence of entity IDs identifying one
// position in the entity forest. Paths compare structurally, never by slice
// identity.
type EntityPath []string

// Key returns the canonical string form of the path, usable as a map key.
func (p EntityPath) Key() string {
	return strings.Join(p, "/")
}

// Equals reports structural equality.
func (p EntityPath) Equals(other EntityPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict prefix of other, i.e. the entity
// at p is a strict ancestor of the entity at other.
func (p EntityPath) IsAncestorOf(other EntityPath) bool {
	if len(p) >= len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// ConflictsWith reports whether two paths lie on the same root-to-leaf
// lineage: one is a strict prefix of the other. Mappings for the same line
// item on conflicting paths would double count when aggregated up the tree.
func (p EntityPath) ConflictsWith(other EntityPath) bool {
	return p.IsAncestorOf(other) || other.IsAncestorOf(p)
}

// Clone returns an independent copy of the path.
func (p EntityPath) Clone() EntityPath {
	out := make(EntityPath, len(p))
	copy(out, p)
	return out
}

// HierarchicalMapping binds one uploaded data row to one (entity path, line
// item) pair. The store in pkg/mapping keeps, per line item code, an
// antichain of entity paths: no two mappings on the same lineage.
type HierarchicalMapping struct {
	EntityPath     EntityPath `json:"entity_path"`
	LineItemCode   string     `json:"line_item_code"`
	SourceRowIndex int        `json:"source_row_index"`
}
