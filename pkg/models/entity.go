package models

// Entity is a node in the organizational hierarchy (company, division, legal
// entity) that uploaded data rows can be mapped against. A flat list of
// entities is loaded per company and assembled into a forest by
// pkg/hierarchy; Children is populated by the builder, never persisted.
type Entity struct {
	ID       string    `json:"id" db:"id"`
	Code     string    `json:"code" db:"code"`
	Name     string    `json:"name" db:"name"`
	ParentID *string   `json:"parent_id,omitempty" db:"parent_id"`
	Children []*Entity `json:"children,omitempty" db:"-"`
}

// IsRoot reports whether the entity has no parent reference.
func (e *Entity) IsRoot() bool {
	return e.ParentID == nil || *e.ParentID == ""
}
