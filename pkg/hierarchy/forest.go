package hierarchy

import (
	"github.com/Ramsey-B/fern/pkg/models"
)

// Forest is the resolved entity tree for one company: the roots in stable
// order plus any entities whose parent id never resolved. Orphans are kept
// visible so the UI can surface them instead of silently dropping rows.
type Forest struct {
	Roots   []*models.Entity
	Orphans []*models.Entity
}

// BuildForest links a flat entity list into parent/child trees.
//
// Roots, orphans, and children keep the order of the input rows, so two
// builds over the same rows always produce the same shape. An entity with a
// dangling ParentID is reported as an orphan, not attached anywhere. Cycles
// cannot form because a node is only ever attached under an entity that
// exists in the input and each node is attached at most once; a
// self-referencing entity is treated as an orphan.
func BuildForest(entities []*models.Entity) *Forest {
	byID := make(map[string]*models.Entity, len(entities))
	for _, e := range entities {
		e.Children = nil
		byID[e.ID] = e
	}

	forest := &Forest{}
	for _, e := range entities {
		if e.IsRoot() {
			forest.Roots = append(forest.Roots, e)
			continue
		}
		parent, ok := byID[*e.ParentID]
		if !ok || parent == e {
			forest.Orphans = append(forest.Orphans, e)
			continue
		}
		parent.Children = append(parent.Children, e)
	}

	return forest
}

func findByCode(entities []*models.Entity, code string) *models.Entity {
	for _, e := range entities {
		if e.Code == code {
			return e
		}
	}
	return nil
}

// FindByPath walks a code path from the roots down. Returns nil when any
// segment is missing, including the empty path.
func (f *Forest) FindByPath(path models.EntityPath) *models.Entity {
	if len(path) == 0 {
		return nil
	}
	current := findByCode(f.Roots, path[0])
	for _, code := range path[1:] {
		if current == nil {
			return nil
		}
		current = findByCode(current.Children, code)
	}
	return current
}

// PathTo returns the root-to-entity code path for the entity with the given
// id, or nil when the id is unknown or orphaned.
func (f *Forest) PathTo(id string) models.EntityPath {
	for _, root := range f.Roots {
		if path := pathTo(root, id, models.EntityPath{root.Code}); path != nil {
			return path
		}
	}
	return nil
}

func pathTo(node *models.Entity, id string, prefix models.EntityPath) models.EntityPath {
	if node.ID == id {
		return prefix.Clone()
	}
	for _, child := range node.Children {
		if path := pathTo(child, id, append(prefix, child.Code)); path != nil {
			return path
		}
	}
	return nil
}

// Walk visits every attached entity depth-first, parents before children.
// Orphans are not visited.
func (f *Forest) Walk(visit func(e *models.Entity, path models.EntityPath)) {
	for _, root := range f.Roots {
		walk(root, models.EntityPath{root.Code}, visit)
	}
}

func walk(node *models.Entity, path models.EntityPath, visit func(e *models.Entity, path models.EntityPath)) {
	visit(node, path.Clone())
	for _, child := range node.Children {
		walk(child, append(path, child.Code), visit)
	}
}
