package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string { return &s }

func testEntities() []*models.Entity {
	return []*models.Entity{
		{ID: "1", Code: "GROUP", Name: "Group"},
		{ID: "2", Code: "EU", Name: "Europe", ParentID: strPtr("1")},
		{ID: "3", Code: "US", Name: "United States", ParentID: strPtr("1")},
		{ID: "4", Code: "DE", Name: "Germany", ParentID: strPtr("2")},
		{ID: "5", Code: "FR", Name: "France", ParentID: strPtr("2")},
	}
}

func TestBuildForest(t *testing.T) {
	forest := BuildForest(testEntities())

	require.Len(t, forest.Roots, 1)
	require.Empty(t, forest.Orphans)

	group := forest.Roots[0]
	assert.Equal(t, "GROUP", group.Code)
	require.Len(t, group.Children, 2)

	// children keep input row order
	assert.Equal(t, "EU", group.Children[0].Code)
	assert.Equal(t, "US", group.Children[1].Code)
	require.Len(t, group.Children[0].Children, 2)
	assert.Equal(t, "DE", group.Children[0].Children[0].Code)
	assert.Equal(t, "FR", group.Children[0].Children[1].Code)
}

func TestBuildForest_Deterministic(t *testing.T) {
	a := BuildForest(testEntities())
	b := BuildForest(testEntities())

	var pathsA, pathsB []string
	a.Walk(func(_ *models.Entity, path models.EntityPath) { pathsA = append(pathsA, path.Key()) })
	b.Walk(func(_ *models.Entity, path models.EntityPath) { pathsB = append(pathsB, path.Key()) })
	assert.Equal(t, pathsA, pathsB)
}

func TestBuildForest_SiblingsKeepInputOrder(t *testing.T) {
	entities := []*models.Entity{
		{ID: "1", Code: "GROUP"},
		{ID: "2", Code: "ZETA", ParentID: strPtr("1")},
		{ID: "3", Code: "ALPHA", ParentID: strPtr("1")},
	}

	forest := BuildForest(entities)

	require.Len(t, forest.Roots, 1)
	require.Len(t, forest.Roots[0].Children, 2)
	assert.Equal(t, "ZETA", forest.Roots[0].Children[0].Code)
	assert.Equal(t, "ALPHA", forest.Roots[0].Children[1].Code)
}

func TestBuildForest_Orphans(t *testing.T) {
	entities := []*models.Entity{
		{ID: "1", Code: "GROUP"},
		{ID: "2", Code: "LOST", ParentID: strPtr("missing")},
		{ID: "3", Code: "SELF", ParentID: strPtr("3")},
	}

	forest := BuildForest(entities)

	require.Len(t, forest.Roots, 1)
	require.Len(t, forest.Orphans, 2)
	assert.Equal(t, "LOST", forest.Orphans[0].Code)
	assert.Equal(t, "SELF", forest.Orphans[1].Code)
}

func TestBuildForest_MultipleRoots(t *testing.T) {
	entities := []*models.Entity{
		{ID: "1", Code: "ZETA"},
		{ID: "2", Code: "ALPHA"},
	}

	forest := BuildForest(entities)

	require.Len(t, forest.Roots, 2)
	assert.Equal(t, "ZETA", forest.Roots[0].Code)
	assert.Equal(t, "ALPHA", forest.Roots[1].Code)
}

func TestFindByPath(t *testing.T) {
	forest := BuildForest(testEntities())

	de := forest.FindByPath(models.EntityPath{"GROUP", "EU", "DE"})
	require.NotNil(t, de)
	assert.Equal(t, "4", de.ID)

	assert.Nil(t, forest.FindByPath(models.EntityPath{"GROUP", "EU", "XX"}))
	assert.Nil(t, forest.FindByPath(models.EntityPath{"EU"}))
	assert.Nil(t, forest.FindByPath(nil))
}

func TestPathTo(t *testing.T) {
	forest := BuildForest(testEntities())

	assert.Equal(t, models.EntityPath{"GROUP", "EU", "FR"}, forest.PathTo("5"))
	assert.Equal(t, models.EntityPath{"GROUP"}, forest.PathTo("1"))
	assert.Nil(t, forest.PathTo("missing"))
}

func TestWalk_ParentBeforeChild(t *testing.T) {
	forest := BuildForest(testEntities())

	var order []string
	forest.Walk(func(e *models.Entity, _ models.EntityPath) { order = append(order, e.Code) })

	assert.Equal(t, []string{"GROUP", "EU", "DE", "FR", "US"}, order)
}
