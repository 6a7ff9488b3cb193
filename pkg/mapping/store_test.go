package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func mk(path []string, code string, row int) models.HierarchicalMapping {
	return models.HierarchicalMapping{
		EntityPath:     models.EntityPath(path),
		LineItemCode:   code,
		SourceRowIndex: row,
	}
}

func TestAssignAndLookup(t *testing.T) {
	s := NewStore()

	evicted := s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 3))
	assert.Empty(t, evicted)

	got, ok := s.Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
	require.True(t, ok)
	assert.Equal(t, 3, got.SourceRowIndex)

	_, ok = s.Lookup(models.EntityPath{"GROUP"}, "revenue")
	assert.False(t, ok)
}

func TestAssign_OverwriteSamePath(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP"}, "revenue", 1))

	evicted := s.Assign(mk([]string{"GROUP"}, "revenue", 9))

	assert.Empty(t, evicted)
	assert.Equal(t, 1, s.Len())
	got, _ := s.Lookup(models.EntityPath{"GROUP"}, "revenue")
	assert.Equal(t, 9, got.SourceRowIndex)
}

func TestAssign_ParentEvictsChildren(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "EU", "DE"}, "revenue", 1))
	s.Assign(mk([]string{"GROUP", "EU", "FR"}, "revenue", 2))
	s.Assign(mk([]string{"GROUP", "US"}, "revenue", 3))

	evicted := s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 4))

	require.Len(t, evicted, 2)
	_, ok := s.Lookup(models.EntityPath{"GROUP", "EU", "DE"}, "revenue")
	assert.False(t, ok)
	_, ok = s.Lookup(models.EntityPath{"GROUP", "US"}, "revenue")
	assert.True(t, ok, "sibling subtree untouched")
	_, ok = s.Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
	assert.True(t, ok)
}

func TestAssign_ChildEvictsParent(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 1))

	evicted := s.Assign(mk([]string{"GROUP", "EU", "DE"}, "revenue", 2))

	require.Len(t, evicted, 1)
	assert.Equal(t, "GROUP/EU", evicted[0].EntityPath.Key())
	_, ok := s.Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
	assert.False(t, ok)
}

func TestAssign_IsolatedPerLineItem(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 1))

	evicted := s.Assign(mk([]string{"GROUP", "EU", "DE"}, "cogs", 2))

	assert.Empty(t, evicted, "conflict rule applies per line item")
	assert.Equal(t, 2, s.Len())
}

func TestUnassign(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 1))
	s.Assign(mk([]string{"GROUP", "US"}, "revenue", 2))

	assert.True(t, s.Unassign(models.EntityPath{"GROUP", "EU"}, "revenue"))
	assert.False(t, s.Unassign(models.EntityPath{"GROUP", "EU"}, "revenue"))
	assert.False(t, s.Unassign(models.EntityPath{"GROUP"}, "cogs"))
	assert.Equal(t, 1, s.Len())
}

func TestForEntity(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 1))
	s.Assign(mk([]string{"GROUP", "EU"}, "cogs", 2))
	s.Assign(mk([]string{"GROUP"}, "opex", 3))

	got := s.ForEntity(models.EntityPath{"GROUP", "EU"})

	require.Len(t, got, 2)
	assert.Equal(t, 1, got["revenue"].SourceRowIndex)
	assert.Equal(t, 2, got["cogs"].SourceRowIndex)
}

func TestClearLineItem(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 1))
	s.Assign(mk([]string{"GROUP", "US"}, "revenue", 2))
	s.Assign(mk([]string{"GROUP"}, "cogs", 3))

	assert.Equal(t, 2, s.ClearLineItem("revenue"))
	assert.Equal(t, 0, s.ClearLineItem("revenue"))
	assert.Equal(t, 1, s.Len())
}

func TestRetainLineItems(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP"}, "revenue", 1))
	s.Assign(mk([]string{"GROUP"}, "legacy_item", 2))

	dropped := s.RetainLineItems(map[string]bool{"revenue": true})

	require.Len(t, dropped, 1)
	assert.Equal(t, "legacy_item", dropped[0].LineItemCode)
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotDeterministic(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP", "US"}, "revenue", 2))
	s.Assign(mk([]string{"GROUP", "EU"}, "revenue", 1))
	s.Assign(mk([]string{"GROUP"}, "cogs", 3))

	snap := s.Snapshot()

	require.Len(t, snap, 3)
	assert.Equal(t, "cogs", snap[0].LineItemCode)
	assert.Equal(t, "GROUP/EU", snap[1].EntityPath.Key())
	assert.Equal(t, "GROUP/US", snap[2].EntityPath.Key())

	// mutating the snapshot must not touch the store
	snap[1].EntityPath[0] = "HACKED"
	_, ok := s.Lookup(models.EntityPath{"GROUP", "EU"}, "revenue")
	assert.True(t, ok)
}

func TestReplace_RejectsPrefixViolations(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP"}, "opex", 5))

	s.Replace([]models.HierarchicalMapping{
		mk([]string{"GROUP", "EU"}, "revenue", 1),
		mk([]string{"GROUP", "EU", "DE"}, "revenue", 2),
	})

	// later entry wins; earlier conflicting parent is gone, as is prior state
	assert.Equal(t, 1, s.Len())
	_, ok := s.Lookup(models.EntityPath{"GROUP", "EU", "DE"}, "revenue")
	assert.True(t, ok)
	_, ok = s.Lookup(models.EntityPath{"GROUP"}, "opex")
	assert.False(t, ok)
}

func TestClearAll(t *testing.T) {
	s := NewStore()
	s.Assign(mk([]string{"GROUP"}, "revenue", 1))

	s.ClearAll()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot())
}
