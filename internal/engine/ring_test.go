package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitrage-core/internal/models"
)

func opp(id string) *models.Opportunity {
	return &models.Opportunity{ID: id}
}

func TestRing_RecentReturnsChronologicalOrder(t *testing.T) {
	r := newRing(5)
	r.push(opp("a"))
	r.push(opp("b"))
	r.push(opp("c"))

	got := r.recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestRing_RecentRespectsLimit(t *testing.T) {
	r := newRing(5)
	r.push(opp("a"))
	r.push(opp("b"))
	r.push(opp("c"))

	got := r.recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"b", "c"}, ids(got))
}

func TestRing_EvictsOldestWhenFull(t *testing.T) {
	r := newRing(3)
	r.push(opp("a"))
	r.push(opp("b"))
	r.push(opp("c"))
	r.push(opp("d")) // evicts "a"

	got := r.recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "c", "d"}, ids(got))
	assert.Equal(t, 3, r.len())
}

func TestRing_DefaultCapacity(t *testing.T) {
	r := newRing(0)
	assert.Equal(t, 1000, r.capacity)
}

func ids(opps []*models.Opportunity) []string {
	out := make([]string, len(opps))
	for i, o := range opps {
		out[i] = o.ID
	}
	return out
}
