package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductList_NewFrom_AssignsRelevanceByPosition(t *testing.T) {
	products := []Product{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	l := NewProductListFrom(products, 10)

	qt := l.AsQueryTemplate("milk", NewStoreSelection(Lidl), time.Unix(0, 0))
	assert.Equal(t, 0, qt.Results["a"].Relevance)
	assert.Equal(t, 1, qt.Results["b"].Relevance)
	assert.Equal(t, 2, qt.Results["c"].Relevance)
}

func TestProductList_First(t *testing.T) {
	l := NewProductListFrom([]Product{{ID: "top"}, {ID: "second"}}, 5)
	assert.Equal(t, "top", l.First().ID)
}

func TestProductList_First_Empty(t *testing.T) {
	l := NewProductList(DepthIndefinite)
	assert.Equal(t, Product{}, l.First())
}

// TestProductList_Add_DepthFold covers the depth-folding law: DepthIndefinite
// (0) behaves as the identity element, and combining two finite depths keeps
// the shallower (more conservative) of the two.
func TestProductList_Add_DepthFold(t *testing.T) {
	cases := []struct {
		name        string
		left, right int
		want        int
	}{
		{"identity absorbs other depth", DepthIndefinite, 20, 20},
		{"other identity leaves depth unchanged", 20, DepthIndefinite, 20},
		{"both indefinite stays indefinite", DepthIndefinite, DepthIndefinite, DepthIndefinite},
		{"shallower of two finite depths wins", 20, 10, 10},
		{"order does not matter for the shallower pick", 10, 20, 10},
		{"equal finite depths are unchanged", 15, 15, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewProductList(tc.left)
			other := NewProductList(tc.right)
			l.Add(other)
			assert.Equal(t, tc.want, l.Depth())
		})
	}
}

func TestProductList_Add_ConcatenatesEntries(t *testing.T) {
	l := NewProductListFrom([]Product{{ID: "a"}}, 10)
	other := NewProductListFrom([]Product{{ID: "b"}}, 10)

	l.Add(other)

	assert.Equal(t, 2, l.Len())
	ids := make([]string, 0, 2)
	for _, p := range l.Products() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestProductList_Add_Nil(t *testing.T) {
	l := NewProductListFrom([]Product{{ID: "a"}}, 10)
	l.Add(nil)
	assert.Equal(t, 1, l.Len())
}

func TestProductList_AsQueryTemplate_CarriesStoresAndDepth(t *testing.T) {
	l := NewProductList(7)
	stores := NewStoreSelection(Aldi, Tesco)
	now := time.Unix(1000, 0)

	qt := l.AsQueryTemplate("bread", stores, now)

	assert.Equal(t, "bread", qt.QueryString)
	assert.Equal(t, stores, qt.Stores)
	assert.Equal(t, 7, qt.Depth)
	assert.True(t, qt.Timestamp.Equal(now))
	assert.Empty(t, qt.Results)
}
