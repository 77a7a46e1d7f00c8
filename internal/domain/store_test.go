package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSelection_WithWithout(t *testing.T) {
	sel := NewStoreSelection(Lidl, Tesco)
	assert.True(t, sel.Has(Lidl))
	assert.True(t, sel.Has(Tesco))
	assert.False(t, sel.Has(Aldi))

	sel = sel.Without(Lidl)
	assert.False(t, sel.Has(Lidl))
}

func TestStoreSelection_SetLaws(t *testing.T) {
	a := NewStoreSelection(SuperValu, Lidl)
	b := NewStoreSelection(Lidl, Tesco)

	assert.Equal(t, NewStoreSelection(SuperValu, Lidl, Tesco), a.Union(b))
	assert.Equal(t, NewStoreSelection(Lidl), a.Intersect(b))
	assert.Equal(t, NewStoreSelection(SuperValu), a.Difference(b))
}

func TestStoreSelection_AllStoreSelection(t *testing.T) {
	all := AllStoreSelection()
	for _, id := range AllStores() {
		assert.True(t, all.Has(id))
	}
}

func TestStoreSelection_IsEmpty(t *testing.T) {
	assert.True(t, StoreSelection(0).IsEmpty())
	assert.False(t, NewStoreSelection(Aldi).IsEmpty())
}

func TestStoreSelection_Toggle(t *testing.T) {
	sel := NewStoreSelection(Lidl)

	sel = sel.Toggle(Aldi)
	assert.True(t, sel.Has(Aldi))
	assert.True(t, sel.Has(Lidl))

	sel = sel.Toggle(Aldi)
	assert.False(t, sel.Has(Aldi))
	assert.True(t, sel.Has(Lidl))
}

func TestStoreSelection_JSON_RoundTrip(t *testing.T) {
	sel := NewStoreSelection(SuperValu, Aldi, DunnesStores)

	data, err := json.Marshal(sel)
	require.NoError(t, err)

	var out StoreSelection
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, sel, out)
}

func TestStoreSelection_JSON_EmptyIsZero(t *testing.T) {
	data, err := json.Marshal(StoreSelection(0))
	require.NoError(t, err)
	assert.Equal(t, "0", string(data))
}

func TestStoreSelection_JSON_EncodesAsUnderlyingInteger(t *testing.T) {
	sel := NewStoreSelection(SuperValu, Aldi, DunnesStores)

	data, err := json.Marshal(sel)
	require.NoError(t, err)
	assert.Equal(t, "25", string(data))
}

func TestStoreID_String(t *testing.T) {
	assert.Equal(t, "Dunnes Stores", DunnesStores.String())
}
