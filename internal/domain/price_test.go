package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_ParseString_RoundTrip(t *testing.T) {
	cases := []string{"€0.00", "€1.00", "€12.34", "€1,234.56", "€5"}

	for _, s := range cases {
		p, err := ParsePrice(s)
		require.NoError(t, err, s)
		assert.Equal(t, EUR, p.Currency)

		again, err := ParsePrice(p.String())
		require.NoError(t, err, s)
		assert.Equal(t, p, again, s)
	}
}

func TestPrice_String(t *testing.T) {
	p := Price{Currency: EUR, Value: 1234}
	assert.Equal(t, "€12.34", p.String())
}

func TestPrice_ParsePrice_PadsShortFraction(t *testing.T) {
	p, err := ParsePrice("€1.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(150), p.Value)
}

func TestPrice_ParsePrice_Invalid(t *testing.T) {
	_, err := ParsePrice("not a price")
	assert.Error(t, err)
}

func TestPrice_Compare(t *testing.T) {
	a := Price{Currency: EUR, Value: 100}
	b := Price{Currency: EUR, Value: 200}
	assert.Equal(t, OrderLess, a.Compare(b))
	assert.Equal(t, OrderGreater, b.Compare(a))
	assert.Equal(t, OrderEqual, a.Compare(a))
}

func TestPrice_Compare_DifferentCurrency_Unordered(t *testing.T) {
	a := Price{Currency: EUR, Value: 100}
	b := Price{Currency: Currency(99), Value: 100}
	assert.Equal(t, OrderUnordered, a.Compare(b))
}

func TestPrice_Mul(t *testing.T) {
	p := Price{Currency: EUR, Value: 200}
	assert.Equal(t, uint64(100), p.Mul(0.5).Value)
}

func TestPrice_JSON_RoundTrip(t *testing.T) {
	p := Price{Currency: EUR, Value: 1999}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, "[0,1999]", string(data))

	var out Price
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, p, out)
}
