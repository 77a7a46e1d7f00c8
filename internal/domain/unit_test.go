package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePricePU_Slash(t *testing.T) {
	pu, err := ParsePricePU("€2.50/kg")
	require.NoError(t, err)
	assert.Equal(t, UnitKilogrammes, pu.Unit)
	assert.Equal(t, uint64(250), pu.Price.Value)
}

func TestParsePricePU_Space(t *testing.T) {
	pu, err := ParsePricePU("€1.00 each")
	require.NoError(t, err)
	assert.Equal(t, UnitPiece, pu.Unit)
}

func TestParsePricePU_AppliesConversionFactor(t *testing.T) {
	pu, err := ParsePricePU("€1.00/g")
	require.NoError(t, err)
	assert.Equal(t, UnitKilogrammes, pu.Unit)
	assert.Equal(t, uint64(100000), pu.Price.Value)
}

func TestParsePricePU_UnrecognisedUnit(t *testing.T) {
	_, err := ParsePricePU("€1.00/stone")
	assert.Error(t, err)
}

func TestParsePricePU_Empty(t *testing.T) {
	_, err := ParsePricePU("")
	assert.Error(t, err)
}

func TestPricePU_Compare_DifferentUnit_Unordered(t *testing.T) {
	a := PricePU{Price: Price{Currency: EUR, Value: 100}, Unit: UnitKilogrammes}
	b := PricePU{Price: Price{Currency: EUR, Value: 100}, Unit: UnitLitres}
	assert.Equal(t, OrderUnordered, a.Compare(b))
}

func TestPricePU_JSON_RoundTrip(t *testing.T) {
	pu := PricePU{Price: Price{Currency: EUR, Value: 250}, Unit: UnitKilogrammes}

	data, err := json.Marshal(pu)
	require.NoError(t, err)

	var out PricePU
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, pu, out)
}

func TestPricePU_String(t *testing.T) {
	pu := PricePU{Price: Price{Currency: EUR, Value: 250}, Unit: UnitKilogrammes}
	assert.Equal(t, "€2.50/kg", pu.String())
}

func TestParsePricePU_Metres(t *testing.T) {
	pu, err := ParsePricePU("€1.50/m")
	require.NoError(t, err)
	assert.Equal(t, UnitMetres, pu.Unit)
	assert.Equal(t, uint64(150), pu.Price.Value)
}

func TestPricePU_StringParseRoundTrip(t *testing.T) {
	for _, unit := range []Unit{UnitKilogrammes, UnitLitres, UnitSqMetres, UnitMetres, UnitPiece} {
		pu := PricePU{Price: Price{Currency: EUR, Value: 250}, Unit: unit}

		parsed, err := ParsePricePU(pu.String())
		require.NoError(t, err, "unit %v", unit)
		assert.Equal(t, pu, parsed, "unit %v", unit)
	}
}
