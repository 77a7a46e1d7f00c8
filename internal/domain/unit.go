package domain

import (
	"fmt"
	"strings"
)

// Unit is the physical quantity a PricePU is expressed in terms of.
type Unit int

const (
	UnitNone Unit = iota
	UnitPiece
	UnitKilogrammes
	UnitLitres
	UnitSqMetres
	UnitMetres
)

// unitSuffixes mirrors the original store's presentation strings, indexed
// by Unit.
var unitSuffixes = [...]string{
	UnitNone:        "",
	UnitPiece:       " each",
	UnitKilogrammes: "/kg",
	UnitLitres:      "/l",
	UnitSqMetres:    "/m²",
	UnitMetres:      "/m",
}

type unitConversion struct {
	unit   Unit
	factor float64
}

// unitConversions maps a case-folded unit token, as it appears on a
// retailer's page, to the Unit it denotes and the multiplicative factor
// applied to the accompanying price to express it per that unit.
var unitConversions = map[string]unitConversion{
	"kg":     {UnitKilogrammes, 1},
	"g":      {UnitKilogrammes, 1000},
	"75cl":   {UnitLitres, 1 / 0.75},
	"70cl":   {UnitLitres, 1 / 0.7},
	"l":      {UnitLitres, 1},
	"litre":  {UnitLitres, 1},
	"ml":     {UnitLitres, 1000},
	"m²":     {UnitSqMetres, 1},
	"each":   {UnitPiece, 1},
	"100sht": {UnitPiece, 0.01},
	"metre":  {UnitMetres, 1},
	"m":      {UnitMetres, 1},
}

// PricePU is a Price expressed per Unit, e.g. €2.50/kg.
type PricePU struct {
	Price Price
	Unit  Unit
}

// String renders the price followed by the unit's fixed suffix, e.g.
// "€2.50/kg".
func (pu PricePU) String() string {
	return pu.Price.String() + unitSuffixes[pu.Unit]
}

// pricePUSeparators are tried longest-first when splitting a price-per-unit
// string into its price and unit portions.
var pricePUSeparators = []string{" per ", "/", " "}

// ParsePricePU parses strings of the form "<price><sep><unit>" where sep is
// one of " per ", "/", " ". The unit token is case-folded and looked up in
// a fixed conversion table that both identifies the Unit and supplies the
// multiplicative factor applied to the price.
func ParsePricePU(s string) (PricePU, error) {
	if s == "" {
		return PricePU{}, fmt.Errorf("domain: empty price-per-unit string")
	}

	for _, sep := range pricePUSeparators {
		idx := strings.Index(s, sep)
		if idx < 0 {
			continue
		}

		priceStr := s[:idx]
		unitStr := strings.ToLower(strings.TrimSpace(s[idx+len(sep):]))

		conv, ok := unitConversions[unitStr]
		if !ok {
			return PricePU{}, fmt.Errorf("domain: unrecognised unit %q in %q", unitStr, s)
		}

		price, err := ParsePrice(priceStr)
		if err != nil {
			return PricePU{}, fmt.Errorf("domain: parsing price-per-unit %q: %w", s, err)
		}

		return PricePU{Price: price.Mul(conv.factor), Unit: conv.unit}, nil
	}

	return PricePU{}, fmt.Errorf("domain: no recognised separator in %q", s)
}

// Compare orders two prices-per-unit. Values expressed in different units
// are unordered.
func (pu PricePU) Compare(o PricePU) Ordering {
	if pu.Unit != o.Unit {
		return OrderUnordered
	}
	return pu.Price.Compare(o.Price)
}

// MarshalJSON encodes as the two-element sequence [unit, [currency, value]].
func (pu PricePU) MarshalJSON() ([]byte, error) {
	return marshalPair(int(pu.Unit), pu.Price)
}

// UnmarshalJSON decodes the two-element sequence [unit, [currency, value]].
func (pu *PricePU) UnmarshalJSON(data []byte) error {
	var unit int
	var price Price
	if err := unmarshalPair(data, &unit, &price); err != nil {
		return err
	}
	pu.Unit = Unit(unit)
	pu.Price = price
	return nil
}
