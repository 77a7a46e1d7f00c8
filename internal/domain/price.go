// Package domain holds the value model shared across the scraper: prices,
// units, offers, retailers and the products assembled from them.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Currency identifies the monetary unit a Price is expressed in. Only EUR is
// defined; the type exists so a second currency can be added without
// reshaping Price.
type Currency int

const (
	EUR Currency = iota
)

var currencySymbols = map[Currency]string{
	EUR: "€",
}

// Ordering is the result of comparing two values that may not share a
// common unit or currency.
type Ordering int

const (
	OrderLess Ordering = iota
	OrderEqual
	OrderGreater
	OrderUnordered
)

// Price is a non-negative amount of minor currency units (euro cents).
type Price struct {
	Currency Currency
	Value    uint64
}

// String renders the price with two-decimal precision and a currency prefix,
// e.g. "€12.34".
func (p Price) String() string {
	symbol := currencySymbols[p.Currency]
	whole := p.Value / 100
	frac := p.Value % 100
	return fmt.Sprintf("%s%d.%02d", symbol, whole, frac)
}

// ParsePrice parses strings of the form "[€]<int>[.<frac>]", tolerating a
// ',' thousands separator. Unparseable input returns an error; retailer
// adapters treat that as a per-row parse failure to be logged and skipped
// rather than a fatal condition.
func ParsePrice(s string) (Price, error) {
	s = strings.ReplaceAll(s, ",", "")

	for cur, symbol := range currencySymbols {
		if strings.HasPrefix(s, symbol) {
			s = strings.TrimPrefix(s, symbol)
			return parsePriceDigits(cur, s)
		}
	}

	return parsePriceDigits(EUR, s)
}

func parsePriceDigits(cur Currency, s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Price{}, fmt.Errorf("domain: empty price string")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")

	wholeVal, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return Price{}, fmt.Errorf("domain: parsing price %q: %w", s, err)
	}

	value := wholeVal * 100
	if hasFrac {
		frac = strings.TrimSpace(frac)
		if len(frac) == 1 {
			frac += "0"
		}
		if len(frac) > 2 {
			frac = frac[:2]
		}
		fracVal, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return Price{}, fmt.Errorf("domain: parsing price fraction %q: %w", s, err)
		}
		value += fracVal
	}

	return Price{Currency: cur, Value: value}, nil
}

// Mul scales the price by a non-negative real factor, truncating to an
// integer number of cents.
func (p Price) Mul(factor float64) Price {
	return Price{Currency: p.Currency, Value: uint64(float64(p.Value) * factor)}
}

// Compare orders two prices. Prices in different currencies are unordered.
func (p Price) Compare(o Price) Ordering {
	if p.Currency != o.Currency {
		return OrderUnordered
	}
	switch {
	case p.Value < o.Value:
		return OrderLess
	case p.Value > o.Value:
		return OrderGreater
	default:
		return OrderEqual
	}
}

// MarshalJSON encodes the price as the two-element sequence [currency, value].
func (p Price) MarshalJSON() ([]byte, error) {
	return marshalPair(int(p.Currency), p.Value)
}

// UnmarshalJSON decodes the two-element sequence [currency, value].
func (p *Price) UnmarshalJSON(data []byte) error {
	var cur int
	var val uint64
	if err := unmarshalPair(data, &cur, &val); err != nil {
		return err
	}
	p.Currency = Currency(cur)
	p.Value = val
	return nil
}
