package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// OfferType tags the kind of promotional annotation parsed from a retailer's
// offer text.
type OfferType int

const (
	OfferUnknown OfferType = iota
	OfferMultipleForReducedPrice
	OfferMultipleHeterogeneousForReducedPrice
	OfferReducedPriceAbsolute
	OfferReducedPricePercentage
	OfferReducedPriceDeduction
)

// Offer is a promotional annotation attached to a product row, e.g. "3 for
// €5" or "Save 20%".
type Offer struct {
	Type                     OfferType
	Text                     string
	Price                    *Price
	BulkAmount               int
	PriceReductionMultiplier float64
	MembershipOnly           bool
	Expiry                   time.Time
}

var (
	reMultipleFor    = regexp.MustCompile(`(?i)^\s*(\d+)\s+for\s+€?\s*([\d.,]+)\s*$`)
	reMultipleHetFor = regexp.MustCompile(`(?i)^\s*any\s+(\d+)\s+for\s+€?\s*([\d.,]+)\s*$`)
	reOnly           = regexp.MustCompile(`(?i)^\s*only\s+€?\s*([\d.,]+)\s*$`)
	reHalfPrice      = regexp.MustCompile(`(?i)^\s*half\s+price\s*$`)
	reSavePercent    = regexp.MustCompile(`(?i)^\s*save\s+(\d+(?:\.\d+)?)\s*%\s*$`)
	reSaveAbsolute   = regexp.MustCompile(`(?i)^\s*save\s+€?\s*([\d.,]+)\s*$`)
	reMembershipOnly = regexp.MustCompile(`(?i)\b(members?\s*only|clubcard\s+price|member\s+price)\b`)
)

// ParseOffer pattern-matches promotional text, case-insensitively, into a
// tagged Offer. expiry is supplied by the caller (retailer pages usually
// carry it in a separate element from the offer text itself); it is stored
// verbatim. Text that matches no known pattern is retained with
// Type == OfferUnknown so the raw string is never lost.
func ParseOffer(text string, expiry time.Time) Offer {
	offer := Offer{Text: text, Expiry: expiry}

	if reMembershipOnly.MatchString(text) {
		offer.MembershipOnly = true
	}

	switch {
	case reMultipleHetFor.MatchString(text):
		m := reMultipleHetFor.FindStringSubmatch(text)
		offer.Type = OfferMultipleHeterogeneousForReducedPrice
		offer.BulkAmount = atoiOrZero(m[1])
		offer.Price = parsePriceRef(m[2])

	case reMultipleFor.MatchString(text):
		m := reMultipleFor.FindStringSubmatch(text)
		offer.Type = OfferMultipleForReducedPrice
		offer.BulkAmount = atoiOrZero(m[1])
		offer.Price = parsePriceRef(m[2])

	case reOnly.MatchString(text):
		m := reOnly.FindStringSubmatch(text)
		offer.Type = OfferReducedPriceAbsolute
		offer.Price = parsePriceRef(m[1])

	case reHalfPrice.MatchString(text):
		offer.Type = OfferReducedPricePercentage
		offer.PriceReductionMultiplier = 0.5

	case reSavePercent.MatchString(text):
		m := reSavePercent.FindStringSubmatch(text)
		offer.Type = OfferReducedPricePercentage
		pct, _ := strconv.ParseFloat(m[1], 64)
		offer.PriceReductionMultiplier = pct / 100

	case reSaveAbsolute.MatchString(text):
		m := reSaveAbsolute.FindStringSubmatch(text)
		offer.Type = OfferReducedPriceDeduction
		offer.Price = parsePriceRef(m[1])

	default:
		offer.Type = OfferUnknown
	}

	return offer
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parsePriceRef(s string) *Price {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "€") {
		s = "€" + s
	}
	p, err := ParsePrice(s)
	if err != nil {
		return nil
	}
	return &p
}

// String reconstructs a display form of the offer. For OfferUnknown it
// returns the original text verbatim.
func (o Offer) String() string {
	switch o.Type {
	case OfferMultipleForReducedPrice:
		return fmt.Sprintf("%d for %s", o.BulkAmount, offerPriceString(o.Price))
	case OfferMultipleHeterogeneousForReducedPrice:
		return fmt.Sprintf("Any %d for %s", o.BulkAmount, offerPriceString(o.Price))
	case OfferReducedPriceAbsolute:
		return fmt.Sprintf("Only %s", offerPriceString(o.Price))
	case OfferReducedPricePercentage:
		if o.PriceReductionMultiplier == 0.5 {
			return "Half price"
		}
		return fmt.Sprintf("Save %g%%", o.PriceReductionMultiplier*100)
	case OfferReducedPriceDeduction:
		return fmt.Sprintf("Save %s", offerPriceString(o.Price))
	default:
		return o.Text
	}
}

func offerPriceString(p *Price) string {
	if p == nil {
		return ""
	}
	return p.String()
}
