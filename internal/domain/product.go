package domain

import "time"

// Product is a single retailer's listing for an item, as returned by an
// adapter and stored by the document store.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	URL          string    `json:"url"`
	ItemPrice    Price     `json:"item_price"`
	PricePerUnit PricePU   `json:"price_per_unit"`
	Store        StoreID   `json:"store"`
	Timestamp    time.Time `json:"timestamp"`
	FullInfo     bool      `json:"full_info"`
	Offers       []Offer   `json:"offers,omitempty"`
}

// ProductError is a sentinel Product marking a row that could not be parsed
// at all. The adapters in internal/stores do not return it; they report a
// failed row with ok == false instead.
var ProductError = Product{ID: "error"}

// IsError reports whether p is the sentinel returned for an unparseable row.
func (p Product) IsError() bool {
	return p.ID == ProductError.ID
}
