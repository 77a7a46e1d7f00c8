// Package stores maps each supported StoreID to a concrete adapter able to
// build search/product requests and parse the resulting responses.
package stores

import (
	"net/http"
	"time"

	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/transfer"
)

// Logger is the structured warning sink every retailer adapter logs
// through: one message plus component/store/error key-value pairs, not a
// bare printf-formatted line.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// Store is the contract every retailer adapter implements.
type Store interface {
	ID() domain.StoreID

	// BuildSearchURL URL-escapes query and substitutes it into the
	// retailer's search endpoint template.
	BuildSearchURL(query string) string

	// BuildSearchRequestOptions selects the method and header set for a
	// search request.
	BuildSearchRequestOptions(query string) transfer.RequestOptions

	// ParseSearchResponse parses body into a ProductList of at most depth
	// entries (domain.DepthIndefinite = no cap), each stamped with its
	// 0-based position as relevance.
	ParseSearchResponse(body []byte, depth int) *domain.ProductList

	// BuildProductURLRequestOptions selects method/headers for a
	// single-product page fetch.
	BuildProductURLRequestOptions() transfer.RequestOptions

	// ParseProductPage parses a single product's dedicated page, stamping
	// it with the canonical URL it was fetched from. ok is false if the
	// page could not be recognised as a product page at all.
	ParseProductPage(body []byte, pageURL string) (product domain.Product, ok bool)
}

// Registry maps every known StoreID to its adapter.
type Registry struct {
	stores map[domain.StoreID]Store
}

// NewRegistry builds the registry of all adapters this scraper supports,
// each logging WARNINGs through logger.
func NewRegistry(logger Logger) *Registry {
	r := &Registry{stores: make(map[domain.StoreID]Store)}
	for _, s := range []Store{
		NewSuperValu(logger),
		NewLidl(logger),
		NewTesco(logger),
		NewAldi(logger),
		NewDunnesStores(logger),
	} {
		r.stores[s.ID()] = s
	}
	return r
}

// Get returns the adapter for id, or nil if unregistered.
func (r *Registry) Get(id domain.StoreID) Store {
	return r.stores[id]
}

// For iterates the adapters whose StoreID is a member of selection, in
// ascending bit order.
func (r *Registry) For(selection domain.StoreSelection) []Store {
	var out []Store
	for _, id := range selection.Members() {
		if s, ok := r.stores[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// defaultHeaders returns a plain HTML-accepting header set, shared by the
// HTML-strategy retailers.
func defaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Accept", "text/html")
	return h
}

// jsonHeaders returns a header set requesting a JSON response, used by the
// Aldi JSON-API adapter.
func jsonHeaders() http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	return h
}

// sampleTimestamp returns the time a product row is stamped with. A
// variable rather than a direct time.Now() call so tests can substitute a
// fixed clock.
var sampleTimestamp = time.Now

// buildID returns the scraper's stable global product id.
func buildID(prefix, nativeSKU string) string {
	return prefix + nativeSKU
}
