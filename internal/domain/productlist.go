package domain

import "time"

// DepthIndefinite marks a search that was carried out to exhaustion rather
// than stopped after a fixed number of items. It is the identity element
// for ProductList depth-folding: merging an indefinite-depth list with any
// other list keeps the other list's depth.
const DepthIndefinite = 0

// productEntry pairs a Product with the relevance it was assigned within
// the query that produced it.
type productEntry struct {
	Product Product
	Result  QueryResultInfo
}

// ProductList accumulates a query's results in relevance order as they are
// gathered from one or more stores. It is never persisted directly; once
// complete it is either handed back as a QueryTemplate/product slice or
// discarded.
type ProductList struct {
	entries []productEntry
	depth   int
}

// NewProductList builds an empty list carrying the given depth.
func NewProductList(depth int) *ProductList {
	return &ProductList{depth: depth}
}

// NewProductListFrom builds a list from products already ordered by
// relevance, assigning each one its position (starting at zero) as
// relevance.
func NewProductListFrom(products []Product, depth int) *ProductList {
	l := &ProductList{depth: depth, entries: make([]productEntry, len(products))}
	for i, p := range products {
		l.entries[i] = productEntry{Product: p, Result: QueryResultInfo{Relevance: i}}
	}
	return l
}

// Depth reports the depth to which this list's search was carried out.
// DepthIndefinite means as many items as the store could offer.
func (l *ProductList) Depth() int {
	return l.depth
}

// Len reports the number of products accumulated so far.
func (l *ProductList) Len() int {
	return len(l.entries)
}

// Add merges another list's entries into this one and folds their depths:
// DepthIndefinite is the identity (a list at that depth takes on whatever
// depth the other list carries), and otherwise the shallower of the two
// non-indefinite depths wins, since that is the depth to which the combined
// result can actually be trusted.
func (l *ProductList) Add(other *ProductList) {
	if other == nil {
		return
	}
	l.entries = append(l.entries, other.entries...)

	if l.depth == DepthIndefinite && other.depth != l.depth {
		l.depth = other.depth
		return
	}
	if other.depth < l.depth && other.depth != DepthIndefinite {
		l.depth = other.depth
	}
}

// First returns the highest-relevance product in the list, or the zero
// Product if the list is empty.
func (l *ProductList) First() Product {
	if len(l.entries) == 0 {
		return Product{}
	}
	return l.entries[0].Product
}

// Products returns the list's products in relevance order, discarding the
// per-entry QueryResultInfo.
func (l *ProductList) Products() []Product {
	products := make([]Product, len(l.entries))
	for i, e := range l.entries {
		products[i] = e.Product
	}
	return products
}

// AsQueryTemplate builds the document-store representation of this list as
// the answer to queryString over the given store selection, stamped with
// the current time.
func (l *ProductList) AsQueryTemplate(queryString string, stores StoreSelection, now time.Time) QueryTemplate {
	results := make(map[string]QueryResultInfo, len(l.entries))
	for _, e := range l.entries {
		results[e.Product.ID] = e.Result
	}
	return QueryTemplate{
		QueryString: queryString,
		Stores:      stores,
		Results:     results,
		Timestamp:   now,
		Depth:       l.depth,
	}
}
