package domain

import "time"

// QueryResultInfo records where a product appeared within a particular
// query's result set.
type QueryResultInfo struct {
	Relevance int `json:"relevance"`
}

// QueryTemplate is the document-store representation of a query: the
// product IDs it matched plus enough metadata to decide whether a cached
// answer still satisfies a later request for the same query string.
type QueryTemplate struct {
	QueryString string                     `json:"query_string"`
	Stores      StoreSelection             `json:"stores"`
	Results     map[string]QueryResultInfo `json:"results"`
	Timestamp   time.Time                  `json:"timestamp"`
	Depth       int                        `json:"depth"`
}
