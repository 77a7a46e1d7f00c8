// Package resolver implements the cache-then-dispatch algorithm that
// answers one query: consult the document store for a still-usable cached
// answer, and for whatever stores it can't answer from cache, fetch and
// parse fresh results, merging everything into one ProductList.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pricewatch-ie/scraper/internal/delegator"
	"github.com/pricewatch-ie/scraper/internal/docstore"
	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/metrics"
	"github.com/pricewatch-ie/scraper/internal/stores"
	"github.com/pricewatch-ie/scraper/internal/transfer"
	applogger "github.com/pricewatch-ie/scraper/pkg/logger"
)

// Logger is the structured warning sink the resolver logs through: one
// message plus component/term/store/err key-value pairs, not a bare
// printf-formatted line.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// DocStore is the subset of internal/docstore.Gateway the resolver needs.
// Expressed as an interface so tests can substitute an in-memory fake.
type DocStore interface {
	GetQueryTemplate(ctx context.Context, queryString string) (domain.QueryTemplate, error)
	PutQueryTemplate(ctx context.Context, qt domain.QueryTemplate) error
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	PutProducts(ctx context.Context, products []domain.Product) error
}

// Transfer is the subset of internal/transfer.Driver the resolver needs.
type Transfer interface {
	Submit(url string, opts transfer.RequestOptions, completion transfer.Completion)
}

// TaskQueuer is the subset of internal/delegator.Delegator the resolver
// needs to fan out per-store fetches.
type TaskQueuer interface {
	QueueTasks(onComplete delegator.OnComplete, tasks ...delegator.TaskFunc) uint64
}

// Accelerator is the subset of internal/cache.Accelerator the resolver
// needs for in-flight dedupe. A nil Accelerator disables the optimization
// without changing correctness.
type Accelerator interface {
	Claim(ctx context.Context, term string) (bool, error)
	Release(ctx context.Context, term string) error
	WaitForRelease(ctx context.Context, term string, maxWait, interval time.Duration) error
}

// Registry is the subset of internal/stores.Registry the resolver needs.
type Registry interface {
	For(selection domain.StoreSelection) []stores.Store
}

// Request is one resolution request, matching the bus's inbound query
// message shape (§6 terms/request-id/stores/depth/force-refresh, minus the
// framing fields the bus layer owns).
type Request struct {
	QueryString  string
	Stores       domain.StoreSelection
	Depth        int
	ForceRefresh bool
}

// Result is a completed resolution: the merged product list and whether
// any retailer was actually queried (vs. served entirely from cache).
type Result struct {
	Products       *domain.ProductList
	QueriedWebsite bool
}

// Resolver ties the document store, retailer registry, transfer driver and
// task delegator together into the cache-then-dispatch algorithm.
type Resolver struct {
	docStore    DocStore
	registry    Registry
	transfer    Transfer
	delegator   TaskQueuer
	accelerator Accelerator
	entryExpiry time.Duration
	now         func() time.Time
	logger      Logger
}

// Option configures a Resolver at construction.
type Option func(*Resolver)

// WithAccelerator attaches a Redis in-flight dedupe accelerator.
func WithAccelerator(a Accelerator) Option {
	return func(r *Resolver) { r.accelerator = a }
}

// WithClock overrides the resolver's notion of "now", for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger routes the resolver's WARNING-level lines through the shared
// structured logger instead of the package-level default.
func WithLogger(logger Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New builds a Resolver. entryExpiry is the maximum age (spec's
// entry-expiry-time-seconds) a cached QueryTemplate may have before it is
// treated as unusable.
func New(docStore DocStore, registry Registry, transferDriver Transfer, taskQueuer TaskQueuer, entryExpiry time.Duration, opts ...Option) *Resolver {
	r := &Resolver{
		docStore:    docStore,
		registry:    registry,
		transfer:    transferDriver,
		delegator:   taskQueuer,
		entryExpiry: entryExpiry,
		now:         time.Now,
		logger:      applogger.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// depthSatisfies decides whether a cached result set fetched to cachedDepth
// can answer a request for requestedDepth. DepthIndefinite (0) on the
// cached side satisfies any request, since it means "as many as the
// retailer returns". A requested depth of 0 is itself indefinite, so only a
// cached depth that is also indefinite can satisfy it — no finite cached
// depth can promise "all of them". Otherwise the cache must have gone at
// least as deep as requested.
func depthSatisfies(cachedDepth, requestedDepth int) bool {
	if cachedDepth == domain.DepthIndefinite {
		return true
	}
	if requestedDepth == domain.DepthIndefinite {
		return false
	}
	return cachedDepth >= requestedDepth
}

// Resolve runs the full cache-then-dispatch algorithm for req and returns
// the merged result. Persistence (step 7) happens as a side effect before
// Resolve returns, not afterward.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if r.accelerator != nil && !req.ForceRefresh {
		won, err := r.accelerator.Claim(ctx, req.QueryString)
		switch {
		case err != nil:
			// Accelerator unavailable: proceed as if it didn't exist.
		case won:
			metrics.AcceleratorClaimsTotal.WithLabelValues("won").Inc()
			defer r.accelerator.Release(ctx, req.QueryString)
		default:
			metrics.AcceleratorClaimsTotal.WithLabelValues("waited").Inc()
			_ = r.accelerator.WaitForRelease(ctx, req.QueryString, 2*time.Second, 25*time.Millisecond)
		}
	}

	missing, cachedList, ok := r.consultCache(ctx, req)
	if !ok {
		missing = req.Stores
		cachedList = nil
	}

	queriedWebsite := !missing.IsEmpty()
	if queriedWebsite {
		metrics.ResolverCacheMissesTotal.Inc()
	} else {
		metrics.ResolverCacheHitsTotal.Inc()
	}

	fetched, err := r.dispatchMissing(ctx, req, missing)
	if err != nil {
		return Result{}, err
	}

	merged := domain.NewProductList(domain.DepthIndefinite)
	if cachedList != nil {
		merged.Add(cachedList)
	}
	for _, list := range fetched {
		merged.Add(list)
	}

	if queriedWebsite {
		if err := r.persist(ctx, req, merged); err != nil {
			r.logger.Warn("resolver: failed to persist results", "component", "resolver", "term", req.QueryString, "err", err)
		}
	}

	return Result{Products: merged, QueriedWebsite: queriedWebsite}, nil
}

// consultCache implements steps 1-4: it returns the stores still needing a
// fresh fetch, a ProductList built from whatever cache hit was usable (or
// nil), and whether a usable cached answer was found (false on
// force-refresh, NOT_FOUND or another lookup error, an expired or
// too-shallow template, or a partial product hit, matching "skip to step
// 5").
func (r *Resolver) consultCache(ctx context.Context, req Request) (missing domain.StoreSelection, cached *domain.ProductList, ok bool) {
	if req.ForceRefresh {
		return req.Stores, nil, false
	}

	qt, err := r.docStore.GetQueryTemplate(ctx, req.QueryString)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			r.logger.Warn("resolver: query-template lookup failed", "component", "resolver", "term", req.QueryString, "err", err)
		}
		return req.Stores, nil, false
	}

	expired := r.entryExpiry > 0 && r.now().Sub(qt.Timestamp) > r.entryExpiry
	if !depthSatisfies(qt.Depth, req.Depth) || expired {
		return req.Stores, nil, false
	}

	missing = req.Stores.Difference(qt.Stores)

	selectedIDs := make([]string, 0, len(qt.Results))
	for id, info := range qt.Results {
		if req.Depth == domain.DepthIndefinite || info.Relevance < req.Depth {
			selectedIDs = append(selectedIDs, id)
		}
	}

	if len(selectedIDs) == 0 {
		return missing, domain.NewProductList(qt.Depth), true
	}

	products, err := r.docStore.GetProducts(ctx, selectedIDs)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		r.logger.Warn("resolver: product lookup failed", "component", "resolver", "term", req.QueryString, "err", err)
	}
	if err != nil || len(products) != len(selectedIDs) {
		// Partial hit: the cache's own bookkeeping promised more product
		// rows than the store actually has. Fall back to a cold fetch of
		// everything rather than serve an incomplete answer.
		return req.Stores, nil, false
	}

	sort.Slice(selectedIDs, func(i, j int) bool {
		return qt.Results[selectedIDs[i]].Relevance < qt.Results[selectedIDs[j]].Relevance
	})
	ordered := make([]domain.Product, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		if p, found := products[id]; found {
			ordered = append(ordered, p)
		}
	}

	return missing, domain.NewProductListFrom(ordered, qt.Depth), true
}

type transferOutcome struct {
	body   []byte
	status int
}

// dispatchMissing implements step 5-6: one delegator task per store in
// missing, each blocking on its own transfer submission, merged once every
// task completes.
func (r *Resolver) dispatchMissing(ctx context.Context, req Request, missing domain.StoreSelection) ([]*domain.ProductList, error) {
	if missing.IsEmpty() {
		return nil, nil
	}

	targets := r.registry.For(missing)
	type taskResult struct {
		list *domain.ProductList
	}

	tasks := make([]delegator.TaskFunc, 0, len(targets))
	for _, store := range targets {
		store := store
		tasks = append(tasks, func(tc delegator.TaskContext) delegator.Result {
			list, err := r.fetchAndParse(ctx, store, req)
			if err != nil {
				return delegator.ErrResult(&storeFetchError{store: store.ID().String(), err: err})
			}
			return delegator.OkResult(taskResult{list: list})
		})
	}

	done := make(chan []delegator.Result, 1)
	r.delegator.QueueTasks(func(results []delegator.Result) {
		done <- results
	}, tasks...)

	var results []delegator.Result
	select {
	case results = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lists := make([]*domain.ProductList, 0, len(results))
	for _, res := range results {
		if res.Kind != delegator.Ok {
			if res.Kind == delegator.Error {
				storeName := ""
				var sfe *storeFetchError
				if errors.As(res.Err, &sfe) {
					storeName = sfe.store
				}
				r.logger.Warn("resolver: store fetch failed", "component", "resolver", "term", req.QueryString, "store", storeName, "err", res.Err)
			}
			continue
		}
		if tr, ok := res.Value.(taskResult); ok {
			lists = append(lists, tr.list)
		}
	}
	return lists, nil
}

// storeFetchError attaches the originating store's identity to a fetch
// failure so the result-collection loop can log it without re-deriving
// which store a delegator.Result came from.
type storeFetchError struct {
	store string
	err   error
}

func (e *storeFetchError) Error() string { return e.store + ": " + e.err.Error() }
func (e *storeFetchError) Unwrap() error { return e.err }

// fetchAndParse submits one search request and blocks the calling
// delegator-worker goroutine until its completion fires, as permitted by
// §5's "delegator tasks may block on any I/O".
func (r *Resolver) fetchAndParse(ctx context.Context, store stores.Store, req Request) (*domain.ProductList, error) {
	start := r.now()
	storeName := store.ID().String()

	list, err := r.doFetchAndParse(ctx, store, req)

	metrics.StoreFetchDuration.WithLabelValues(storeName).Observe(r.now().Sub(start).Seconds())
	if err != nil {
		metrics.StoreFetchErrorsTotal.WithLabelValues(storeName).Inc()
	}
	return list, err
}

func (r *Resolver) doFetchAndParse(ctx context.Context, store stores.Store, req Request) (*domain.ProductList, error) {
	url := store.BuildSearchURL(req.QueryString)
	opts := store.BuildSearchRequestOptions(req.QueryString)

	outcome := make(chan transferOutcome, 1)
	r.transfer.Submit(url, opts, func(body []byte, effectiveURL string, status int) {
		outcome <- transferOutcome{body: body, status: status}
	})

	select {
	case out := <-outcome:
		if out.status == 0 || out.status >= 400 {
			return nil, fmt.Errorf("%s: search request failed with status %d", store.ID(), out.status)
		}
		return store.ParseSearchResponse(out.body, req.Depth), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// persist implements step 7: bulk put the merged products and replace the
// prior QueryTemplate.
func (r *Resolver) persist(ctx context.Context, req Request, merged *domain.ProductList) error {
	if err := r.docStore.PutProducts(ctx, merged.Products()); err != nil {
		return fmt.Errorf("put products: %w", err)
	}
	qt := merged.AsQueryTemplate(req.QueryString, req.Stores, r.now())
	if err := r.docStore.PutQueryTemplate(ctx, qt); err != nil {
		return fmt.Errorf("put query template: %w", err)
	}
	return nil
}
