// Package transfer implements a pooled HTTP transfer driver: a single
// goroutine owns the pool's bookkeeping (slot accounting, pending queue)
// and is the only goroutine that invokes completion callbacks, while any
// number of callers submit work concurrently over a buffered channel.
package transfer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/pricewatch-ie/scraper/internal/metrics"
)

// Method is an HTTP method a transfer may use.
type Method string

const (
	MethodGET  Method = http.MethodGet
	MethodPOST Method = http.MethodPost
)

// RequestOptions describes one transfer: method, optional body, and a
// reference to an immutable named header set shared across transfers that
// use it.
type RequestOptions struct {
	Method  Method
	Body    []byte
	Headers http.Header
}

// Completion is invoked exactly once per submission, on the driver's event
// loop goroutine. On success status is the HTTP status code and body holds
// the full response. On transport failure status is 0 and body is empty.
type Completion func(body []byte, effectiveURL string, status int)

type submission struct {
	url        string
	opts       RequestOptions
	completion Completion
}

type transferDone struct {
	completion   Completion
	body         []byte
	effectiveURL string
	status       int
}

// Driver is a fixed-size pool of concurrent HTTP transfers driven by one
// event-loop goroutine. Construct with New, start with Run, submit work
// with Submit from any goroutine, and stop with Shutdown.
type Driver struct {
	client    *http.Client
	userAgent string
	poolSize  int
	limiter   *rate.Limiter

	submissions chan submission
	completions chan transferDone
	shutdown    chan struct{}
	stopped     chan struct{}

	runOnce sync.Once
}

// New builds a Driver with poolSize concurrent transfer slots, all sharing
// userAgent. poolSize <= 0 defaults to 32, matching the typical size named
// in the transfer driver's configuration contract. requestsPerSecond <= 0
// disables rate limiting beyond the pool's own slot cap.
func New(poolSize int, userAgent string, requestsPerSecond float64) *Driver {
	if poolSize <= 0 {
		poolSize = 32
	}

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		burst := poolSize
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	return &Driver{
		client:      &http.Client{},
		userAgent:   userAgent,
		poolSize:    poolSize,
		limiter:     limiter,
		submissions: make(chan submission, poolSize*4),
		completions: make(chan transferDone, poolSize),
		shutdown:    make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Submit enqueues a transfer. It never blocks beyond a short channel send;
// the actual HTTP wait is absorbed by the event loop and its spawned
// transfer goroutines. Submitting after Shutdown is a no-op.
func (d *Driver) Submit(url string, opts RequestOptions, completion Completion) {
	select {
	case d.submissions <- submission{url: url, opts: opts, completion: completion}:
	case <-d.shutdown:
	}
}

// Run starts the event-loop goroutine and returns immediately. Exactly one
// call does anything; subsequent calls are no-ops.
func (d *Driver) Run(ctx context.Context) {
	d.runOnce.Do(func() {
		go d.loop(ctx)
	})
}

// Shutdown signals the event loop to stop accepting new submissions and
// blocks until in-flight transfers have drained and the loop has exited.
func (d *Driver) Shutdown() {
	close(d.shutdown)
	<-d.stopped
}

// loop is the sole goroutine that touches active/pending state and the
// sole caller of every completion.
func (d *Driver) loop(ctx context.Context) {
	defer close(d.stopped)

	var active int
	var pending []submission
	submissionsClosed := false
	shutdownCh := d.shutdown

	startNext := func(s submission) {
		active++
		metrics.TransferPoolInUse.Set(float64(active))
		go d.perform(ctx, s)
	}

	// startPending starts as many queued submissions as there are free pool
	// slots. Called whenever pending gains items or active shrinks, so a
	// submission can never sit in pending with no future event left to
	// dequeue it (e.g. drained straight into pending by a shutdown with
	// active already at 0, with no completion left to arrive and start it).
	startPending := func() {
		for len(pending) > 0 && active < d.poolSize {
			next := pending[0]
			pending = pending[1:]
			startNext(next)
		}
	}

	for {
		if submissionsClosed && active == 0 && len(pending) == 0 {
			return
		}

		select {
		case s := <-d.submissions:
			if active < d.poolSize {
				startNext(s)
			} else {
				pending = append(pending, s)
			}

		case done := <-d.completions:
			active--
			metrics.TransferPoolInUse.Set(float64(active))
			done.completion(done.body, done.effectiveURL, done.status)
			startPending()

		case <-shutdownCh:
			submissionsClosed = true
			shutdownCh = nil // shutdown only needs to fire once
			drainSubmissions(d.submissions, &pending)
			startPending()
		}
	}
}

func drainSubmissions(ch <-chan submission, pending *[]submission) {
	for {
		select {
		case s := <-ch:
			*pending = append(*pending, s)
		default:
			return
		}
	}
}

// perform executes one HTTP transfer on its own goroutine and reports the
// outcome back to the event loop, which alone invokes the completion.
func (d *Driver) perform(ctx context.Context, s submission) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.completions <- transferDone{completion: s.completion, status: 0}
			return
		}
	}

	method := string(s.opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(s.opts.Body) > 0 {
		bodyReader = bytes.NewReader(s.opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url, bodyReader)
	if err != nil {
		d.completions <- transferDone{completion: s.completion, status: 0}
		return
	}
	for k, values := range s.opts.Headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if d.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.completions <- transferDone{completion: s.completion, status: 0}
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.completions <- transferDone{completion: s.completion, status: 0}
		return
	}

	effectiveURL := s.url
	if resp.Request != nil && resp.Request.URL != nil {
		effectiveURL = resp.Request.URL.String()
	}

	d.completions <- transferDone{
		completion:   s.completion,
		body:         body,
		effectiveURL: effectiveURL,
		status:       resp.StatusCode,
	}
}
