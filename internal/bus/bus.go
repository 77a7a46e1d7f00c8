// Package bus is the message-bus front-end: it subscribes to inbound
// "query" messages, resolves each term through the query resolver, and
// publishes one "query-result" message per term. It also owns the
// stepped-backoff reconnect policy that takes over whenever the
// underlying connection drops.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pricewatch-ie/scraper/internal/config"
	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/metrics"
	"github.com/pricewatch-ie/scraper/internal/resolver"
	applogger "github.com/pricewatch-ie/scraper/pkg/logger"
)

// Logger is the structured logging sink the bus front-end logs through.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
}

const (
	querySubject       = "query"
	queryResultSubject = "query-result"

	reconnectInitialWait = 5 * time.Second
	reconnectStep        = 5 * time.Second
	reconnectMaxWait     = 40 * time.Second
)

// Resolver is the subset of internal/resolver.Resolver the front-end
// needs, expressed as an interface so tests can substitute a fake.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (resolver.Result, error)
}

// QueryMessage is the inbound bus message shape.
type QueryMessage struct {
	Terms        []string              `json:"terms"`
	RequestID    int64                 `json:"request-id"`
	Stores       domain.StoreSelection `json:"stores"`
	Depth        int                   `json:"depth"`
	ForceRefresh bool                  `json:"force-refresh"`
}

// Validate checks the fixed schema the spec prescribes for inbound query
// messages: a non-empty terms array of non-empty strings.
func (m QueryMessage) Validate() error {
	if len(m.Terms) == 0 {
		return fmt.Errorf("bus: query message has no terms")
	}
	for i, term := range m.Terms {
		if term == "" {
			return fmt.Errorf("bus: query message term %d is empty", i)
		}
	}
	return nil
}

// QueryResultMessage is the outbound bus message shape, one per term.
type QueryResultMessage struct {
	Term      string           `json:"term"`
	RequestID int64            `json:"request-id"`
	Items     []domain.Product `json:"items"`
}

// Front is the bus front-end: one NATS connection, one query subscription,
// and the reconnect state machine that rebuilds both after a disconnect.
type Front struct {
	cfg      config.Buxtehude
	resolver Resolver
	logger   Logger

	conn *nats.Conn
	sub  *nats.Subscription
}

// Option configures a Front at construction.
type Option func(*Front)

// WithLogger routes the front-end's WARNING-level lines through the shared
// structured logger instead of the package-level default.
func WithLogger(logger Logger) Option {
	return func(f *Front) { f.logger = logger }
}

// New connects to the configured bus endpoint and returns a Front ready to
// Run. The initial connection failure is not retried: New returns a nil
// Front and the error, and the caller decides whether that is fatal at
// startup (§7: config/connection errors before the event loop starts are
// fatal). The reconnect loop only covers connections lost after Run has
// started.
func New(cfg config.Buxtehude, res Resolver, opts ...Option) (*Front, error) {
	f := &Front{
		cfg:      cfg,
		resolver: res,
		logger:   applogger.New(),
	}
	for _, opt := range opts {
		opt(f)
	}

	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("bus: connect: %w", err)
	}
	f.conn = conn

	return f, nil
}

// endpoint builds the NATS server URL for the configured transport.
// buxtehude.type selects between a Unix-domain socket path and a TCP
// host:port, matching the original's connection-type switch.
func endpoint(cfg config.Buxtehude) string {
	switch cfg.Type {
	case config.BuxtehudeUnix:
		return "unix://" + cfg.PathOrHostname
	default:
		return fmt.Sprintf("nats://%s:%d", cfg.PathOrHostname, cfg.Port)
	}
}

func connect(cfg config.Buxtehude) (*nats.Conn, error) {
	// The reconnect policy below is our own stepped timer, not NATS's
	// built-in jittered backoff, so disable the client library's
	// automatic reconnect and drive reconnection ourselves.
	return nats.Connect(endpoint(cfg), nats.NoReconnect())
}

// Run subscribes to the query subject and blocks until ctx is cancelled,
// rebuilding the connection via the stepped reconnect policy whenever it
// drops.
func (f *Front) Run(ctx context.Context) error {
	if err := f.subscribe(); err != nil {
		return err
	}

	disconnected := make(chan struct{}, 1)
	onDisconnect := func(_ *nats.Conn, err error) {
		f.logger.Warn("bus: disconnected", "component", "bus", "err", err)
		select {
		case disconnected <- struct{}{}:
		default:
		}
	}
	f.conn.SetDisconnectErrHandler(onDisconnect)

	for {
		select {
		case <-ctx.Done():
			f.Close()
			return ctx.Err()
		case <-disconnected:
			f.reconnectLoop(ctx)
			f.conn.SetDisconnectErrHandler(onDisconnect)
		}
	}
}

// reconnectLoop implements §4.6's retry policy: a detached retry loop with
// an initial 5s wait, +5s per failed attempt up to a 40s cap, resetting to
// 5s the moment a connection succeeds.
func (f *Front) reconnectLoop(ctx context.Context) {
	wait := reconnectInitialWait
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		conn, err := connect(f.cfg)
		if err != nil {
			f.logger.Warn("bus: reconnect attempt failed", "component", "bus", "err", err)
			wait += reconnectStep
			if wait > reconnectMaxWait {
				wait = reconnectMaxWait
			}
			continue
		}

		f.conn = conn
		if err := f.subscribe(); err != nil {
			f.logger.Warn("bus: resubscribe failed after reconnect", "component", "bus", "err", err)
			_ = conn.Drain()
			wait += reconnectStep
			if wait > reconnectMaxWait {
				wait = reconnectMaxWait
			}
			continue
		}

		metrics.BusReconnectsTotal.Inc()
		f.logger.Info("bus: reconnected", "component", "bus", "endpoint", endpoint(f.cfg))
		return
	}
}

func (f *Front) subscribe() error {
	sub, err := f.conn.Subscribe(querySubject, f.handleQuery)
	if err != nil {
		return fmt.Errorf("bus: subscribe: %w", err)
	}
	f.sub = sub
	return nil
}

func (f *Front) handleQuery(msg *nats.Msg) {
	var qm QueryMessage
	if err := json.Unmarshal(msg.Data, &qm); err != nil {
		f.logger.Warn("bus: malformed query message", "component", "bus", "err", err)
		return
	}
	if err := qm.Validate(); err != nil {
		f.logger.Warn("bus: invalid query message", "component", "bus", "err", err)
		return
	}

	for _, term := range qm.Terms {
		go f.resolveAndReply(qm, term)
	}
}

func (f *Front) resolveAndReply(qm QueryMessage, term string) {
	req := resolver.Request{
		QueryString:  term,
		Stores:       qm.Stores,
		Depth:        qm.Depth,
		ForceRefresh: qm.ForceRefresh,
	}

	result, err := f.resolver.Resolve(context.Background(), req)
	if err != nil {
		f.logger.Warn("bus: resolve failed", "component", "bus", "term", term, "err", err)
		return
	}

	reply := QueryResultMessage{
		Term:      term,
		RequestID: qm.RequestID,
		Items:     result.Products.Products(),
	}

	data, err := json.Marshal(reply)
	if err != nil {
		f.logger.Warn("bus: marshal reply failed", "component", "bus", "term", term, "err", err)
		return
	}

	if err := f.conn.Publish(queryResultSubject, data); err != nil {
		f.logger.Warn("bus: publish reply failed", "component", "bus", "term", term, "err", err)
	}
}

// Close drains the subscription and closes the underlying connection.
func (f *Front) Close() {
	if f.sub != nil {
		_ = f.sub.Drain()
	}
	if f.conn != nil {
		f.conn.Close()
	}
}
