// Command scraper is the entry point for the price-watch scraper: it
// loads configuration, wires the document store, transfer driver,
// delegator, retailer registry, accelerator, resolver and bus front-end
// together, and serves a thin ambient HTTP surface (health, metrics,
// version) alongside the bus connection.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pricewatch-ie/scraper/internal/bus"
	"github.com/pricewatch-ie/scraper/internal/cache"
	"github.com/pricewatch-ie/scraper/internal/config"
	"github.com/pricewatch-ie/scraper/internal/delegator"
	"github.com/pricewatch-ie/scraper/internal/docstore"
	"github.com/pricewatch-ie/scraper/internal/models"
	"github.com/pricewatch-ie/scraper/internal/resolver"
	"github.com/pricewatch-ie/scraper/internal/stores"
	"github.com/pricewatch-ie/scraper/internal/transfer"
	applogger "github.com/pricewatch-ie/scraper/pkg/logger"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

// run does the actual work and returns a process exit code, so main can
// stay a one-line os.Exit call (§6: exit 0 on clean shutdown, 1 on
// unreadable/invalid config).
func run() int {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	appLogger := applogger.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.Error("failed to load config", "path", configPath, "err", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docStore, err := docstore.Connect(ctx, cfg.MongoDBURI, cfg.DflatDBName)
	if err != nil {
		appLogger.Error("failed to connect to document store", "err", err)
		return 1
	}
	defer docStore.Close(context.Background())

	var accelerator *cache.Accelerator
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		accelerator = cache.New(redisClient, 5*time.Second)
		defer accelerator.Close()
	}

	transferDriver := transfer.New(cfg.MaxConcurrentTransfers, cfg.Curl.UserAgent, 0)
	transferDriver.Run(ctx)
	defer transferDriver.Shutdown()

	taskDelegator := delegator.New(cfg.MaxConcurrentTransfers)
	registry := stores.NewRegistry(appLogger)
	entryExpiry := time.Duration(cfg.EntryExpiryTimeSeconds) * time.Second

	resolverOpts := []resolver.Option{resolver.WithLogger(appLogger)}
	if accelerator != nil {
		resolverOpts = append(resolverOpts, resolver.WithAccelerator(accelerator))
	}
	res := resolver.New(docStore, registry, transferDriver, taskDelegator, entryExpiry, resolverOpts...)

	busFront, err := bus.New(cfg.Buxtehude, res, bus.WithLogger(appLogger))
	if err != nil {
		appLogger.Error("failed to connect to bus", "err", err)
		return 1
	}

	busErrCh := make(chan error, 1)
	go func() { busErrCh <- busFront.Run(ctx) }()

	app := fiber.New(fiber.Config{AppName: "pricewatch-scraper v" + version})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(models.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(models.VersionResponse{Version: version})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- app.Listen(":8080") }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		appLogger.Info("shutting down")
	case err := <-busErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("bus front-end exited", "err", err)
		}
	case err := <-httpErrCh:
		appLogger.Error("http surface exited", "err", err)
		return 1
	}

	cancel()
	busFront.Close()
	_ = app.Shutdown()
	return 0
}
