package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	animalhandler "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/handler"
	animalmetrics "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/metrics"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/catalog"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate"
	gatemetrics "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate/metrics"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate/receipt"
	httpapi "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/http"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/config"
	platformredis "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/redis"
	ratelimitmetrics "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/metrics"
	ratelimitmw "github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/middleware"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/store/bucket"
)

// app holds the wired server and the resources it owns.
type app struct {
	router           http.Handler
	buckets          *bucket.InMemoryBucketStore
	rateLimitMetrics *ratelimitmetrics.Metrics
	redis            *goredis.Client
}

// newApp wires every component from cfg. Configuration problems, including an
// empty catalog, fail here rather than per request.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg *prometheus.Registry) (*app, error) {
	animals, err := loadCatalog(cfg.Server.CatalogPath)
	if err != nil {
		return nil, err
	}
	matcher, err := matching.New(animals.All())
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", "animals", animals.Len(), "source", catalogSource(cfg.Server.CatalogPath))

	a := &app{}
	a.redis, err = platformredis.Open(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	gm := gatemetrics.New(reg)
	g, err := buildGate(cfg.Gate, a.redis, gm, reg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.buckets = bucket.NewInMemoryBucketStore(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	a.rateLimitMetrics = ratelimitmetrics.New(reg)

	checks := map[string]httpapi.HealthCheck{}
	if a.redis != nil {
		checks["redis"] = platformredis.HealthCheck(a.redis)
	}

	a.router = httpapi.NewRouter(httpapi.Deps{
		Animals:     animalhandler.New(matcher, log, animalmetrics.New(reg)),
		Gate:        g,
		GateMetrics: gm,
		RateLimit: ratelimitmw.New(a.buckets, log,
			ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
			ratelimitmw.WithMetrics(a.rateLimitMetrics),
		),
		Checks:  checks,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:  log,
	})
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func buildGate(cfg config.Gate, rdb *goredis.Client, m *gatemetrics.Metrics, reg prometheus.Registerer, log *slog.Logger) (gate.Gate, error) {
	if cfg.Disabled {
		log.Warn("payment gate disabled, every request is served for free")
		return gate.AllowAll{}, nil
	}

	var receipts receipt.Store = receipt.NewInMemoryStore()
	if rdb != nil {
		receipts = receipt.NewRedisStore(rdb, reg)
	}

	x402, err := gate.NewX402(gate.Config{
		PayTo:       cfg.ReceiverAddress,
		Network:     cfg.Network,
		Price:       cfg.Price,
		Asset:       cfg.Asset,
		Description: cfg.Description,
		Routes:      []string{cfg.Route},
		MaxTimeout:  cfg.MaxTimeout,
	},
		gate.NewHTTPFacilitator(cfg.FacilitatorURL, gate.WithFacilitatorMetrics(m)),
		receipt.NewIssuer(cfg.ReceiptSigningKey, cfg.ReceiptTTL),
		receipts,
		log,
	)
	if err != nil {
		return nil, err
	}
	return x402, nil
}

func loadCatalog(path string) (*catalog.Store, error) {
	if path == "" {
		return catalog.Default()
	}
	store, err := catalog.Load(path)
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return store, err
}

func catalogSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
