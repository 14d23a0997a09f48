package container

import (
	"net/http"

	"github.com/bessim-dev/ocr-api/internal/cache"
	"github.com/bessim-dev/ocr-api/internal/config"
	"github.com/bessim-dev/ocr-api/internal/groq"
	"github.com/bessim-dev/ocr-api/internal/logger"
	"github.com/bessim-dev/ocr-api/internal/observer"
	"github.com/bessim-dev/ocr-api/internal/service"
	"github.com/bessim-dev/ocr-api/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	store      cache.Store
	ocrService service.OcrService
	metrics    *observer.MetricsObserver
	handler    http.Handler
}

// NewContainer builds the dependency graph from configuration. Everything
// is constructor-injected so tests can assemble the same graph with fakes.
func NewContainer(cfg *config.Config) (*Container, error) {
	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		store = redisStore
	} else {
		logger.Warn("REDIS_URL not set, using in-process cache")
		store = cache.NewMemoryStore()
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	client := groq.NewClient(cfg)
	ocrService := service.NewOcrService(client, store, cfg, events)
	handler := transport.NewHandler(ocrService, metrics, cfg)

	return &Container{
		config:     cfg,
		store:      store,
		ocrService: ocrService,
		metrics:    metrics,
		handler:    handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
