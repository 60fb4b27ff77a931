// Package di assembles the service from its configuration.
package di

import (
	"context"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"activegraph/internal/config"
	"activegraph/internal/domain/events"
	"activegraph/internal/domain/graph"
	"activegraph/internal/infrastructure/messaging/eventbridge"
	"activegraph/internal/infrastructure/observability"
	"activegraph/internal/interfaces/http/rest"
)

// Container holds all application dependencies.
type Container struct {
	Config    *config.Config
	Logger    *observability.Logger
	Tracing   *observability.TracerProvider
	Metrics   *observability.Collector
	Graph     *graph.Graph
	Forwarder *eventbridge.Forwarder // nil when forwarding is disabled
	Session   *rest.Session
	Router    http.Handler
}

// Close flushes the forwarder and the tracer and syncs the logger.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Forwarder != nil {
		errs = append(errs, c.Forwarder.Close(ctx))
	}
	if c.Tracing != nil {
		errs = append(errs, c.Tracing.Shutdown(ctx))
	}
	if c.Logger != nil {
		// Sync on stderr fails on some platforms; nothing useful to do with it.
		_ = c.Logger.Sync()
	}
	return stderrors.Join(errs...)
}

// ProvideLogger creates the root logger.
func ProvideLogger(cfg *config.Config) (*observability.Logger, error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger.Info("Logger initialized",
		zap.String("environment", string(cfg.Environment)),
		zap.String("level", cfg.Logging.Level))
	return logger, nil
}

// ProvideZapLogger exposes the underlying zap logger.
func ProvideZapLogger(logger *observability.Logger) *zap.Logger {
	return logger.Logger
}

// ProvideTracing creates the tracer provider.
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, cfg.Tracing, cfg.Environment)
}

// ProvideCollector creates the metrics collector. It is always built so the
// graph can report failures to it; it is only subscribed and served when
// metrics are enabled.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideBusOptions translates the broadcast configuration.
func ProvideBusOptions(cfg *config.Config, collector *observability.Collector) []events.Option {
	b := cfg.Broadcast.Breaker
	opts := []events.Option{
		events.WithMaxDepth(cfg.Broadcast.MaxDepth),
		events.WithBreaker(events.BreakerConfig{
			Enabled:      b.Enabled,
			MaxRequests:  b.MaxRequests,
			Interval:     b.Interval,
			Timeout:      b.Timeout,
			FailureRatio: b.FailureRatio,
			MinRequests:  b.MinRequests,
		}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, events.WithFailureHook(collector.OnFailure))
	}
	return opts
}

// ProvideGraph creates the served graph and subscribes the collector.
func ProvideGraph(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	tracing *observability.TracerProvider,
	collector *observability.Collector,
	busOptions []events.Option,
) *graph.Graph {
	g := graph.New(
		graph.WithContext(ctx),
		graph.WithLogger(logger.Named("graph")),
		graph.WithTracer(tracing.Tracer()),
		graph.WithBusOptions(busOptions...),
	)
	if cfg.Metrics.Enabled {
		g.Subscribe(collector)
		collector.Sync(g.NodeCount(), g.ConnectionCount())
	}
	return g
}

// ProvideForwarder subscribes an EventBridge forwarder when forwarding is
// enabled and returns nil otherwise.
func ProvideForwarder(
	ctx context.Context,
	cfg *config.Config,
	g *graph.Graph,
	logger *zap.Logger,
) (*eventbridge.Forwarder, error) {
	ebCfg := cfg.Forwarding.EventBridge
	if !ebCfg.Enabled {
		return nil, nil
	}
	client, err := eventbridge.NewClient(ctx, ebCfg)
	if err != nil {
		return nil, err
	}
	f := eventbridge.NewForwarder(client, ebCfg, logger.Named("eventbridge"))
	g.Subscribe(f)
	logger.Info("EventBridge forwarding enabled", zap.String("bus_name", ebCfg.BusName))
	return f, nil
}

// ProvideHandler creates the REST handler.
func ProvideHandler(session *rest.Session, logger *zap.Logger) *rest.Handler {
	return rest.NewHandler(session, logger)
}

// ProvideRouter assembles the HTTP surface.
func ProvideRouter(
	cfg *config.Config,
	handler *rest.Handler,
	collector *observability.Collector,
	logger *zap.Logger,
) http.Handler {
	var (
		observer rest.RequestObserver
		metrics  http.Handler
	)
	if cfg.Metrics.Enabled {
		observer = collector
		metrics = collector.Handler()
	}
	return rest.NewRouter(handler, observer, metrics, cfg.Server, logger.Named("http")).Setup()
}
