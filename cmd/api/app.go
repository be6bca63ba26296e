package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/formbricks/callhub/internal/api/handlers"
	"github.com/formbricks/callhub/internal/api/middleware"
	"github.com/formbricks/callhub/internal/config"
	"github.com/formbricks/callhub/internal/observability"
	"github.com/formbricks/callhub/internal/service"
	"github.com/formbricks/callhub/pkg/retell"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	tracerProvider, err := observability.NewTracerProvider(ctx, cfg.OtelTracesExporter)
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	// tp stays a nil interface when tracing is off so clients fall back to the global no-op provider.
	var tp trace.TracerProvider

	if tracerProvider != nil {
		tp = tracerProvider

		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		defer func() {
			if err != nil {
				_ = observability.ShutdownTracerProvider(ctx, tracerProvider)
			}
		}()
	} else {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	}

	var (
		meterProvider  observability.MeterProviderShutdown
		metricsHandler http.Handler
		metrics        observability.Metrics
	)

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED unset or false)")
	}

	retellClient := retell.NewClientWithOptions(retell.ClientOptions{
		BaseURL:        cfg.Retell.BaseURL,
		APIKey:         cfg.Retell.APIKey,
		Timeout:        cfg.Retell.Timeout,
		TracerProvider: tp,
	})

	var (
		eventMetrics     service.EventMetrics
		rejectionMetrics service.WebhookRejectionMetrics
		upstreamMetrics  service.UpstreamMetrics
		requestRecorder  middleware.RequestRecorder
		bodyRecorder     middleware.RequestBodyTooLargeRecorder
	)
	if metrics != nil {
		eventMetrics = metrics
		rejectionMetrics = metrics
		upstreamMetrics = metrics
		requestRecorder = metrics
		bodyRecorder = metrics
	}

	webhookService := service.NewWebhookService(
		service.NewSignatureVerifier(cfg.Retell.APIKey),
		service.NewEventDispatcher(eventMetrics),
		rejectionMetrics,
	)
	callsService := service.NewCallsService(retellClient, cfg.Retell.AgentID, upstreamMetrics)

	handler := newHTTPHandler(newRouter(cfg, routerDeps{
		health:          handlers.NewHealthHandler(),
		webhook:         handlers.NewWebhookHandler(webhookService),
		calls:           handlers.NewCallsHandler(callsService),
		metricsHandler:  metricsHandler,
		requestRecorder: requestRecorder,
		bodyRecorder:    bodyRecorder,
	}), tp)

	const (
		readHeaderTimeout = 10 * time.Second
		readTimeout       = 15 * time.Second
		idleTimeout       = 60 * time.Second
	)

	// WriteTimeout must outlast the upstream call on /create-web-call.
	writeTimeout := cfg.Retell.Timeout + 15*time.Second

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return &App{
		cfg:            cfg,
		server:         server,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

type routerDeps struct {
	health          *handlers.HealthHandler
	webhook         *handlers.WebhookHandler
	calls           *handlers.CallsHandler
	metricsHandler  http.Handler
	requestRecorder middleware.RequestRecorder
	bodyRecorder    middleware.RequestBodyTooLargeRecorder
}

// newRouter builds the chi router: Metrics -> Recoverer -> CORS -> MaxBody -> route.
// Metrics sits outside Recoverer so a panic is counted as a 5xx.
func newRouter(cfg *config.Config, deps routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Metrics(deps.requestRecorder))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBody(cfg.MaxRequestBodyBytes, deps.bodyRecorder))

	r.Get("/health", deps.health.Check)
	r.Post("/webhook", deps.webhook.Handle)
	r.Post("/register-call-on-your-server", deps.calls.RegisterCall)
	r.Post("/create-web-call", deps.calls.CreateWebCall)

	if deps.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.metricsHandler)
	}

	return r
}

// newHTTPHandler wraps the router: RequestID -> otelhttp(Logging(router)).
// Logging runs inside otelhttp so access logs carry trace_id/span_id, and outside
// the router's Recoverer so a panicking request still gets its access log line.
// tp nil skips the otelhttp layer.
func newHTTPHandler(router http.Handler, tp trace.TracerProvider) http.Handler {
	handler := middleware.Logging(router)

	if tp != nil {
		handler = otelhttp.NewHandler(handler, "callhub-api",
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health"
			}),
		)
	}

	return middleware.RequestID(handler)
}

// Run starts the HTTP server, then blocks until ctx is cancelled (e.g. signal)
// or the server fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the server and then flushes traces and metrics. Call after Run returns.
// A provider error is returned only when nothing earlier failed; later ones are logged.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		tpErr := observability.ShutdownTracerProvider(ctx, a.tracerProvider)
		if tpErr == nil {
			return
		}

		if err == nil {
			err = tpErr
		} else {
			slog.Error("shutdown tracer provider", "error", tpErr)
		}
	}()

	defer func() {
		if a.meterProvider == nil {
			return
		}

		mpErr := a.meterProvider.Shutdown(ctx)
		if mpErr == nil {
			return
		}

		if err == nil {
			err = fmt.Errorf("meter provider shutdown: %w", mpErr)
		} else {
			slog.Error("shutdown meter provider", "error", mpErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
