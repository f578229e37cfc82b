package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/cache"
	"github.com/magabrotheeeer/provider-gateway/internal/config"
	"github.com/magabrotheeeer/provider-gateway/internal/http/handlers/health"
	"github.com/magabrotheeeer/provider-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/metrics"
	"github.com/magabrotheeeer/provider-gateway/internal/migrations"
	"github.com/magabrotheeeer/provider-gateway/internal/network"
	"github.com/magabrotheeeer/provider-gateway/internal/providers/openai"
	"github.com/magabrotheeeer/provider-gateway/internal/providers/stripe"
	"github.com/magabrotheeeer/provider-gateway/internal/providers/supabase"
	subservice "github.com/magabrotheeeer/provider-gateway/internal/services/subscription"
	"github.com/magabrotheeeer/provider-gateway/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App — собранный шлюз.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []func() error
}

// New подключает хранилища и провайдеров по конфигу. Postgres, Redis,
// RabbitMQ и Supabase необязательны: без них шлюз работает в памяти.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	const op = "gateway.New"
	app := &App{logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	catalog, err := subservice.NewCatalog(cfg.Plans)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	deps := subservice.Deps{Catalog: catalog, Log: logger, Metrics: m}
	sinks := []audit.Sink{audit.NewSlogSink(logger)}
	checks := map[string]health.Check{}

	if cfg.StorageConnectionString != "" {
		db, err := repository.New(ctx, cfg.StorageConnectionString)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, db.Close)
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		deps.Transactions = db
		sinks = append(sinks, audit.NewStoreSink("postgres", db))
		checks["postgres"] = db.CheckDatabaseReady
	}

	if cfg.RedisAddress != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, c.Close)
		deps.Cache = c
		checks["redis"] = c.Ping
	}

	if cfg.RabbitMQ.URL != "" {
		ch, err := app.connectAMQP(ctx, cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sinks = append(sinks, audit.NewAMQPSink(ch, cfg.RabbitMQ.Exchange))
	}

	newManager := func(name string) (*network.Manager, error) {
		return network.NewManager(
			&http.Client{Timeout: cfg.Network.Timeout},
			network.WithName(name),
			network.WithRateLimiter(rate.Limit(cfg.Network.RateLimit), cfg.Network.Burst),
			network.WithObserver(m),
			network.WithLogger(logger),
		)
	}

	if cfg.Providers.Supabase.Enabled() {
		mgr, err := newManager("supabase")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sb := supabase.New(cfg.SupabaseEndpoint(), mgr, logger)
		deps.Mirror = sb
		sinks = append(sinks, audit.NewStoreSink("supabase", sb))
	}

	stripeMgr, err := newManager("stripe")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	deps.Provider = stripe.New(cfg.StripeEndpoint(), stripeMgr, logger)
	deps.Audit = audit.NewLogger(logger, sinks...)

	routeDeps := RouteDeps{
		Tokens:   jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Registry: subservice.NewRegistry(deps),
		Verifier: stripe.NewWebhookVerifier(cfg.Providers.Stripe.WebhookSecret),
		Audit:    deps.Audit,
		Limiter:  middlewarectx.NewRateLimiter(cfg.RequestsPerSecond, cfg.HTTPServer.Burst),
		Checks:   checks,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		aiMgr, err := newManager("openai")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ai, err := openai.New(cfg.OpenAIEndpoint(), aiMgr, logger,
			openai.WithModel(cfg.Providers.OpenAI.Model),
			openai.WithMaxRetries(cfg.Providers.OpenAI.MaxRetries),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		routeDeps.Assistant = ai
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, routeDeps)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) connectAMQP(ctx context.Context, cfg config.RabbitMQ) (*amqp.Channel, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.AuditQueues())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ch.Close)
	return ch, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}

// close освобождает ресурсы в обратном порядке подключения.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
