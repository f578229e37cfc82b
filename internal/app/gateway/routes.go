// Package gateway собирает шлюз провайдеров: хранилища, клиентов внешних
// API, сервисы подписок и HTTP-маршруты.
package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/provider-gateway/docs"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/http/handlers/assistant"
	"github.com/magabrotheeeer/provider-gateway/internal/http/handlers/health"
	"github.com/magabrotheeeer/provider-gateway/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/provider-gateway/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/provider-gateway/internal/http/middlewarectx"
	subservice "github.com/magabrotheeeer/provider-gateway/internal/services/subscription"
)

// RouteDeps — зависимости HTTP-маршрутов.
type RouteDeps struct {
	Tokens   middlewarectx.TokenParser
	Registry *subservice.Registry
	// Assistant может быть nil: тогда чат не подключается.
	Assistant assistant.Assistant
	Verifier  webhook.Verifier
	Audit     *audit.Logger
	Limiter   *middlewarectx.RateLimiter
	Checks    map[string]health.Check
	Metrics   http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps RouteDeps) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, deps.Checks).ServeHTTP)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	r.Get("/docs/*", httpSwagger.WrapHandler)

	resolve := func(ctx context.Context, customerID string) (any, error) {
		return deps.Registry.For(ctx, customerID)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Вебхук без JWT: подлинность проверяется подписью.
		r.With(deps.Limiter.Middleware(logger)).
			Post("/webhooks/stripe", webhook.NewStripe(logger, deps.Verifier, deps.Registry, deps.Audit).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Use(deps.Limiter.Middleware(logger))

			r.Get("/plans", subscription.NewPlans(deps.Registry.Catalog()).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AccountMiddleware(logger, resolve))
				r.Get("/subscription", subscription.NewRead(logger).ServeHTTP)
				r.Post("/subscription", subscription.NewCreate(logger).ServeHTTP)
				r.Put("/subscription", subscription.NewUpdate(logger).ServeHTTP)
				r.Delete("/subscription", subscription.NewCancel(logger).ServeHTTP)
				r.Get("/subscription/transactions", subscription.NewTransactions(logger).ServeHTTP)
				r.Post("/pricing/quote", subscription.NewQuote(logger).ServeHTTP)
			})

			if deps.Assistant != nil {
				r.Post("/assistant/chat", assistant.NewChat(logger, deps.Assistant, deps.Audit).ServeHTTP)
			}
		})
	})
}
