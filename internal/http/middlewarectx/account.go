package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

type accountKey struct{}

// AccountResolver находит сервис подписки клиента.
type AccountResolver func(ctx context.Context, customerID string) (any, error)

// AccountMiddleware кладёт в контекст сервис подписки клиента из JWT.
// Должен стоять после JWTMiddleware.
func AccountMiddleware(log *slog.Logger, resolve AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AccountMiddleware"
			customerID, ok := CustomerID(r.Context())
			if !ok {
				log.Error("customer identification missing", sl.Op(op))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("customer identification missing"))
				return
			}

			account, err := resolve(r.Context(), customerID)
			if err != nil {
				log.Error("failed to resolve subscription service",
					sl.Op(op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("customer_id", customerID),
					sl.Err(err),
				)
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// WithAccount кладёт сервис подписки в контекст.
func WithAccount(ctx context.Context, account any) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// Account возвращает сервис подписки из контекста или nil.
func Account(ctx context.Context) any {
	return ctx.Value(accountKey{})
}
