// Package middlewarectx содержит HTTP middleware шлюза: проверку JWT,
// ограничение частоты запросов и поиск сервиса подписки клиента.
//
// Данные клиента кладутся в контекст запроса и читаются обработчиками
// через функции CustomerID и Account.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// Customer — ключ идентификатора клиента Stripe.
	Customer Key = "customer_id"
	// Email — ключ почты клиента.
	Email Key = "email"
	// Role — ключ роли клиента.
	Role Key = "role"
)

// TokenParser проверяет токен и возвращает его claims.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware проверяет JWT в заголовке Authorization и кладёт данные
// клиента в контекст. Иначе отвечает 401.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				sl.Op(op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), Customer, claims.CustomerID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerID возвращает клиента из контекста запроса.
func CustomerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(Customer).(string)
	return id, ok && id != ""
}

// WithCustomerID кладёт клиента в контекст. Используется в тестах обработчиков.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, Customer, customerID)
}
