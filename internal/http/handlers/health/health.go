// Package health отдаёт состояние шлюза и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

// Check проверяет одну зависимость.
type Check func(ctx context.Context) error

// Handler опрашивает настроенные зависимости.
type Handler struct {
	log     *slog.Logger
	checks  map[string]Check
	timeout time.Duration
}

// New создаёт Handler; checks — проверки по имени зависимости.
func New(log *slog.Logger, checks map[string]Check) *Handler {
	return &Handler{log: log, checks: checks, timeout: 2 * time.Second}
}

// ServeHTTP отвечает 200, если все проверки прошли, иначе 503 с состоянием
// каждой зависимости.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", sl.Op(op), slog.String("check", name), sl.Err(err))
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	render.Status(r, status)
	if status != http.StatusOK {
		render.JSON(w, r, response.ErrorWithData("dependency unavailable", results))
		return
	}
	render.JSON(w, r, response.OKWithData(results))
}
