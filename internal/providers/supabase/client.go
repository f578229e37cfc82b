// Package supabase — минимальный клиент PostgREST API Supabase.
package supabase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/endpoint"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
	"github.com/magabrotheeeer/provider-gateway/internal/network"
)

const (
	TableAuditEvents   = "audit_events"
	TableSubscriptions = "subscriptions"
)

// Doer выполняет один HTTP-обмен. Реализуется *network.Manager.
type Doer interface {
	Do(ctx context.Context, e endpoint.Endpoint, body []byte) ([]byte, error)
}

// Client обращается к таблицам Supabase через REST.
type Client struct {
	cfg endpoint.SupabaseConfig
	net Doer
	log *slog.Logger
}

func New(cfg endpoint.SupabaseConfig, net Doer, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{cfg: cfg, net: net, log: log}
}

// Insert вставляет одну или несколько строк в таблицу.
func (c *Client) Insert(ctx context.Context, table string, rows any) error {
	const op = "supabase.Insert"
	return c.write(ctx, op, table, rows, "return=minimal")
}

// Upsert вставляет строки, обновляя существующие по первичному ключу.
func (c *Client) Upsert(ctx context.Context, table string, rows any) error {
	const op = "supabase.Upsert"
	return c.write(ctx, op, table, rows, "resolution=merge-duplicates,return=minimal")
}

func (c *Client) write(ctx context.Context, op, table string, rows any, prefer string) error {
	log := c.log.With(sl.Op(op), slog.String("table", table))

	body, err := json.Marshal(rows)
	if err != nil {
		return neterr.Unknown(err)
	}

	e, err := endpoint.Supabase(c.cfg, endpoint.SupabaseTable(table, endpoint.MethodPost))
	if err != nil {
		log.Error("failed to build endpoint", sl.NetErr(err))
		return err
	}

	if _, err := c.net.Do(ctx, e.WithHeader("Prefer", prefer), body); err != nil {
		log.Warn("supabase write failed", sl.NetErr(err))
		return err
	}
	return nil
}

// Select читает строки таблицы. filter — параметры PostgREST,
// например customer_id=eq.cus_1, order=created_at.desc.
func Select[T any](ctx context.Context, c *Client, table string, filter url.Values) ([]T, error) {
	const op = "supabase.Select"
	log := c.log.With(sl.Op(op), slog.String("table", table))

	e, err := endpoint.Supabase(c.cfg, endpoint.SupabaseTable(table, endpoint.MethodGet))
	if err != nil {
		log.Error("failed to build endpoint", sl.NetErr(err))
		return nil, err
	}
	if e, err = e.WithQuery(filter); err != nil {
		return nil, err
	}

	resp, err := c.net.Do(ctx, e, nil)
	if err != nil {
		log.Warn("supabase select failed", sl.NetErr(err))
		return nil, err
	}

	rows, err := network.DecodeJSON[[]T](resp)
	if err != nil {
		return nil, err
	}
	return *rows, nil
}

type auditRow struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Severity  string            `json:"severity"`
	Details   map[string]string `json:"details"`
	CreatedAt time.Time         `json:"created_at"`
}

// SaveAuditEvent зеркалирует событие аудита в таблицу audit_events.
func (c *Client) SaveAuditEvent(ctx context.Context, e audit.Event) error {
	return c.Insert(ctx, TableAuditEvents, []auditRow{{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Severity:  string(e.Severity),
		Details:   e.Details,
		CreatedAt: e.Timestamp,
	}})
}

// MirrorSubscription сохраняет текущее состояние подписки в таблицу subscriptions.
func (c *Client) MirrorSubscription(ctx context.Context, sub models.Subscription) error {
	return c.Upsert(ctx, TableSubscriptions, []models.Subscription{sub})
}
