// Package network выполняет один HTTP-обмен с внешним провайдером и
// переводит результат транспорта в сырое тело ответа или *neterr.Error.
//
// Manager не кеширует ответы и не повторяет запросы: политика повторов
// принадлежит вызывающему коду, который смотрит на neterr.IsRetryable.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/provider-gateway/internal/endpoint"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

// maxResponseSize ограничивает размер читаемого тела ответа.
const maxResponseSize = 10 << 20

// Transport — HTTP-клиент, которому Manager делегирует запрос.
// *http.Client удовлетворяет интерфейсу.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer получает исход каждого обмена (метрики).
type Observer interface {
	ObserveRequest(provider, method, outcome string, elapsed time.Duration)
}

// Manager выполняет запросы на внедрённом транспорте.
type Manager struct {
	transport Transport
	name      string
	limiter   *rate.Limiter
	observer  Observer
	log       *slog.Logger
}

// Option настраивает Manager.
type Option func(*Manager) error

// WithName задаёт имя провайдера для логов и меток метрик.
func WithName(name string) Option {
	return func(m *Manager) error {
		if name == "" {
			return fmt.Errorf("provider name cannot be empty")
		}
		m.name = name
		return nil
	}
}

// WithRateLimiter ограничивает частоту исходящих запросов. Запрос ждёт
// токена, пока не отменён ctx; это не повтор, а выравнивание нагрузки.
func WithRateLimiter(limit rate.Limit, burst int) Option {
	return func(m *Manager) error {
		if limit <= 0 {
			return fmt.Errorf("rate limit must be greater than 0")
		}
		if burst <= 0 {
			return fmt.Errorf("rate limit burst must be greater than 0")
		}
		m.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// WithObserver подключает сбор метрик.
func WithObserver(o Observer) Option {
	return func(m *Manager) error {
		m.observer = o
		return nil
	}
}

// WithLogger задаёт логгер.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) error {
		if log == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		m.log = log
		return nil
	}
}

// NewManager создаёт Manager поверх transport.
func NewManager(transport Transport, opts ...Option) (*Manager, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	m := &Manager{
		transport: transport,
		name:      "provider",
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name возвращает имя провайдера.
func (m *Manager) Name() string {
	return m.name
}

// Do выполняет запрос к эндпоинту. body может быть nil.
func (m *Manager) Do(ctx context.Context, e endpoint.Endpoint, body []byte) ([]byte, error) {
	return m.do(ctx, string(e.Method()), e.URL(), e.Headers(), body)
}

// DoURL выполняет запрос по готовому адресу, минуя Endpoint.
func (m *Manager) DoURL(ctx context.Context, method endpoint.HTTPMethod, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	if !method.Valid() {
		return nil, neterr.InvalidURL(fmt.Sprintf("unsupported method %q", method))
	}
	return m.do(ctx, string(method), rawURL, headers, body)
}

func (m *Manager) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	const op = "network.Manager.Do"
	log := m.log.With(
		slog.String("op", op),
		slog.String("provider", m.name),
		slog.String("method", method),
		slog.String("url", rawURL),
	)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, neterr.InvalidURL(err.Error())
	}
	if !req.URL.IsAbs() {
		return nil, neterr.InvalidURL(rawURL + ": not an absolute url")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			// лимитер отказывает и тогда, когда ожидание не укладывается в дедлайн ctx
			ne := neterr.Timeout()
			if errors.Is(ctx.Err(), context.Canceled) {
				ne = neterr.Unknown(ctx.Err())
			}
			log.Warn("rate limiter wait aborted", sl.Err(err))
			return nil, ne
		}
	}

	start := time.Now()
	resp, err := m.transport.Do(req)
	if err != nil {
		ne := neterr.FromTransportError(err)
		m.observe(method, ne.Kind.String(), start)
		log.Error("transport error", slog.String("kind", ne.Kind.String()), sl.Err(err))
		return nil, ne
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ne := neterr.FromHTTPStatusCode(resp.StatusCode)
		// тело ошибки читается только для лога
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		m.observe(method, ne.Kind.String(), start)
		log.Warn("unexpected status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return nil, ne
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		ne := neterr.FromTransportError(err)
		m.observe(method, ne.Kind.String(), start)
		log.Error("failed to read response body", sl.Err(err))
		return nil, ne
	}

	m.observe(method, "ok", start)
	log.Debug("request completed", slog.Int("status", resp.StatusCode), slog.Int("bytes", len(data)))
	return data, nil
}

func (m *Manager) observe(method, outcome string, start time.Time) {
	if m.observer != nil {
		m.observer.ObserveRequest(m.name, method, outcome, time.Since(start))
	}
}

// DecodeJSON разбирает тело ответа. Ошибка разбора — контрактная
// ошибка и возвращается как neterr.DecodingError.
func DecodeJSON[T any](body []byte) (*T, error) {
	var result T
	if len(body) == 0 {
		return nil, neterr.DecodingError("empty response body")
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, neterr.DecodingError(err.Error())
	}
	return &result, nil
}
