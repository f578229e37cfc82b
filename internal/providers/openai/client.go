// Package openai — клиент чата и модерации OpenAI поверх network.Manager.
// Повторяет запрос с экспоненциальной задержкой, пока ошибка остаётся повторяемой.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/provider-gateway/internal/endpoint"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
	"github.com/magabrotheeeer/provider-gateway/internal/network"
)

const (
	defaultModel      = "gpt-4o-mini"
	defaultMaxRetries = 3
)

// Doer выполняет один HTTP-обмен. Реализуется *network.Manager.
type Doer interface {
	Do(ctx context.Context, e endpoint.Endpoint, body []byte) ([]byte, error)
}

// Client выполняет вызовы OpenAI.
type Client struct {
	cfg        endpoint.OpenAIConfig
	net        Doer
	log        *slog.Logger
	model      string
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// Option настраивает Client.
type Option func(*Client) error

// WithModel задаёт модель чата по умолчанию.
func WithModel(model string) Option {
	return func(c *Client) error {
		if model == "" {
			return errors.New("openai: model must not be empty")
		}
		c.model = model
		return nil
	}
}

// WithMaxRetries ограничивает число повторов после первой попытки.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) error {
		c.maxRetries = n
		return nil
	}
}

// WithBackOff задаёт фабрику политики задержек между попытками.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) error {
		if f == nil {
			return errors.New("openai: backoff factory must not be nil")
		}
		c.newBackOff = f
		return nil
	}
}

// New создаёт клиент OpenAI.
func New(cfg endpoint.OpenAIConfig, net Doer, log *slog.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		cfg:        cfg,
		net:        net,
		log:        log,
		model:      defaultModel,
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Message — сообщение диалога.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest — запрос к chat completions.
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages" validate:"required,min=1,dive"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	User        string    `json:"user,omitempty"`
}

// Usage — расход токенов.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse — первый вариант ответа модели.
type ChatResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// ChatCompletion отправляет диалог модели и возвращает первый вариант ответа.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	const op = "openai.ChatCompletion"

	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, neterr.Unknown(err)
	}

	resp, err := c.do(ctx, op, endpoint.OpenAIChatCompletions, body)
	if err != nil {
		return nil, err
	}

	out, err := network.DecodeJSON[chatCompletionResponse](resp)
	if err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, neterr.DecodingError("chat completion has no choices")
	}
	return &ChatResponse{
		ID:           out.ID,
		Model:        out.Model,
		Content:      out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
		Usage:        out.Usage,
	}, nil
}

// ModerationResult — итог модерации текста.
type ModerationResult struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

// Moderate проверяет текст модерацией OpenAI. Категории возвращаются отсортированными.
func (c *Client) Moderate(ctx context.Context, input string) (*ModerationResult, error) {
	const op = "openai.Moderate"

	body, err := json.Marshal(map[string]string{"input": input})
	if err != nil {
		return nil, neterr.Unknown(err)
	}

	resp, err := c.do(ctx, op, endpoint.OpenAIModerations, body)
	if err != nil {
		return nil, err
	}

	out, err := network.DecodeJSON[moderationResponse](resp)
	if err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, neterr.DecodingError("moderation has no results")
	}

	res := &ModerationResult{Flagged: out.Results[0].Flagged}
	for name, hit := range out.Results[0].Categories {
		if hit {
			res.Categories = append(res.Categories, name)
		}
	}
	sort.Strings(res.Categories)
	return res, nil
}

// do выполняет запрос с повторами. Неповторяемая ошибка прекращает попытки сразу.
func (c *Client) do(ctx context.Context, op string, r endpoint.Resource, body []byte) ([]byte, error) {
	log := c.log.With(sl.Op(op))

	e, err := endpoint.OpenAI(c.cfg, r)
	if err != nil {
		log.Error("failed to build endpoint", sl.NetErr(err))
		return nil, err
	}

	var resp []byte
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		resp, err = c.net.Do(ctx, e, body)
		if err != nil && !neterr.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Warn("openai request failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("next_in", next),
			sl.NetErr(err),
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		// отмена контекста во время паузы приходит как ошибка context
		err = neterr.FromTransportError(err)
		log.Error("openai request failed", slog.Int("attempts", attempt), sl.NetErr(err))
		return nil, err
	}
	return resp, nil
}
