// Package assistant реализует чат с ассистентом поверх OpenAI.
// Последнее сообщение пользователя проходит модерацию до запроса к модели.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/providers/openai"
)

// Assistant — клиент языковой модели.
type Assistant interface {
	Moderate(ctx context.Context, input string) (*openai.ModerationResult, error)
	ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error)
}

// Auditor фиксирует отклонённые модерацией сообщения.
type Auditor interface {
	Log(ctx context.Context, kind audit.Kind, severity audit.Severity, details map[string]string) audit.Event
}

// ChatRequest — тело запроса к ассистенту.
type ChatRequest struct {
	Messages []openai.Message `json:"messages" validate:"required,min=1,max=50,dive"`
}

// ChatHandler проксирует диалог клиента в модель после модерации.
type ChatHandler struct {
	log       *slog.Logger        // Логгер для записи информации и ошибок
	assistant Assistant           // Клиент OpenAI
	audit     Auditor             // Аудит отклонённых сообщений
	validate  *validator.Validate // Валидатор тела запроса
}

// NewChat создаёт ChatHandler.
func NewChat(log *slog.Logger, assistant Assistant, auditor Auditor) *ChatHandler {
	return &ChatHandler{log: log, assistant: assistant, audit: auditor, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Чат с ассистентом
// @Description Модерирует последнее сообщение пользователя и запрашивает ответ модели.
// @Tags Assistant
// @Accept  json
// @Produce  json
// @Param request body ChatRequest true "Сообщения диалога"
// @Success 200 {object} response.Response{data=openai.ChatResponse} "Ответ модели"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Failure 422 {object} response.Response "Ошибка валидации или сообщение отклонено модерацией"
// @Failure 502 {object} response.Response "Ошибка провайдера"
// @Failure 504 {object} response.Response "Провайдер не ответил вовремя"
// @Security BearerAuth
// @Router /assistant/chat [post]
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assistant.chat"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	customerID, _ := middlewarectx.CustomerID(r.Context())

	if input := lastUserMessage(req.Messages); input != "" {
		mod, err := h.assistant.Moderate(r.Context(), input)
		if err != nil {
			h.renderUpstreamError(w, r, log, "moderation failed", err)
			return
		}
		if mod.Flagged {
			log.Warn("message flagged by moderation", slog.Any("categories", mod.Categories))
			h.audit.Log(r.Context(), audit.KindAssistantMessageFlagged, audit.SeverityWarning, map[string]string{
				"customer_id": customerID,
				"categories":  strings.Join(mod.Categories, ","),
			})
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ErrorWithData("message rejected by moderation", map[string]any{
				"categories": mod.Categories,
			}))
			return
		}
	}

	resp, err := h.assistant.ChatCompletion(r.Context(), openai.ChatRequest{
		Messages: req.Messages,
		User:     customerID,
	})
	if err != nil {
		h.renderUpstreamError(w, r, log, "chat completion failed", err)
		return
	}

	log.Info("chat completed", slog.String("model", resp.Model), slog.Int("total_tokens", resp.Usage.TotalTokens))
	render.JSON(w, r, response.OKWithData(resp))
}

func (h *ChatHandler) renderUpstreamError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	log.Error(msg, sl.NetErr(err))
	status, text, ok := response.UpstreamStatus(err)
	if !ok {
		status, text = http.StatusInternalServerError, msg
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(text))
}

func lastUserMessage(msgs []openai.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}
