// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель — единообразные поля логов для ошибок и операций.
package sl

import (
	"log/slog"

	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to create subscription", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Op возвращает slog.Attr с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// NetErr раскладывает сетевую ошибку на группу полей: вид, статус и
// признак повторяемости. Для прочих ошибок ведёт себя как Err.
func NetErr(err error) slog.Attr {
	ne, ok := neterr.As(err)
	if !ok {
		return Err(err)
	}
	return slog.Group("error",
		slog.String("kind", ne.Kind.String()),
		slog.Int("status", ne.StatusCode),
		slog.Bool("retryable", ne.IsRetryable()),
		slog.String("message", ne.Error()),
	)
}
