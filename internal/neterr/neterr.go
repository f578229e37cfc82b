// Package neterr описывает таксономию сетевых ошибок, общую для всех клиентов
// внешних провайдеров (Stripe, Supabase, OpenAI, внутренний API).
//
// Ошибки транспорта и HTTP-статусы нормализуются в *Error на границе
// network.Manager. Предикаты IsRetryable, IsConnectivityError и т.д. зависят
// только от вида ошибки, поэтому вызывающая сторона сама решает, повторять ли запрос.
package neterr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// Kind — вид сетевой ошибки.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindNoInternetConnection
	KindTimeout
	KindUnauthorized
	KindRateLimited
	KindHTTPError
	KindDecodingError
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindInvalidURL:           "invalid_url",
	KindNoInternetConnection: "no_internet_connection",
	KindTimeout:              "timeout",
	KindUnauthorized:         "unauthorized",
	KindRateLimited:          "rate_limited",
	KindHTTPError:            "http_error",
	KindDecodingError:        "decoding_error",
}

// String возвращает имя вида ошибки, пригодное для логов и меток метрик.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error — нормализованная сетевая ошибка. Каждый вид несёт только данные,
// нужные для сообщения: Detail для InvalidURL/DecodingError, StatusCode для
// HTTPError и Underlying для Unknown.
type Error struct {
	Kind       Kind
	Detail     string
	StatusCode int
	Underlying error
}

// InvalidURL создаёт ошибку некорректного адреса.
func InvalidURL(detail string) *Error {
	return &Error{Kind: KindInvalidURL, Detail: detail}
}

// NoInternetConnection создаёт ошибку отсутствия соединения.
func NoInternetConnection() *Error {
	return &Error{Kind: KindNoInternetConnection}
}

// Timeout создаёт ошибку таймаута.
func Timeout() *Error {
	return &Error{Kind: KindTimeout}
}

// Unauthorized создаёт ошибку аутентификации (401/403).
func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized}
}

// RateLimited создаёт ошибку превышения лимита запросов (429).
func RateLimited() *Error {
	return &Error{Kind: KindRateLimited}
}

// HTTPError создаёт ошибку с произвольным не-2xx статусом.
func HTTPError(statusCode int) *Error {
	return &Error{Kind: KindHTTPError, StatusCode: statusCode}
}

// DecodingError создаёт ошибку разбора тела ответа.
func DecodingError(detail string) *Error {
	return &Error{Kind: KindDecodingError, Detail: detail}
}

// Unknown оборачивает нераспознанную ошибку транспорта.
func Unknown(underlying error) *Error {
	return &Error{Kind: KindUnknown, Underlying: underlying}
}

// Error возвращает сообщение для пользователя.
func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return fmt.Sprintf("invalid url: %s", e.Detail)
	case KindNoInternetConnection:
		return "no internet connection"
	case KindTimeout:
		return "request timed out"
	case KindUnauthorized:
		return "unauthorized: please sign in again"
	case KindRateLimited:
		return "too many requests: try again later"
	case KindHTTPError:
		return fmt.Sprintf("http error: status %d", e.StatusCode)
	case KindDecodingError:
		return fmt.Sprintf("failed to decode response: %s", e.Detail)
	default:
		if e.Underlying != nil {
			return fmt.Sprintf("unknown network error: %v", e.Underlying)
		}
		return "unknown network error"
	}
}

// Unwrap возвращает исходную ошибку транспорта для KindUnknown.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is сравнивает вид и полезную нагрузку, так что
// errors.Is(err, neterr.HTTPError(503)) работает как сравнение значений.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	switch e.Kind {
	case KindInvalidURL, KindDecodingError:
		return e.Detail == t.Detail
	case KindHTTPError:
		return e.StatusCode == t.StatusCode
	case KindUnknown:
		if e.Underlying == nil || t.Underlying == nil {
			return e.Underlying == t.Underlying
		}
		return e.Underlying.Error() == t.Underlying.Error()
	default:
		return true
	}
}

// IsConnectivityError — проблемы соединения: нет сети или таймаут.
func (e *Error) IsConnectivityError() bool {
	return e.Kind == KindNoInternetConnection || e.Kind == KindTimeout
}

// IsAuthenticationError — сервер отклонил учётные данные.
func (e *Error) IsAuthenticationError() bool {
	return e.Kind == KindUnauthorized
}

// IsRetryable сообщает, имеет ли смысл повторить запрос.
// Лимит запросов повторяется только после паузы, решение о паузе за вызывающим.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindNoInternetConnection, KindTimeout, KindRateLimited:
		return true
	case KindHTTPError:
		return e.StatusCode >= 500 && e.StatusCode < 600
	default:
		return false
	}
}

// RequiresUserAction — пользователь должен что-то сделать (войти заново).
func (e *Error) RequiresUserAction() bool {
	return e.Kind == KindUnauthorized
}

// FromHTTPStatusCode отображает не-2xx статус в ошибку. Чистая функция.
func FromHTTPStatusCode(statusCode int) *Error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Unauthorized()
	case http.StatusTooManyRequests:
		return RateLimited()
	default:
		return HTTPError(statusCode)
	}
}

// transportErrnoKinds — таблица известных системных кодов ошибок транспорта.
var transportErrnoKinds = map[syscall.Errno]Kind{
	syscall.ECONNREFUSED:  KindNoInternetConnection,
	syscall.ENETUNREACH:   KindNoInternetConnection,
	syscall.EHOSTUNREACH:  KindNoInternetConnection,
	syscall.ENETDOWN:      KindNoInternetConnection,
	syscall.ECONNRESET:    KindNoInternetConnection,
	syscall.ETIMEDOUT:     KindTimeout,
	syscall.ECONNABORTED:  KindNoInternetConnection,
	syscall.EADDRNOTAVAIL: KindNoInternetConnection,
}

// FromTransportError отображает ошибку транспорта в таксономию.
// Нераспознанные ошибки становятся Unknown(err).
func FromTransportError(err error) *Error {
	if err == nil {
		return nil
	}

	var ne *Error
	if errors.As(err, &ne) {
		return ne
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return Timeout()
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if kind, ok := transportErrnoKinds[errno]; ok {
			return &Error{Kind: kind}
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return Timeout()
		}
		return NoInternetConnection()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NoInternetConnection()
	}

	return Unknown(err)
}

// As извлекает *Error из цепочки ошибок.
func As(err error) (*Error, bool) {
	var ne *Error
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// IsRetryable проверяет цепочку err на повторяемую сетевую ошибку.
func IsRetryable(err error) bool {
	ne, ok := As(err)
	return ok && ne.IsRetryable()
}

// IsAuthenticationError проверяет цепочку err на ошибку аутентификации.
func IsAuthenticationError(err error) bool {
	ne, ok := As(err)
	return ok && ne.IsAuthenticationError()
}

// IsConnectivityError проверяет цепочку err на ошибку соединения.
func IsConnectivityError(err error) bool {
	ne, ok := As(err)
	return ok && ne.IsConnectivityError()
}

// RequiresUserAction проверяет цепочку err на ошибку, требующую действия пользователя.
func RequiresUserAction(err error) bool {
	ne, ok := As(err)
	return ok && ne.RequiresUserAction()
}
