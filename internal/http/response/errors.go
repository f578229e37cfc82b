package response

import (
	"net/http"

	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

// UpstreamStatus переводит сетевую ошибку провайдера в HTTP-статус ответа
// клиенту шлюза. ok == false, если err не сетевая ошибка.
func UpstreamStatus(err error) (status int, msg string, ok bool) {
	ne, ok := neterr.As(err)
	if !ok {
		return 0, "", false
	}
	switch ne.Kind {
	case neterr.KindTimeout:
		return http.StatusGatewayTimeout, "upstream provider timed out", true
	case neterr.KindRateLimited:
		return http.StatusServiceUnavailable, "upstream provider is rate limiting requests", true
	case neterr.KindNoInternetConnection:
		return http.StatusServiceUnavailable, "upstream provider is unreachable", true
	case neterr.KindHTTPError:
		if ne.StatusCode == http.StatusPaymentRequired {
			return http.StatusPaymentRequired, "payment was declined", true
		}
		if ne.StatusCode >= 400 && ne.StatusCode < 500 {
			return http.StatusBadRequest, "request rejected by upstream provider", true
		}
		return http.StatusBadGateway, "upstream provider error", true
	default:
		return http.StatusBadGateway, "upstream provider error", true
	}
}
