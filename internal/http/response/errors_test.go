package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

func TestUpstreamStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		ok     bool
	}{
		{name: "timeout", err: neterr.Timeout(), status: http.StatusGatewayTimeout, ok: true},
		{name: "rate limited", err: neterr.RateLimited(), status: http.StatusServiceUnavailable, ok: true},
		{name: "no connection", err: neterr.NoInternetConnection(), status: http.StatusServiceUnavailable, ok: true},
		{name: "card declined", err: neterr.HTTPError(402), status: http.StatusPaymentRequired, ok: true},
		{name: "bad request", err: neterr.HTTPError(400), status: http.StatusBadRequest, ok: true},
		{name: "server error", err: neterr.HTTPError(500), status: http.StatusBadGateway, ok: true},
		{name: "unauthorized", err: neterr.Unauthorized(), status: http.StatusBadGateway, ok: true},
		{name: "wrapped", err: fmt.Errorf("create: %w", neterr.Timeout()), status: http.StatusGatewayTimeout, ok: true},
		{name: "plain", err: errors.New("boom"), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, ok := UpstreamStatus(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, status)
			if ok {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
