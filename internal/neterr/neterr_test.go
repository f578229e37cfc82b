package neterr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       *Error
	}{
		{name: "401 unauthorized", statusCode: 401, want: Unauthorized()},
		{name: "403 forbidden maps to unauthorized", statusCode: 403, want: Unauthorized()},
		{name: "429 rate limited", statusCode: 429, want: RateLimited()},
		{name: "404 generic", statusCode: 404, want: HTTPError(404)},
		{name: "500 generic", statusCode: 500, want: HTTPError(500)},
		{name: "503 generic", statusCode: 503, want: HTTPError(503)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := FromHTTPStatusCode(tt.statusCode)
			second := FromHTTPStatusCode(tt.statusCode)

			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second)
			assert.True(t, errors.Is(first, tt.want))
		})
	}
}

func TestError_Predicates(t *testing.T) {
	tests := []struct {
		name               string
		err                *Error
		retryable          bool
		connectivity       bool
		authentication     bool
		requiresUserAction bool
	}{
		{name: "no internet", err: NoInternetConnection(), retryable: true, connectivity: true},
		{name: "timeout", err: Timeout(), retryable: true, connectivity: true},
		{name: "unauthorized", err: Unauthorized(), authentication: true, requiresUserAction: true},
		{name: "rate limited", err: RateLimited(), retryable: true},
		{name: "http 500", err: HTTPError(500), retryable: true},
		{name: "http 599", err: HTTPError(599), retryable: true},
		{name: "http 404", err: HTTPError(404)},
		{name: "http 400", err: HTTPError(400)},
		{name: "decoding", err: DecodingError("unexpected EOF")},
		{name: "invalid url", err: InvalidURL("missing scheme")},
		{name: "unknown", err: Unknown(errors.New("boom"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, tt.connectivity, tt.err.IsConnectivityError())
			assert.Equal(t, tt.authentication, tt.err.IsAuthenticationError())
			assert.Equal(t, tt.requiresUserAction, tt.err.RequiresUserAction())
		})
	}
}

func TestError_IsComparesPayload(t *testing.T) {
	assert.True(t, errors.Is(HTTPError(502), HTTPError(502)))
	assert.False(t, errors.Is(HTTPError(502), HTTPError(503)))
	assert.True(t, errors.Is(DecodingError("x"), DecodingError("x")))
	assert.False(t, errors.Is(DecodingError("x"), DecodingError("y")))
	assert.False(t, errors.Is(Timeout(), NoInternetConnection()))

	wrapped := fmt.Errorf("stripe.CreateSubscription: %w", RateLimited())
	assert.True(t, errors.Is(wrapped, RateLimited()))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain")))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransportError(t *testing.T) {
	underlying := errors.New("tls: handshake failure")

	tests := []struct {
		name string
		err  error
		want *Error
	}{
		{name: "context deadline", err: context.DeadlineExceeded, want: Timeout()},
		{name: "wrapped deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: Timeout()},
		{name: "net timeout", err: timeoutErr{}, want: Timeout()},
		{
			name: "connection refused",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			want: NoInternetConnection(),
		},
		{
			name: "network unreachable",
			err:  &net.OpError{Op: "read", Net: "tcp", Err: syscall.ENETUNREACH},
			want: NoInternetConnection(),
		},
		{
			name: "dns not found",
			err:  &net.DNSError{Err: "no such host", Name: "api.stripe.com", IsNotFound: true},
			want: NoInternetConnection(),
		},
		{name: "unmapped", err: underlying, want: Unknown(underlying)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTransportError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.True(t, errors.Is(got, tt.want))
		})
	}

	assert.Nil(t, FromTransportError(nil))
}

func TestFromTransportError_KeepsNormalizedError(t *testing.T) {
	orig := HTTPError(418)
	assert.Same(t, orig, FromTransportError(fmt.Errorf("wrap: %w", orig)))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "rate_limited", KindRateLimited.String())
	assert.Equal(t, "http_error", HTTPError(500).Kind.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
