package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-please-rotate")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	v := &TokenVerifier{Secret: testSecret, Issuer: "doorman"}

	raw, err := MintToken(testSecret, "doorman", "bridge-1", []string{"events:write"}, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "bridge-1", claims.Subject)
	require.Equal(t, []string{"events:write"}, claims.Scopes)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	v := &TokenVerifier{Secret: testSecret, Issuer: "doorman"}

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := MintToken([]byte("other-secret"), "doorman", "x", nil, time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw, err := MintToken(testSecret, "someone-else", "x", nil, time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		raw, err := MintToken(testSecret, "doorman", "x", nil, -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	v := &TokenVerifier{Secret: testSecret, Issuer: "doorman"}
	h := Chain(okHandler(), AuthnMiddleware(v), RequireAnyScope("operator"))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scope", func(t *testing.T) {
		raw, err := MintToken(testSecret, "doorman", "bridge-1", []string{"events:write"}, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid", func(t *testing.T) {
		raw, err := MintToken(testSecret, "doorman", "op-1", []string{"operator"}, time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	cfg := RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	h := Chain(okHandler(), RateLimitByIP(cfg))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4444"

	for range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client is unaffected.
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.9.9.9:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
