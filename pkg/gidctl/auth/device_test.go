package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviceProvider(t *testing.T, tokenHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                        server.URL,
			"token_endpoint":                server.URL + "/token",
			"device_authorization_endpoint": server.URL + "/device",
		})
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.Form.Get("client_id"))
		_ = json.NewEncoder(w).Encode(deviceCodeResponse{
			DeviceCode:      "device-code-1",
			UserCode:        "ABCD-EFGH",
			VerificationURI: server.URL + "/verify",
			ExpiresIn:       60,
			Interval:        1,
		})
	})
	mux.HandleFunc("/token", tokenHandler)
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDeviceLogin_PendingThenSuccess(t *testing.T) {
	idToken := makeIDToken(t, map[string]any{"email": "u@x.com"})
	var polls atomic.Int32
	server := newDeviceProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.Form.Get("grant_type"))
		assert.Equal(t, "device-code-1", r.Form.Get("device_code"))
		if polls.Add(1) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "AT1",
			"id_token":      idToken,
			"refresh_token": "RT1",
			"expires_in":    3600,
		})
	})

	cfg := FlowConfig{
		Authority:  server.URL,
		ClientID:   "test-client",
		NoBrowser:  true,
		Out:        &syncBuffer{},
		HTTPClient: server.Client(),
	}
	bundle, err := DeviceLogin(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "AT1", bundle.AccessToken)
	assert.Equal(t, "RT1", bundle.RefreshToken)
	assert.Equal(t, "u@x.com", bundle.ScopeIdentity)
	assert.WithinDuration(t, time.Now().Add(time.Hour), bundle.Expiry, 10*time.Second)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestDeviceLogin_Denied(t *testing.T) {
	server := newDeviceProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "access_denied",
			"error_description": "user declined",
		})
	})

	cfg := FlowConfig{
		Authority:  server.URL,
		ClientID:   "test-client",
		NoBrowser:  true,
		Out:        &syncBuffer{},
		HTTPClient: server.Client(),
	}
	_, err := DeviceLogin(context.Background(), cfg)
	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, "access_denied", exchangeErr.ProviderCode)
}

func TestDeviceLogin_CancelledWhilePending(t *testing.T) {
	server := newDeviceProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cfg := FlowConfig{
		Authority:  server.URL,
		ClientID:   "test-client",
		NoBrowser:  true,
		Out:        &syncBuffer{},
		HTTPClient: server.Client(),
	}
	_, err := DeviceLogin(ctx, cfg)
	require.Error(t, err)
}
