package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Device-code login for machines where the loopback redirect is impossible
// (SSH sessions, containers). The user enters a short code on a second
// device instead of completing a local browser redirect.

type oidcDiscovery struct {
	TokenEndpoint               string `json:"token_endpoint"`
	DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
}

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

var (
	errAuthorizationPending = errors.New("authorization pending")
	errSlowDown             = errors.New("slow down")
)

// DeviceLogin runs the device authorization grant and returns the exchanged
// bundle.
func DeviceLogin(ctx context.Context, cfg FlowConfig) (TokenBundle, error) {
	if cfg.ClientID == "" {
		return TokenBundle{}, errors.New("client-id is required")
	}
	authority := cfg.Authority
	if authority == "" {
		authority = DefaultAuthority
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	endpoints, err := discoverEndpoints(ctx, client, authority)
	if err != nil {
		return TokenBundle{}, err
	}
	if endpoints.DeviceAuthorizationEndpoint == "" {
		return TokenBundle{}, errors.New("device authorization endpoint not advertised")
	}
	if endpoints.TokenEndpoint == "" {
		return TokenBundle{}, errors.New("token endpoint not advertised")
	}

	deviceResp, err := requestDeviceCode(ctx, client, endpoints.DeviceAuthorizationEndpoint, cfg)
	if err != nil {
		return TokenBundle{}, err
	}

	verificationURL := deviceResp.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = deviceResp.VerificationURI
	}
	_, _ = fmt.Fprintf(cfg.out(), "Visit %s and enter code: %s\n", deviceResp.VerificationURI, deviceResp.UserCode)
	if verificationURL != "" && !cfg.NoBrowser && !headlessEnv() {
		_ = openBrowser(verificationURL)
	}

	interval := time.Duration(deviceResp.Interval) * time.Second
	if interval == 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(deviceResp.ExpiresIn) * time.Second)

	for {
		if time.Now().After(deadline) {
			return TokenBundle{}, ErrTimeout
		}
		tokenResp, err := pollDeviceToken(ctx, client, endpoints.TokenEndpoint, cfg, deviceResp.DeviceCode)
		if err != nil {
			if errors.Is(err, errAuthorizationPending) {
				if err := sleepCtx(ctx, interval); err != nil {
					return TokenBundle{}, err
				}
				continue
			}
			if errors.Is(err, errSlowDown) {
				interval += 5 * time.Second
				if err := sleepCtx(ctx, interval); err != nil {
					return TokenBundle{}, err
				}
				continue
			}
			return TokenBundle{}, err
		}
		bundle := TokenBundle{
			AccessToken:  tokenResp.AccessToken,
			IDToken:      tokenResp.IDToken,
			RefreshToken: tokenResp.RefreshToken,
			Expiry:       time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		}
		if email, err := ExtractEmail(bundle.IDToken); err == nil {
			bundle.ScopeIdentity = email
		} else {
			bundle.ScopeIdentity = DefaultIdentity
		}
		return bundle, nil
	}
}

func discoverEndpoints(ctx context.Context, client *http.Client, authority string) (*oidcDiscovery, error) {
	wellKnown := strings.TrimRight(authority, "/") + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("discovery failed: %s", string(body))
	}
	var discovery oidcDiscovery
	if err := json.NewDecoder(resp.Body).Decode(&discovery); err != nil {
		return nil, err
	}
	return &discovery, nil
}

func requestDeviceCode(ctx context.Context, client *http.Client, endpoint string, cfg FlowConfig) (*deviceCodeResponse, error) {
	values := url.Values{}
	values.Set("client_id", cfg.ClientID)
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email"}
	}
	values.Set("scope", strings.Join(scopes, " "))
	resp, err := client.PostForm(endpoint, values)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("device authorization failed: %s", string(body))
	}
	var payload deviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func pollDeviceToken(ctx context.Context, client *http.Client, endpoint string, cfg FlowConfig, deviceCode string) (*tokenResponse, error) {
	values := url.Values{}
	values.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")
	values.Set("device_code", deviceCode)
	values.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		values.Set("client_secret", cfg.ClientSecret)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		switch payload.Error {
		case "authorization_pending":
			return nil, errAuthorizationPending
		case "slow_down":
			return nil, errSlowDown
		default:
			return nil, &TokenExchangeError{
				StatusCode:   resp.StatusCode,
				ProviderCode: payload.Error,
				Description:  payload.ErrorDesc,
			}
		}
	}
	return &payload, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
