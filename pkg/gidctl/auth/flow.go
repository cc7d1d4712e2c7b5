package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Supported grant types for interactive login.
const (
	GrantAuthorizationCode = "authorization-code"
	GrantDeviceCode        = "device-code"
)

const (
	// DefaultAuthority is Google's OIDC issuer.
	DefaultAuthority = "https://accounts.google.com"

	defaultListenTimeout  = 3 * time.Minute
	defaultRequestTimeout = 30 * time.Second
)

// FlowConfig is the static client configuration for login and refresh.
type FlowConfig struct {
	Authority       string
	ClientID        string
	ClientSecret    string
	Scopes          []string
	GrantType       string
	RedirectPort    int
	ListenTimeout   time.Duration
	ExtraAuthParams map[string]string
	NoBrowser       bool

	// Out receives the authorization URL when the browser cannot be
	// launched. Defaults to stdout.
	Out    io.Writer
	Logger *zap.Logger

	// HTTPClient overrides the provider transport, used by tests.
	HTTPClient *http.Client
}

func (cfg FlowConfig) out() io.Writer {
	if cfg.Out != nil {
		return cfg.Out
	}
	return os.Stdout
}

func (cfg FlowConfig) logger() *zap.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return zap.NewNop()
}

type flowState string

const (
	stateIdle             flowState = "idle"
	stateURLBuilt         flowState = "url-built"
	stateAwaitingRedirect flowState = "awaiting-redirect"
	stateExchanging       flowState = "exchanging"
	stateComplete         flowState = "complete"
	stateFailed           flowState = "failed"
)

// Flow runs one interactive authorization-code login. It is single-shot: a
// failed flow is not retried in place, callers construct a new one. All
// per-flow secrets (PKCE verifier, state nonce, port binding) live only for
// the duration of Run.
type Flow struct {
	cfg   FlowConfig
	log   *zap.Logger
	state flowState
}

func NewFlow(cfg FlowConfig) *Flow {
	return &Flow{
		cfg:   cfg,
		log:   cfg.logger().With(zap.String("flow", uuid.NewString()[:8])),
		state: stateIdle,
	}
}

func (f *Flow) transition(next flowState) {
	f.log.Debug("flow state transition",
		zap.String("from", string(f.state)),
		zap.String("to", string(next)))
	f.state = next
}

// Run drives the flow to Complete or Failed and returns the exchanged
// bundle. The bundle's expiry is absolute and its identity is derived from
// the ID token.
func (f *Flow) Run(ctx context.Context) (TokenBundle, error) {
	if f.state != stateIdle {
		return TokenBundle{}, fmt.Errorf("flow already ran (state %s)", f.state)
	}
	bundle, err := f.run(ctx)
	if err != nil {
		f.transition(stateFailed)
		return TokenBundle{}, err
	}
	f.transition(stateComplete)
	return bundle, nil
}

func (f *Flow) run(ctx context.Context) (TokenBundle, error) {
	if f.cfg.ClientID == "" {
		return TokenBundle{}, errors.New("client-id is required")
	}

	listener, err := NewRedirectListener(f.cfg.RedirectPort)
	if err != nil {
		return TokenBundle{}, err
	}
	// The port must be released on every exit path, including caller-side
	// cancellation, so a retried flow can rebind.
	defer func() {
		_ = listener.Close()
	}()

	oauthCfg, client, err := buildOAuthConfig(ctx, f.cfg, listener.RedirectURI())
	if err != nil {
		return TokenBundle{}, err
	}

	verifier := oauth2.GenerateVerifier()
	stateNonce, err := randomToken(32)
	if err != nil {
		return TokenBundle{}, err
	}

	authOpts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	}
	for key, value := range f.cfg.ExtraAuthParams {
		authOpts = append(authOpts, oauth2.SetAuthURLParam(key, value))
	}
	authURL := oauthCfg.AuthCodeURL(stateNonce, authOpts...)
	f.transition(stateURLBuilt)

	openBrowserOrPrint(f.cfg.out(), authURL, f.cfg.NoBrowser)
	f.transition(stateAwaitingRedirect)

	timeout := f.cfg.ListenTimeout
	if timeout == 0 {
		timeout = defaultListenTimeout
	}
	code, err := listener.Await(ctx, stateNonce, timeout)
	if err != nil {
		return TokenBundle{}, err
	}
	f.transition(stateExchanging)

	token, err := oauthCfg.Exchange(
		context.WithValue(ctx, oauth2.HTTPClient, client),
		code,
		oauth2.VerifierOption(verifier),
	)
	if err != nil {
		return TokenBundle{}, newExchangeError(err)
	}
	if token.AccessToken == "" {
		return TokenBundle{}, &TokenExchangeError{Description: "response carried no access token"}
	}

	bundle := bundleFromToken(token, TokenBundle{})
	if bundle.ScopeIdentity == "" {
		// No decodable email claim. Cache under the fixed default key
		// rather than failing a login that the provider accepted.
		f.log.Warn("could not derive identity from id token, using default key")
		bundle.ScopeIdentity = DefaultIdentity
	}
	f.log.Debug("authorization flow complete",
		zap.String("identity", bundle.ScopeIdentity),
		zap.Time("expiry", bundle.Expiry))
	return bundle, nil
}

// buildOAuthConfig discovers the provider endpoints and assembles the oauth2
// client configuration.
func buildOAuthConfig(ctx context.Context, cfg FlowConfig, redirectURL string) (oauth2.Config, *http.Client, error) {
	if cfg.ClientID == "" {
		return oauth2.Config{}, nil, errors.New("client-id is required")
	}
	authority := cfg.Authority
	if authority == "" {
		authority = DefaultAuthority
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), authority)
	if err != nil {
		return oauth2.Config{}, nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email"}
	}
	return oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}, client, nil
}

func randomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
