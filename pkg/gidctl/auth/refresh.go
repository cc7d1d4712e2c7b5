package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// refreshMargin is the skew buffer applied before the real expiry so a token
// handed out here survives clock drift and in-flight requests.
const refreshMargin = 60 * time.Second

// NeedsRefresh reports whether the bundle is stale at the given instant:
// true iff now >= token_expiry - margin.
func NeedsRefresh(bundle TokenBundle, now time.Time) bool {
	return !now.Before(bundle.Expiry.Add(-refreshMargin))
}

// Refresh performs a silent renewal using the stored refresh token. The
// returned bundle keeps the previous refresh token and ID token when the
// provider omits them, since many providers do not rotate either.
func Refresh(ctx context.Context, cfg FlowConfig, bundle TokenBundle) (TokenBundle, error) {
	if bundle.RefreshToken == "" {
		return TokenBundle{}, &RefreshError{Err: errors.New("no refresh token available")}
	}
	oauthCfg, client, err := buildOAuthConfig(ctx, cfg, "")
	if err != nil {
		return TokenBundle{}, &RefreshError{Err: err}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)

	// An empty access token forces the token source to hit the endpoint.
	src := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: bundle.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return TokenBundle{}, newRefreshError(err)
	}
	if token.AccessToken == "" {
		return TokenBundle{}, &RefreshError{Err: errors.New("refresh response carried no access token")}
	}
	return bundleFromToken(token, bundle), nil
}
