package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// TokenBundle is the cached credential set for one authenticated identity.
// Expiry is always an absolute timestamp, never a duration.
type TokenBundle struct {
	AccessToken   string    `json:"access_token"`
	IDToken       string    `json:"id_token"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	Expiry        time.Time `json:"token_expiry"`
	ScopeIdentity string    `json:"scope_identity,omitempty"`
}

func (b TokenBundle) encode() ([]byte, error) {
	if b.AccessToken == "" {
		return nil, errors.New("refusing to serialize bundle with empty access token")
	}
	content, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token bundle: %w", err)
	}
	return content, nil
}

func decodeBundle(data []byte) (TokenBundle, error) {
	var b TokenBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return TokenBundle{}, fmt.Errorf("failed to parse token bundle: %w", err)
	}
	return b, nil
}

// bundleFromToken converts an oauth2 token response into a bundle. The
// previous bundle fills in whatever the response omitted: providers may not
// rotate the refresh token or reissue the ID token on refresh.
func bundleFromToken(tok *oauth2.Token, prev TokenBundle) TokenBundle {
	out := TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		out.IDToken = idToken
	} else {
		out.IDToken = prev.IDToken
	}
	if out.RefreshToken == "" {
		out.RefreshToken = prev.RefreshToken
	}
	if email, err := ExtractEmail(out.IDToken); err == nil {
		out.ScopeIdentity = email
	} else {
		out.ScopeIdentity = prev.ScopeIdentity
	}
	return out
}
