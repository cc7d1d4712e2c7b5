/*
SPDX-FileCopyrightText: 2026 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Manager is the single entry point for obtaining a usable token. It
// composes the credential store, the refresh engine, and the interactive
// flow: cached-valid wins, then silent refresh, then a full login. Every
// freshly obtained credential is persisted before it is returned.
//
// Concurrent GetToken calls are not serialized here; callers that need
// single-flight semantics across processes add their own lock.
type Manager struct {
	store Store
	cfg   FlowConfig
	log   *zap.Logger

	// Seams for tests; default to the interactive flow and Refresh.
	loginFn   func(ctx context.Context) (TokenBundle, error)
	refreshFn func(ctx context.Context, bundle TokenBundle) (TokenBundle, error)
	now       func() time.Time
}

func NewManager(store Store, cfg FlowConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	m := &Manager{store: store, cfg: cfg, log: logger, now: time.Now}
	m.loginFn = m.interactiveLogin
	m.refreshFn = func(ctx context.Context, bundle TokenBundle) (TokenBundle, error) {
		return Refresh(ctx, m.cfg, bundle)
	}
	return m
}

// GetToken returns a valid token bundle, reusing the cache when possible.
// The fast path (cached and fresh) performs no network calls.
func (m *Manager) GetToken(ctx context.Context) (TokenBundle, error) {
	bundle, err := m.store.Load("")
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		m.log.Debug("no cached credential, starting interactive login")
		return m.Login(ctx)
	default:
		// Store faults are recoverable: re-authorize instead of blocking
		// the user on a backend problem.
		m.log.Warn("credential store unavailable, starting interactive login", zap.Error(err))
		return m.Login(ctx)
	}

	if !NeedsRefresh(bundle, m.now()) {
		m.log.Debug("using cached token",
			zap.String("identity", bundle.ScopeIdentity),
			zap.Time("expiry", bundle.Expiry))
		return bundle, nil
	}

	if bundle.RefreshToken != "" {
		refreshed, err := m.refreshFn(ctx, bundle)
		if err == nil {
			m.persist(refreshed)
			m.log.Debug("token refreshed",
				zap.String("identity", refreshed.ScopeIdentity),
				zap.Time("expiry", refreshed.Expiry))
			return refreshed, nil
		}
		if ctx.Err() != nil {
			return TokenBundle{}, ctx.Err()
		}
		m.log.Warn("refresh failed, falling back to interactive login", zap.Error(err))
	} else {
		m.log.Debug("cached token is stale and has no refresh token")
	}

	return m.Login(ctx)
}

// Login runs the interactive flow unconditionally and persists the result.
func (m *Manager) Login(ctx context.Context) (TokenBundle, error) {
	bundle, err := m.loginFn(ctx)
	if err != nil {
		return TokenBundle{}, err
	}
	m.persist(bundle)
	return bundle, nil
}

// Logout removes the cached credential for the current identity.
func (m *Manager) Logout() error {
	bundle, err := m.store.Load("")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	identity := bundle.ScopeIdentity
	if identity == "" {
		identity = DefaultIdentity
	}
	return m.store.Delete(identity)
}

// Status returns the cached bundle without touching the network, and
// whether it is still fresh.
func (m *Manager) Status() (TokenBundle, bool, error) {
	bundle, err := m.store.Load("")
	if err != nil {
		return TokenBundle{}, false, err
	}
	return bundle, !NeedsRefresh(bundle, m.now()), nil
}

func (m *Manager) interactiveLogin(ctx context.Context) (TokenBundle, error) {
	if m.cfg.GrantType == GrantDeviceCode {
		return DeviceLogin(ctx, m.cfg)
	}
	return NewFlow(m.cfg).Run(ctx)
}

// persist writes the bundle before it is handed to the caller, so a crash
// between token receipt and use never loses a fresh credential. A store
// fault here is logged, not fatal: the caller still gets the token.
func (m *Manager) persist(bundle TokenBundle) {
	if err := m.store.Save(bundle); err != nil {
		m.log.Warn("failed to persist token bundle", zap.Error(err))
	}
}
