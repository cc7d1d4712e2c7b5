/*
SPDX-FileCopyrightText: 2026 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService namespaces our entries in the OS secret store.
	keyringService = "gcloud-identity"

	// DefaultIdentity keys entries saved before an email could be derived
	// from the ID token.
	DefaultIdentity = "default"
)

// Store persists serialized token bundles keyed by the authenticated
// identity. The backend is chosen once at startup; exactly two
// implementations exist (OS keyring and local file).
//
// Load's identity hint is optional: on first run no identity is known yet,
// and the store falls back to the last-used identity or the default key.
// A malformed persisted payload is reported as ErrNotFound so the caller
// re-authorizes instead of crashing on a parse error.
type Store interface {
	Load(identityHint string) (TokenBundle, error)
	Save(bundle TokenBundle) error
	Delete(identity string) error
}

// NewKeyringStore returns a store backed by the OS secret store. hintPath
// names a small file remembering the last authenticated identity, needed
// because the keyring cannot enumerate entries.
func NewKeyringStore(hintPath string) Store {
	return &keyringStore{hintPath: hintPath}
}

// NewFileStore returns a store backed by a single JSON file holding one
// entry per identity.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

type keyringStore struct {
	hintPath string
}

func (s *keyringStore) Load(identityHint string) (TokenBundle, error) {
	user := identityHint
	if user == "" {
		user = s.lastIdentity()
	}
	secret, err := keyring.Get(keyringService, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return TokenBundle{}, ErrNotFound
		}
		return TokenBundle{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	bundle, err := decodeBundle([]byte(secret))
	if err != nil {
		return TokenBundle{}, ErrNotFound
	}
	return bundle, nil
}

func (s *keyringStore) Save(bundle TokenBundle) error {
	content, err := bundle.encode()
	if err != nil {
		return err
	}
	user := bundle.ScopeIdentity
	if user == "" {
		user = DefaultIdentity
	}
	if err := keyring.Set(keyringService, user, string(content)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.rememberIdentity(user)
	return nil
}

func (s *keyringStore) Delete(identity string) error {
	if identity == "" {
		identity = s.lastIdentity()
	}
	if err := keyring.Delete(keyringService, identity); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *keyringStore) lastIdentity() string {
	if s.hintPath == "" {
		return DefaultIdentity
	}
	content, err := os.ReadFile(s.hintPath)
	if err != nil {
		return DefaultIdentity
	}
	hint := strings.TrimSpace(string(content))
	if hint == "" {
		return DefaultIdentity
	}
	return hint
}

func (s *keyringStore) rememberIdentity(identity string) {
	if s.hintPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.hintPath), 0o700); err != nil {
		return
	}
	// Best effort: a stale hint only costs one extra interactive login.
	_ = os.WriteFile(s.hintPath, []byte(identity+"\n"), 0o600)
}

type fileStore struct {
	path string
}

type fileEntries struct {
	Entries map[string]TokenBundle `json:"entries"`
}

func (s *fileStore) Load(identityHint string) (TokenBundle, error) {
	entries, err := s.read()
	if err != nil {
		return TokenBundle{}, err
	}
	if identityHint != "" {
		bundle, ok := entries.Entries[identityHint]
		if !ok {
			return TokenBundle{}, ErrNotFound
		}
		return bundle, nil
	}
	keys := make([]string, 0, len(entries.Entries))
	for key := range entries.Entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		bundle := entries.Entries[key]
		if bundle.AccessToken != "" {
			return bundle, nil
		}
	}
	return TokenBundle{}, ErrNotFound
}

func (s *fileStore) Save(bundle TokenBundle) error {
	if bundle.AccessToken == "" {
		return errors.New("refusing to persist bundle with empty access token")
	}
	entries, err := s.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if entries.Entries == nil {
		entries.Entries = map[string]TokenBundle{}
	}
	key := bundle.ScopeIdentity
	if key == "" {
		key = DefaultIdentity
	}
	entries.Entries[key] = bundle
	return s.write(entries)
}

func (s *fileStore) Delete(identity string) error {
	entries, err := s.read()
	if err != nil {
		return err
	}
	if identity == "" {
		identity = DefaultIdentity
	}
	if _, ok := entries.Entries[identity]; !ok {
		return ErrNotFound
	}
	delete(entries.Entries, identity)
	return s.write(entries)
}

func (s *fileStore) read() (fileEntries, error) {
	out := fileEntries{Entries: map[string]TokenBundle{}}
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, ErrNotFound
		}
		return out, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := json.Unmarshal(content, &out); err != nil {
		// Corrupt cache triggers re-authorization, never a crash.
		return fileEntries{Entries: map[string]TokenBundle{}}, ErrNotFound
	}
	if out.Entries == nil {
		out.Entries = map[string]TokenBundle{}
	}
	return out, nil
}

func (s *fileStore) write(entries fileEntries) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}
	if err := os.WriteFile(s.path, content, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
