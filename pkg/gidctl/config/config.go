package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"

	StorageKeyring = "keyring"
	StorageFile    = "file"
)

type Config struct {
	Version  string   `yaml:"version"`
	Provider Provider `yaml:"provider,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

type Provider struct {
	Authority        string            `yaml:"authority,omitempty"`
	ClientID         string            `yaml:"client-id,omitempty"`
	ClientSecret     string            `yaml:"client-secret,omitempty"`
	ClientSecretEnv  string            `yaml:"client-secret-env,omitempty"`
	ClientSecretFile string            `yaml:"client-secret-file,omitempty"`
	Scopes           []string          `yaml:"scopes,omitempty"`
	GrantType        string            `yaml:"grant-type,omitempty"`
	RedirectPort     int               `yaml:"redirect-port,omitempty"`
	ExtraAuthParams  map[string]string `yaml:"extra-auth-params,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
}

// ResolvedProvider is the provider configuration after defaults, the config
// file, and the gcloud ADC credentials have been merged.
type ResolvedProvider struct {
	Authority       string
	ClientID        string
	ClientSecret    string
	Scopes          []string
	GrantType       string
	RedirectPort    int
	ExtraAuthParams map[string]string
}

const (
	defaultAuthority    = "https://accounts.google.com"
	defaultRedirectPort = 8085
)

func defaultScopes() []string { return []string{"openid", "email"} }

// defaultAuthParams are the Google-specific authorization URL extras: keep
// previously granted scopes and always return a refresh token.
func defaultAuthParams() map[string]string {
	return map[string]string{
		"include_granted_scopes": "true",
		"prompt":                 "consent",
	}
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: "json",
			TokenStorage: StorageKeyring,
		},
	}
}

// Load reads the config file. A missing file is not an error: the defaults
// plus ADC credentials are enough to run.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// ResolveProvider merges defaults, the config file, and (when the config
// carries no client id) the gcloud ADC credentials file.
func (c *Config) ResolveProvider() (*ResolvedProvider, error) {
	resolved := &ResolvedProvider{
		Authority:       defaultAuthority,
		Scopes:          defaultScopes(),
		RedirectPort:    defaultRedirectPort,
		ExtraAuthParams: defaultAuthParams(),
	}
	p := c.Provider
	if p.Authority != "" {
		resolved.Authority = p.Authority
	}
	if len(p.Scopes) > 0 {
		resolved.Scopes = p.Scopes
	}
	if p.RedirectPort != 0 {
		resolved.RedirectPort = p.RedirectPort
	}
	if p.ExtraAuthParams != nil {
		resolved.ExtraAuthParams = p.ExtraAuthParams
	}
	resolved.GrantType = p.GrantType
	resolved.ClientID = p.ClientID

	secret, err := ResolveClientSecret(p.ClientSecret, p.ClientSecretEnv, p.ClientSecretFile)
	if err != nil {
		return nil, err
	}
	resolved.ClientSecret = secret

	if resolved.ClientID == "" {
		creds, err := LoadADC(ADCPath())
		if err != nil {
			return nil, fmt.Errorf("no client-id configured and no gcloud credentials found: %w", err)
		}
		resolved.ClientID = creds.ClientID
		if resolved.ClientSecret == "" {
			resolved.ClientSecret = creds.ClientSecret
		}
	}
	return resolved, nil
}

// ResolveClientSecret resolves the client secret from, in order: the direct
// value, a named environment variable, a file path.
func ResolveClientSecret(secret, secretEnv, secretFile string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if secretEnv != "" {
		value := strings.TrimSpace(os.Getenv(secretEnv))
		if value == "" {
			return "", fmt.Errorf("client secret env var not set: %s", secretEnv)
		}
		return value, nil
	}
	if secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return "", nil
}
