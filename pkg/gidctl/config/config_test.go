package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, VersionV1, cfg.Version)
	assert.Equal(t, "json", cfg.Settings.OutputFormat)
	assert.Equal(t, StorageKeyring, cfg.Settings.TokenStorage)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Provider: Provider{
			Authority:       "https://issuer.example.com",
			ClientID:        "client-1",
			Scopes:          []string{"openid", "email", "profile"},
			RedirectPort:    9000,
			ExtraAuthParams: map[string]string{"prompt": "select_account"},
		},
		Settings: Settings{OutputFormat: "yaml", TokenStorage: StorageFile},
	}
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VersionV1, loaded.Version, "version is stamped on save")
	assert.Equal(t, cfg.Provider, loaded.Provider)
	assert.Equal(t, cfg.Settings, loaded.Settings)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\tnot yaml"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestResolveProvider_ExplicitClientID(t *testing.T) {
	cfg := &Config{Provider: Provider{ClientID: "client-1"}}
	resolved, err := cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, "client-1", resolved.ClientID)
	assert.Equal(t, defaultAuthority, resolved.Authority)
	assert.Equal(t, defaultRedirectPort, resolved.RedirectPort)
	assert.Equal(t, []string{"openid", "email"}, resolved.Scopes)
	assert.Equal(t, "true", resolved.ExtraAuthParams["include_granted_scopes"])
	assert.Equal(t, "consent", resolved.ExtraAuthParams["prompt"])
}

func TestResolveProvider_ConfigOverridesDefaults(t *testing.T) {
	cfg := &Config{Provider: Provider{
		ClientID:        "client-1",
		Authority:       "https://issuer.example.com",
		Scopes:          []string{"openid"},
		RedirectPort:    9000,
		ExtraAuthParams: map[string]string{"hd": "example.com"},
	}}
	resolved, err := cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, "https://issuer.example.com", resolved.Authority)
	assert.Equal(t, []string{"openid"}, resolved.Scopes)
	assert.Equal(t, 9000, resolved.RedirectPort)
	assert.Equal(t, map[string]string{"hd": "example.com"}, resolved.ExtraAuthParams)
}

func TestResolveProvider_FallsBackToADC(t *testing.T) {
	adcPath := filepath.Join(t.TempDir(), "adc.json")
	require.NoError(t, os.WriteFile(adcPath,
		[]byte(`{"client_id":"adc-client","client_secret":"adc-secret","refresh_token":"rt"}`), 0o600))
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", adcPath)

	cfg := &Config{}
	resolved, err := cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, "adc-client", resolved.ClientID)
	assert.Equal(t, "adc-secret", resolved.ClientSecret)
}

func TestResolveProvider_NoClientIDAndNoADC(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", filepath.Join(t.TempDir(), "missing.json"))
	cfg := &Config{}
	_, err := cfg.ResolveProvider()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no client-id configured")
}

func TestResolveClientSecret(t *testing.T) {
	t.Run("direct value wins", func(t *testing.T) {
		t.Setenv("GIDCTL_TEST_SECRET", "from-env")
		secret, err := ResolveClientSecret("direct", "GIDCTL_TEST_SECRET", "")
		require.NoError(t, err)
		assert.Equal(t, "direct", secret)
	})

	t.Run("env var", func(t *testing.T) {
		t.Setenv("GIDCTL_TEST_SECRET", "  from-env\n")
		secret, err := ResolveClientSecret("", "GIDCTL_TEST_SECRET", "")
		require.NoError(t, err)
		assert.Equal(t, "from-env", secret)
	})

	t.Run("env var not set", func(t *testing.T) {
		_, err := ResolveClientSecret("", "GIDCTL_UNSET_SECRET", "")
		require.Error(t, err)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
		secret, err := ResolveClientSecret("", "", path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", secret)
	})

	t.Run("nothing configured", func(t *testing.T) {
		secret, err := ResolveClientSecret("", "", "")
		require.NoError(t, err)
		assert.Empty(t, secret)
	})
}

func TestLoadADC(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adc.json")
		require.NoError(t, os.WriteFile(path,
			[]byte(`{"client_id":"c","client_secret":"s"}`), 0o600))
		creds, err := LoadADC(path)
		require.NoError(t, err)
		assert.Equal(t, "c", creds.ClientID)
		assert.Equal(t, "s", creds.ClientSecret)
	})

	t.Run("missing client_id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adc.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"client_secret":"s"}`), 0o600))
		_, err := LoadADC(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadADC(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})
}
