package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/telekom/gcloud-identity/pkg/gidctl/config"
)

func TestRuntimeStateOutputFormat(t *testing.T) {
	rt := &runtimeState{outputFormat: "yaml"}
	require.Equal(t, "yaml", rt.OutputFormat())

	rt = &runtimeState{cfg: &config.Config{Settings: config.Settings{OutputFormat: "yaml"}}}
	require.Equal(t, "yaml", rt.OutputFormat())

	rt = &runtimeState{}
	require.Equal(t, "json", rt.OutputFormat())
}

func TestRuntimeStateTokenStorage(t *testing.T) {
	rt := &runtimeState{storageOverride: config.StorageFile}
	require.Equal(t, config.StorageFile, rt.TokenStorage())

	rt = &runtimeState{cfg: &config.Config{Settings: config.Settings{TokenStorage: config.StorageFile}}}
	require.Equal(t, config.StorageFile, rt.TokenStorage())

	rt = &runtimeState{}
	require.Equal(t, config.StorageKeyring, rt.TokenStorage())
}

func TestResolveStore(t *testing.T) {
	t.Run("token path env forces file backend", func(t *testing.T) {
		t.Setenv(config.EnvTokenPath, filepath.Join(t.TempDir(), "tokens.json"))
		rt := &runtimeState{storageOverride: config.StorageKeyring}
		store, err := rt.resolveStore()
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("file backend", func(t *testing.T) {
		t.Setenv(config.EnvTokenPath, "")
		rt := &runtimeState{storageOverride: config.StorageFile}
		store, err := rt.resolveStore()
		require.NoError(t, err)
		require.NotNil(t, store)
	})

	t.Run("unsupported backend", func(t *testing.T) {
		t.Setenv(config.EnvTokenPath, "")
		rt := &runtimeState{storageOverride: "vault"}
		_, err := rt.resolveStore()
		require.Error(t, err)
	})
}

func TestBuildManagerRequiresConfig(t *testing.T) {
	rt := &runtimeState{}
	_, err := rt.buildManager()
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	require.NotNil(t, newLogger(false))
	require.NotNil(t, newLogger(true))
}
