package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "gidctl"
	defaultConfigFile    = "config.yaml"
	defaultTokenFile     = "tokens.json"
	identityHintFile     = "identity"
)

// EnvTokenPath forces the file storage backend and names its path,
// regardless of native keyring availability.
const EnvTokenPath = "GIDCTL_TOKEN_PATH"

func DefaultConfigPath() string {
	if env := os.Getenv("GIDCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gidctl", defaultConfigFile)
}

// DefaultTokenPath is where the file backend keeps its entries when the
// GIDCTL_TOKEN_PATH override is not set.
func DefaultTokenPath() string {
	if env := os.Getenv(EnvTokenPath); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultTokenFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gidctl", defaultTokenFile)
}

// IdentityHintPath names the file remembering the last authenticated email,
// used to locate the keyring entry before the bundle is decoded.
func IdentityHintPath() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, identityHintFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gidctl", identityHintFile)
}

// ADCPath locates the gcloud application default credentials file that
// carries the OAuth client id and secret.
func ADCPath() string {
	if env := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gcloud", "application_default_credentials.json")
}
