package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("GIDCTL_CONFIG", "/tmp/custom/config.yaml")
	assert.Equal(t, "/tmp/custom/config.yaml", DefaultConfigPath())
}

func TestDefaultConfigPath_Default(t *testing.T) {
	t.Setenv("GIDCTL_CONFIG", "")
	path := DefaultConfigPath()
	assert.True(t, strings.HasSuffix(path, filepath.Join("gidctl", "config.yaml")) ||
		strings.HasSuffix(path, filepath.Join(".gidctl", "config.yaml")), path)
}

func TestDefaultTokenPath_EnvOverride(t *testing.T) {
	t.Setenv(EnvTokenPath, "/tmp/custom/tokens.json")
	assert.Equal(t, "/tmp/custom/tokens.json", DefaultTokenPath())
}

func TestADCPath_EnvOverride(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/adc.json")
	assert.Equal(t, "/tmp/adc.json", ADCPath())
}

func TestADCPath_Default(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	assert.True(t, strings.HasSuffix(ADCPath(),
		filepath.Join(".config", "gcloud", "application_default_credentials.json")))
}
