package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ADCCredentials is the subset of the gcloud application default
// credentials file this tool needs.
type ADCCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func LoadADC(path string) (*ADCCredentials, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds ADCCredentials
	if err := json.Unmarshal(content, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if creds.ClientID == "" {
		return nil, errors.New("credentials file has no client_id")
	}
	return &creds, nil
}
