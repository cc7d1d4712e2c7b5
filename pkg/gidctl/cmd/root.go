package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/gcloud-identity/pkg/gidctl/auth"
	"github.com/telekom/gcloud-identity/pkg/gidctl/config"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath      string
	cfg             *config.Config
	outputFormat    string
	storageOverride string
	noBrowser       bool
	verbose         bool
	writer          io.Writer
	logger          *zap.Logger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "gidctl",
		Short: "Google identity token CLI",
		Long:  "gidctl obtains, caches, and silently refreshes Google OAuth2 access and ID tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("GIDCTL_OUTPUT")
			}
			if rt.storageOverride == "" {
				rt.storageOverride = os.Getenv("GIDCTL_TOKEN_STORAGE")
			}
			if !rt.noBrowser {
				rt.noBrowser = strings.EqualFold(os.Getenv("GIDCTL_NO_BROWSER"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("GIDCTL_VERBOSE"), "true")
			}
			rt.logger = newLogger(rt.verbose)

			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: json, yaml")
	root.PersistentFlags().StringVar(&rt.storageOverride, "token-storage", "", "Token storage backend: keyring or file")
	root.PersistentFlags().BoolVar(&rt.noBrowser, "no-browser", false, "Never launch a browser, print the URL instead")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewTokenCommand(),
		NewAuthCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat != "" {
		return rt.outputFormat
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return rt.cfg.Settings.OutputFormat
	}
	return "json"
}

func (rt *runtimeState) TokenStorage() string {
	if rt.storageOverride != "" {
		return rt.storageOverride
	}
	if rt.cfg != nil && rt.cfg.Settings.TokenStorage != "" {
		return rt.cfg.Settings.TokenStorage
	}
	return config.StorageKeyring
}

// resolveStore picks the credential store backend once for this process.
// The GIDCTL_TOKEN_PATH override forces file mode unconditionally.
func (rt *runtimeState) resolveStore() (auth.Store, error) {
	if path := os.Getenv(config.EnvTokenPath); path != "" {
		return auth.NewFileStore(path), nil
	}
	switch rt.TokenStorage() {
	case config.StorageFile:
		return auth.NewFileStore(config.DefaultTokenPath()), nil
	case config.StorageKeyring:
		return auth.NewKeyringStore(config.IdentityHintPath()), nil
	default:
		return nil, errors.New("unsupported token storage backend: " + rt.TokenStorage())
	}
}

func (rt *runtimeState) buildManager() (*auth.Manager, error) {
	if rt.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	resolved, err := rt.cfg.ResolveProvider()
	if err != nil {
		return nil, err
	}
	store, err := rt.resolveStore()
	if err != nil {
		return nil, err
	}
	flowCfg := auth.FlowConfig{
		Authority:       resolved.Authority,
		ClientID:        resolved.ClientID,
		ClientSecret:    resolved.ClientSecret,
		Scopes:          resolved.Scopes,
		GrantType:       resolved.GrantType,
		RedirectPort:    resolved.RedirectPort,
		ExtraAuthParams: resolved.ExtraAuthParams,
		NoBrowser:       rt.noBrowser,
		Out:             rt.Writer(),
	}
	return auth.NewManager(store, flowCfg, rt.logger), nil
}
