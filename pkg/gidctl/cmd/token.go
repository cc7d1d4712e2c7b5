package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/gcloud-identity/pkg/gidctl/output"
)

// tokenOutput is what downstream tooling consumes: the bearer credential,
// the identity assertion, and the absolute expiry. Refresh tokens stay in
// the credential store.
type tokenOutput struct {
	AccessToken string    `json:"access_token" yaml:"access_token"`
	IDToken     string    `json:"id_token" yaml:"id_token"`
	TokenExpiry time.Time `json:"token_expiry" yaml:"token_expiry"`
}

func NewTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access and ID token, authenticating if needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			bundle, err := manager.GetToken(cmd.Context())
			if err != nil {
				return err
			}
			return output.WriteObject(rt.Writer(), output.Format(rt.OutputFormat()), tokenOutput{
				AccessToken: bundle.AccessToken,
				IDToken:     bundle.IDToken,
				TokenExpiry: bundle.Expiry,
			})
		},
	}
}
