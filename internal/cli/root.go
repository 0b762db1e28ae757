// Package cli implements the token service client commands.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/token-service/internal/client"
)

const defaultBaseURL = "http://localhost:8000"

type rootOptions struct {
	baseURL string
	timeout time.Duration
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.baseURL, o.timeout)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "token-client",
		Short:         "Client for the token service login flow",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	baseURL := os.Getenv("TOKEN_SERVICE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", baseURL, "Token service base URL (env TOKEN_SERVICE_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "Per-request timeout")

	cmd.AddCommand(
		newLoginCmd(opts),
		newFetchCmd(opts),
		newDemoCmd(opts),
		newCheckCmd(),
		newSecretCmd(),
	)
	return cmd
}
