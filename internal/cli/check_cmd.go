package cli

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spec-kit/token-service/internal/config"
)

// secretBytes is the entropy of generated secrets before encoding.
const secretBytes = 32

var errCheckFailed = errors.New("security check failed")

// SecurityIssues inspects the secret and the .gitignore at gitignorePath.
func SecurityIssues(secret, gitignorePath string) []string {
	var issues []string

	content, err := os.ReadFile(gitignorePath)
	switch {
	case err != nil:
		issues = append(issues, ".gitignore not found")
	case !strings.Contains(string(content), ".env"):
		issues = append(issues, ".env is not listed in .gitignore")
	}

	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		issues = append(issues, config.SecretEnvKey+" is not set")
	case len(secret) < config.MinSecretLength:
		issues = append(issues, fmt.Sprintf("%s is too short (at least %d characters recommended)",
			config.SecretEnvKey, config.MinSecretLength))
	}
	return issues
}

func newCheckCmd() *cobra.Command {
	var gitignore string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the local secret configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			out := cmd.OutOrStdout()
			issues := SecurityIssues(os.Getenv(config.SecretEnvKey), gitignore)
			if len(issues) == 0 {
				_, _ = fmt.Fprintln(out, "all security checks passed")
				return nil
			}

			_, _ = fmt.Fprintln(out, "security issues found:")
			for _, issue := range issues {
				_, _ = fmt.Fprintf(out, "  - %s\n", issue)
			}
			return errCheckFailed
		},
	}

	cmd.Flags().StringVar(&gitignore, "gitignore", ".gitignore", "Path to the .gitignore to inspect")
	return cmd
}

// GenerateSecret returns a random base64url secret suitable for AUTH_JWT_SECRET.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func newSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Print a random signing secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := GenerateSecret()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}
