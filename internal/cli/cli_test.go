package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/spec-kit/token-service/internal/api/http"
	"github.com/spec-kit/token-service/internal/auth"
)

func writeGitignore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSecurityIssues(t *testing.T) {
	strong := "0123456789abcdef0123456789abcdef"

	tests := []struct {
		name      string
		secret    string
		gitignore string
		want      int
	}{
		{name: "all good", secret: strong, gitignore: "bin/\n.env\n", want: 0},
		{name: "env not ignored", secret: strong, gitignore: "bin/\n", want: 1},
		{name: "short secret", secret: "short", gitignore: ".env\n", want: 1},
		{name: "missing secret", secret: "  ", gitignore: ".env\n", want: 1},
		{name: "no gitignore", secret: "", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent")
			if tt.gitignore != "" {
				path = writeGitignore(t, tt.gitignore)
			}
			assert.Len(t, SecurityIssues(tt.secret, path), tt.want)
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.Empty(t, SecurityIssues(a, writeGitignore(t, ".env\n")))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSecretCommand(t *testing.T) {
	out, err := execute(t, "secret")
	require.NoError(t, err)
	assert.Len(t, bytes.TrimSpace([]byte(out)), 43)
}

func TestCheckCommand(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "tiny")

	out, err := execute(t, "check", "--gitignore", writeGitignore(t, ".env\n"))
	require.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, out, "too short")
}

func TestDemoCommand(t *testing.T) {
	authn, err := auth.NewAuthenticator("cli-test-secret-0123456789abcdef")
	require.NoError(t, err)
	app := apihttp.NewApp(apihttp.Dependencies{Name: "token-service", Authenticator: authn})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	baseURL := "http://" + ln.Addr().String()

	out, err := execute(t, "demo", "--base-url", baseURL)
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "test@example.com"`)
	assert.Contains(t, out, `"message": "authenticated"`)

	out, err = execute(t, "login", "--base-url", baseURL, "--email", "a@b.com", "--password", "pw")
	require.NoError(t, err)
	token := string(bytes.TrimSpace([]byte(out)))

	out, err = execute(t, "fetch", "--base-url", baseURL, "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "a@b.com"`)

	_, err = execute(t, "fetch", "--base-url", baseURL, "--token", token+"x")
	require.Error(t, err)
}
