package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskboard/internal/commands"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
)

const oauthClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"]}}`

// authDir returns a config dir holding the given files.
func authDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func runAuth(t *testing.T, cmd commands.Command, ctx context.Context, dir string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	cfg, err := config.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Quiet = quiet

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(ctx, cfg, nil, nil, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestLoginCommand_NoOAuthClient(t *testing.T) {
	stdout, stderr, code := runAuth(t, &commands.LoginCmd{}, context.Background(), t.TempDir(), false)

	expectCode(t, code, exitcode.AuthError, stderr)
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "oauth_client.json not found") || !strings.Contains(stderr, "taskboard login") {
		t.Errorf("expected setup instructions, got %q", stderr)
	}
}

// Tokens that cannot be refreshed start a new login instead of reporting
// "already logged in". The cancelled context stops the wait for the browser.
func TestLoginCommand_UnusableToken(t *testing.T) {
	cases := map[string]string{
		"corrupt":          `{"access_token":`,
		"no refresh token": `{"access_token":"test","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			dir := authDir(t, map[string]string{
				config.OAuthClientFile: oauthClientJSON,
				config.TokenFile:       token,
			})
			stdout, stderr, code := runAuth(t, &commands.LoginCmd{}, cancelled(), dir, false)

			expectCode(t, code, exitcode.AuthError, stderr)
			if stdout == "already logged in\n" {
				t.Error("should not say 'already logged in'")
			}
			if !strings.Contains(stderr, "Open this URL in your browser:") {
				t.Errorf("expected auth URL, got %q", stderr)
			}
		})
	}
}

func TestLoginCommand_NotesOtherBackend(t *testing.T) {
	dir := authDir(t, map[string]string{config.OAuthClientFile: oauthClientJSON})
	_, stderr, _ := runAuth(t, &commands.LoginCmd{}, cancelled(), dir, false)

	if !strings.Contains(stderr, `note: backend is "memory"`) {
		t.Errorf("expected backend note, got %q", stderr)
	}
}

func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	dir := authDir(t, map[string]string{
		config.OAuthClientFile: oauthClientJSON,
		config.TokenFile:       `{"access_token":"test","refresh_token":"test"}`,
	})

	stdout, stderr, code := runAuth(t, &commands.LogoutCmd{}, context.Background(), dir, false)
	expectCode(t, code, exitcode.Success, stderr)
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}

	if _, err := os.Stat(filepath.Join(dir, config.TokenFile)); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	if _, err := os.Stat(filepath.Join(dir, config.OAuthClientFile)); err != nil {
		t.Error("oauth_client.json should NOT have been deleted")
	}
}

func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	for _, quiet := range []bool{false, true} {
		stdout, stderr, code := runAuth(t, &commands.LogoutCmd{}, context.Background(), t.TempDir(), quiet)

		expectCode(t, code, exitcode.Success, stderr)
		if stderr != "" {
			t.Errorf("expected no stderr, got %q", stderr)
		}
		want := "not logged in\n"
		if quiet {
			want = ""
		}
		if stdout != want {
			t.Errorf("quiet=%v: expected %q, got %q", quiet, want, stdout)
		}
	}
}
