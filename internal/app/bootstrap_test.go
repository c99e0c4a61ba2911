package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptsync/internal/config"
	"scriptsync/internal/credentials"
	"scriptsync/internal/kvstore"
	"scriptsync/internal/session"
)

func testSettings(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Storage.Backend = kvstore.BackendMemory
	cfg.Credentials.Username = "alice"
	cfg.Credentials.Password = "pw"
	cfg.Session.RetryDelay = time.Millisecond
	return &cfg
}

func newTestApp(t *testing.T, settings *config.Config) *Application {
	t.Helper()
	application, err := NewApplication(context.Background(), &Config{
		Settings:  settings,
		LogOutput: io.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = application.Shutdown(context.Background())
	})
	return application
}

func TestNewApplication_BuildsComponents(t *testing.T) {
	application := newTestApp(t, testSettings(t))

	assert.NotNil(t, application.Store)
	assert.NotNil(t, application.Sessions)
	assert.NotNil(t, application.Orgs)
	assert.Nil(t, application.Registry, "metrics are disabled by default")
	assert.IsType(t, &credentials.Static{}, application.Credentials)
	assert.Equal(t, session.DefaultTTL, application.Sessions.TTL())
}

func TestNewApplication_BearerToken(t *testing.T) {
	settings := testSettings(t)
	settings.Credentials = config.CredentialsConfig{BearerToken: "secret"}

	application := newTestApp(t, settings)

	header, err := application.Credentials.AuthHeaderValue(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", header)
}

func TestNewApplication_CredentialFlagSelectsSet(t *testing.T) {
	settings := testSettings(t)
	settings.Credentials.Flag = "ci"
	settings.Credentials.Sets = map[string]config.CredentialSet{
		"ci": {Username: "robot", Password: "secret"},
	}

	application := newTestApp(t, settings)
	ctx := context.Background()

	body, err := application.Credentials.AuthLoginBodyValue(ctx, "ci")
	require.NoError(t, err)
	assert.Equal(t, "password=secret&username=robot", body)

	body, err = application.Credentials.AuthLoginBodyValue(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "password=pw&username=alice", body)
}

func TestNewApplication_Metrics(t *testing.T) {
	settings := testSettings(t)
	settings.Metrics.Enabled = true

	application := newTestApp(t, settings)
	require.NotNil(t, application.Registry)

	_, err := application.Registry.Gather()
	assert.NoError(t, err)
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	settings := testSettings(t)
	settings.Storage.Backend = "tape"

	_, err := NewApplication(context.Background(), &Config{Settings: settings, LogOutput: io.Discard})

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "validation", cfgErr.ErrorType)
}

func TestNewApplication_LoadsFromConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCRIPTSYNC_STORAGE_BACKEND", "memory")
	t.Setenv("SCRIPTSYNC_SESSION_TTL", "2m")

	application, err := NewApplication(context.Background(), &Config{ConfigPath: dir, LogOutput: io.Discard})
	require.NoError(t, err)
	defer application.Shutdown(context.Background())

	assert.Equal(t, 2*time.Minute, application.Settings().Session.TTL)
	assert.Equal(t, 2*time.Minute, application.Sessions.TTL())
}

func TestApplication_FileBackendPersistsAcrossRestarts(t *testing.T) {
	settings := testSettings(t)
	settings.Storage.Backend = kvstore.BackendFile
	settings.Storage.Dir = t.TempDir()
	ctx := context.Background()

	first, err := NewApplication(ctx, &Config{Settings: settings, LogOutput: io.Discard})
	require.NoError(t, err)
	require.NoError(t, first.Orgs.AddHost(ctx, "acme", "a.example.com"))
	require.NoError(t, first.Shutdown(ctx))

	second := newTestApp(t, settings)
	u, err := second.Orgs.FindU(ctx, "a.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "acme", u)
}

func TestApplication_StartShutdownIdempotent(t *testing.T) {
	application := newTestApp(t, testSettings(t))
	ctx := context.Background()

	application.Start(ctx)
	application.Start(ctx)

	require.NoError(t, application.Shutdown(ctx))
	require.NoError(t, application.Shutdown(ctx))

	// Start after shutdown does nothing.
	application.Start(ctx)
}

func TestApplication_CSRFFetchEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(session.LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: session.CookieJSessionID, Value: "sess-1"})
	})
	mux.HandleFunc(session.CSRFTokenPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tok-1"))
	})
	mux.HandleFunc("/api/scripts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(session.CSRFHeader) != "tok-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	application := newTestApp(t, testSettings(t))

	resp, err := application.Sessions.CSRFFetch(context.Background(), srv.URL+"/api/scripts",
		session.RequestOptions{Method: http.MethodPost}, application.Settings().Session.CSRFRetries)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Len(t, application.Sessions.Sessions(), 1)
}
