package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GATE_COOKIE_MODE", "")
	t.Setenv("GATE_USER_PROTECTED", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, CookieModeShared, cfg.Gate.CookieMode)
	assert.Equal(t, "token", cfg.Gate.SharedCookie)
	assert.Equal(t, "redirect", cfg.Gate.RedirectQueryKey)
	assert.Contains(t, cfg.Gate.UserProtected, "/cart")
	assert.Contains(t, cfg.Gate.Excluded, "/api")
	assert.Equal(t, "/socket.io/", cfg.Realtime.Path)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GATE_COOKIE_MODE", "SPLIT")
	t.Setenv("GATE_USER_PROTECTED", " /wallet, ,/orders ")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("SESSION_IDLE_TTL_MINUTES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, CookieModeSplit, cfg.Gate.CookieMode)
	assert.Equal(t, []string{"/wallet", "/orders"}, cfg.Gate.UserProtected)
	assert.Equal(t, 10, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTTL())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Gate: GateConfig{
				CookieMode:          CookieModeShared,
				SharedCookie:        "token",
				UserLoginPath:       "/auth/login",
				AstrologerLoginPath: "/astrologer/auth/login",
				UserLandingPath:     "/",
				AstrologerLanding:   "/astrologer/dashboard",
				RedirectQueryKey:    "redirect",
			},
			Backend: BackendConfig{APIOrigin: "http://localhost:5000/api/v1"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty shared cookie", mutate: func(c *Config) { c.Gate.SharedCookie = "" }, wantErr: "GATE_COOKIE_NAME"},
		{name: "split without names", mutate: func(c *Config) { c.Gate.CookieMode = CookieModeSplit }, wantErr: "split cookie mode"},
		{name: "unknown mode", mutate: func(c *Config) { c.Gate.CookieMode = "both" }, wantErr: "unknown GATE_COOKIE_MODE"},
		{name: "relative login path", mutate: func(c *Config) { c.Gate.UserLoginPath = "auth/login" }, wantErr: "GATE_USER_LOGIN_PATH"},
		{name: "empty query key", mutate: func(c *Config) { c.Gate.RedirectQueryKey = "" }, wantErr: "GATE_REDIRECT_QUERY_KEY"},
		{name: "no backend", mutate: func(c *Config) { c.Backend.APIOrigin = "" }, wantErr: "BACKEND_API_ORIGIN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, RealtimeConfig{}.ConnectTimeout())
	assert.Equal(t, time.Hour, SessionConfig{}.IdleTTL())
	assert.Equal(t, time.Minute, SessionConfig{}.JanitorInterval())
	assert.Equal(t, "0.0.0.0:8080", AppConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
}
