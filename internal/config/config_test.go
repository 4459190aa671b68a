package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("DISTRIBUTOR_CACHE_TTL_SECONDS", "-4")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "soon")

	cfg := Load()
	if cfg.DistributorCacheTTLSeconds != 60 {
		t.Fatalf("expected cache ttl fallback 60, got %d", cfg.DistributorCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token ttl fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadTrimsPublicBaseURL(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://files.example.test/")
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.PublicBaseURL != "https://files.example.test" {
		t.Fatalf("unexpected base url %q", cfg.PublicBaseURL)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}
