package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicebook/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", UploadDir: "./uploads"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", UploadDir: "./uploads"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigNeedsImageStore(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err == nil {
		t.Fatalf("expected missing image store to be rejected")
	}
}

func TestRootCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	assert.Equal(t, "invoicebook", cmd.Use)

	for _, name := range []string{"serve", "migrate", "seed-user"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestSeedUserFlags(t *testing.T) {
	cmd := newRootCommand()
	seed, _, err := cmd.Find([]string{"seed-user"})
	require.NoError(t, err)

	role := seed.Flags().Lookup("role")
	require.NotNil(t, role)
	assert.Equal(t, "user", role.DefValue)
	assert.NotNil(t, seed.Flags().Lookup("username"))
	assert.NotNil(t, seed.Flags().Lookup("password"))
}

func TestDatabaseCommandsRequireURL(t *testing.T) {
	ctx := context.Background()
	assert.True(t, errors.Is(runMigrate(ctx, config.Config{}), errDatabaseURLRequired))
	assert.True(t, errors.Is(runSeedUser(ctx, config.Config{}, seedUserOptions{Username: "admin", Password: "secret1"}), errDatabaseURLRequired))
}

func TestServeRejectsWeakSecretBeforeStarting(t *testing.T) {
	err := runServe(context.Background(), config.Config{AuthSecret: "short", UploadDir: t.TempDir()}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SECRET")
}
