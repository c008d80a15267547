package bootstrap

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corrigohq/corrigo/config"
	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	mocks "github.com/corrigohq/corrigo/internal/mocks/auth"
)

func devConfig() *config.AppConfig {
	cfg := &config.AppConfig{IsDev: true}
	cfg.Auth.Mode = config.AuthModeDev
	cfg.Auth.BypassEmail = "test@user.de"
	cfg.Sanitize()
	return cfg
}

func TestBuildSessionCore_DevMode(t *testing.T) {
	core, err := BuildSessionCore(devConfig(), mocks.NewMemoryIdentityCache(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(core.Close)

	require.NotNil(t, core.Provider)
	require.NotNil(t, core.Session)
	require.NotNil(t, core.Guard)
	require.NotNil(t, core.Navigation)

	ctx := context.Background()
	result := core.Session.LogIn(ctx, "admin@corrigo.local", "admin")
	require.True(t, result.OK, result.Message)

	assert.Eventually(t, func() bool {
		role, ok := core.Roles.Current()
		return ok && role == domainauth.RoleAdmin
	}, time.Second, 10*time.Millisecond)

	assert.True(t, core.Guard.HasRole(domainauth.RoleEditor))
	assert.NotEmpty(t, core.Session.GetToken(ctx))
}

func TestBuildSessionCore_DevModeRequiresDevFlag(t *testing.T) {
	cfg := devConfig()
	cfg.IsDev = false

	_, err := BuildSessionCore(cfg, mocks.NewMemoryIdentityCache(), slog.Default())
	require.Error(t, err)
}

func TestBuildSessionCore_FirebaseRequiresAPIKey(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Auth.Mode = config.AuthModeFirebase
	cfg.Sanitize()

	_, err := BuildSessionCore(cfg, mocks.NewMemoryIdentityCache(), slog.Default())
	require.Error(t, err)
}
