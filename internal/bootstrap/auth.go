package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/corrigohq/corrigo/config"
	"github.com/corrigohq/corrigo/internal/adapters/authclaims"
	"github.com/corrigohq/corrigo/internal/adapters/devauth"
	"github.com/corrigohq/corrigo/internal/adapters/identitytoolkit"
	"github.com/corrigohq/corrigo/internal/adapters/notify"
	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
	"github.com/corrigohq/corrigo/internal/service"
)

// SessionCore bundles the fully wired authentication and authorization
// components. Close releases the session service's provider subscription.
type SessionCore struct {
	Provider   ports.IdentityProvider
	Store      *service.SessionStore
	Roles      *service.RoleResolver
	Session    *service.SessionService
	Guard      *service.AccessGuard
	Navigation *service.NavigationPresenter
}

// Close releases resources held by the session core.
func (c *SessionCore) Close() {
	c.Session.Close()
}

// BuildSessionCore wires the identity provider, session store, role resolver,
// session service, access guard, and navigation presenter from configuration.
func BuildSessionCore(cfg *config.AppConfig, cache ports.IdentityCache, logger *slog.Logger) (*SessionCore, error) {
	provider, err := buildProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	mapper := authclaims.Mapper{
		AdminPath:     cfg.Auth.ClaimPaths.Admin,
		EditorPath:    cfg.Auth.ClaimPaths.Editor,
		RequesterPath: "requester",
	}

	router := notify.NewLogRouter(logger)
	notifier := notify.NewLogNotifier(logger)

	store := service.NewSessionStore(cache, cfg.Auth.BypassEmail, logger)
	roles := service.NewRoleResolver(provider, mapper, logger)
	session := service.NewSessionService(service.SessionServiceOptions{
		Provider: provider,
		Store:    store,
		Roles:    roles,
		Router:   router,
		Logger:   logger,
	})
	guard := service.NewAccessGuard(service.AccessGuardOptions{
		Session:           session,
		Roles:             roles,
		Router:            router,
		Notifier:          notifier,
		ProviderAPIKey:    guardAPIKey(cfg),
		ResolutionTimeout: cfg.Auth.ResolutionTimeout,
	})
	navigation := service.NewNavigationPresenter(guard, domainauth.DefaultNavigation())

	return &SessionCore{
		Provider:   provider,
		Store:      store,
		Roles:      roles,
		Session:    session,
		Guard:      guard,
		Navigation: navigation,
	}, nil
}

func buildProvider(cfg *config.AppConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		provider, err := identitytoolkit.NewProvider(identitytoolkit.Config{
			APIKey:              cfg.Auth.Firebase.APIKey,
			ProjectID:           cfg.Auth.Firebase.ProjectID,
			Endpoint:            cfg.Auth.Firebase.Endpoint,
			SecureTokenEndpoint: cfg.Auth.Firebase.TokenEndpoint,
			InsecureSkipVerify:  cfg.Auth.Firebase.Emulator,
		})
		if err != nil {
			return nil, fmt.Errorf("building identity toolkit provider: %w", err)
		}
		return provider, nil
	case config.AuthModeDev:
		if !cfg.IsDev {
			return nil, fmt.Errorf("auth mode %q is only available in dev mode", cfg.Auth.Mode)
		}
		provider, err := devauth.NewProvider(devauth.Config{
			Accounts: devauth.DemoAccounts(),
		})
		if err != nil {
			return nil, fmt.Errorf("building dev auth provider: %w", err)
		}
		logger.Warn("using in-process dev identity provider")
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %q", cfg.Auth.Mode)
	}
}

// guardAPIKey returns the key used to validate password-reset deep links. In
// dev mode there is no provider key; deep-link validation is disabled.
func guardAPIKey(cfg *config.AppConfig) string {
	if cfg.Auth.Mode == config.AuthModeFirebase {
		return cfg.Auth.Firebase.APIKey
	}
	return ""
}
