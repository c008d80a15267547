package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

// Notification texts emitted on guard denials.
const (
	msgNotAllowed  = "You are not allowed to see this page!"
	msgInvalidLink = "The provided link is not valid!"
)

const notificationDuration = 2 * time.Second

// defaultResolutionTimeout bounds the wait for role resolution before a
// role-gated route is denied. The wait is otherwise bounded only by the
// provider's responsiveness; deny-by-default is the safe outcome.
const defaultResolutionTimeout = 10 * time.Second

// authFormPaths are the routes exempt from the "must be logged in" rule and
// subject to the reverse rule (logged-in users are redirected away).
var authFormPaths = []string{
	"login-form",
	"reset-password",
	"create-account",
}

// changePasswordPrefix matches the change-password route with its embedded
// recovery code segment.
const changePasswordPrefix = "change-password/"

// resetPasswordPath is the auth form that may carry a password-reset deep link.
const resetPasswordPath = "reset-password"

// Route describes one navigation attempt as seen by the guard.
type Route struct {
	// Path is the target route path; empty means the default route.
	Path string
	// RequiredRole, when set, is the minimum role needed to enter the route.
	RequiredRole domainauth.Role
	// Query carries the target's query parameters (password-reset deep links).
	Query url.Values
}

// Decision is the outcome of one guard evaluation. A denial is normal control
// flow, never an error; RedirectPath is where the client was sent, if anywhere.
type Decision struct {
	Allowed      bool
	RedirectPath string
}

func allow() Decision { return Decision{Allowed: true} }

// GuardSession is the slice of the session service the guard consumes.
type GuardSession interface {
	LoggedIn(ctx context.Context) bool
	SetLastAuthenticatedPath(path string)
}

// AccessGuard decides, per navigation attempt, whether a route may be
// entered, redirecting and notifying as needed. Evaluations are independent;
// no state is carried between attempts beyond the last authenticated path.
type AccessGuard struct {
	session  GuardSession
	roles    *RoleResolver
	router   ports.Router
	notifier ports.Notifier

	// providerAPIKey validates password-reset deep links: the link's apiKey
	// query parameter must match the configured provider key.
	providerAPIKey string

	resolutionTimeout time.Duration
	defaultPath       string
}

// AccessGuardOptions groups dependencies for AccessGuard.
type AccessGuardOptions struct {
	Session        GuardSession
	Roles          *RoleResolver
	Router         ports.Router
	Notifier       ports.Notifier
	ProviderAPIKey string
	// ResolutionTimeout overrides the default role-resolution wait bound.
	ResolutionTimeout time.Duration
}

// NewAccessGuard constructs an AccessGuard.
func NewAccessGuard(opts AccessGuardOptions) *AccessGuard {
	timeout := opts.ResolutionTimeout
	if timeout <= 0 {
		timeout = defaultResolutionTimeout
	}
	return &AccessGuard{
		session:           opts.Session,
		roles:             opts.Roles,
		router:            opts.Router,
		notifier:          opts.Notifier,
		providerAPIKey:    opts.ProviderAPIKey,
		resolutionTimeout: timeout,
		defaultPath:       DefaultPath,
	}
}

// CanActivate evaluates one navigation attempt. Any redirect it issues is
// paired with a deny; an "allow after redirect" would race the navigation.
// Cancelling ctx (the user navigated away again) abandons the evaluation
// without side effects.
func (g *AccessGuard) CanActivate(ctx context.Context, route Route) Decision {
	if route.RequiredRole != "" {
		return g.activateWithRole(ctx, route)
	}

	path := normalizePath(route.Path)

	// Password-reset deep links bypass the login checks entirely: resetting
	// a password must work while logged out or logged in. The embedded API
	// key is validated against the configured provider key.
	if path == resetPasswordPath && route.Query.Get("oobCode") != "" {
		if route.Query.Get("apiKey") != g.providerAPIKey {
			return g.denyTo(g.defaultPath, msgInvalidLink)
		}
		return allow()
	}

	loggedIn := g.session.LoggedIn(ctx)
	authForm := isAuthFormPath(path)

	switch {
	case loggedIn && authForm:
		// A logged-in user has no business on the login screen.
		g.session.SetLastAuthenticatedPath(g.defaultPath)
		return g.denyTo(g.defaultPath, "")
	case !loggedIn && !authForm:
		return g.denyTo(LoginPath, "")
	case loggedIn:
		g.session.SetLastAuthenticatedPath(g.pathOrDefault(route.Path))
		return allow()
	default: // logged out, on an auth form
		return allow()
	}
}

// activateWithRole gates a route on a minimum role. It waits for the
// resolver's resolution-complete signal first: sampling the stream's current
// value would mistake "not yet resolved" for "no role".
func (g *AccessGuard) activateWithRole(ctx context.Context, route Route) Decision {
	waitCtx, cancel := context.WithTimeout(ctx, g.resolutionTimeout)
	defer cancel()

	if err := g.roles.AwaitResolved(waitCtx); err != nil {
		if ctx.Err() != nil {
			// The navigation itself was abandoned; suppress side effects.
			return Decision{}
		}
		// Resolution never completed; deny by default.
		return g.denyTo(g.defaultPath, msgNotAllowed)
	}
	if ctx.Err() != nil {
		return Decision{}
	}

	if !g.HasRole(route.RequiredRole) {
		return g.denyTo(g.defaultPath, msgNotAllowed)
	}

	g.session.SetLastAuthenticatedPath(g.pathOrDefault(route.Path))
	return allow()
}

// HasRole reports whether the currently resolved role meets required. It is a
// pure predicate: no side effects, false (never an error) when no role is
// resolved or either role is unknown.
func (g *AccessGuard) HasRole(required domainauth.Role) bool {
	role, ok := g.roles.Current()
	if !ok {
		return false
	}
	return role.Meets(required)
}

func (g *AccessGuard) denyTo(path, notice string) Decision {
	g.router.Navigate(path)
	if notice != "" && g.notifier != nil {
		g.notifier.Notify(notice, ports.SeverityError, notificationDuration)
	}
	return Decision{RedirectPath: path}
}

func (g *AccessGuard) pathOrDefault(path string) string {
	if normalizePath(path) == "" {
		return g.defaultPath
	}
	return path
}

func normalizePath(path string) string {
	return strings.TrimPrefix(path, "/")
}

func isAuthFormPath(path string) bool {
	for _, p := range authFormPaths {
		if path == p {
			return true
		}
	}
	return strings.HasPrefix(path, changePasswordPrefix)
}
