package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider backing the session core.
type AuthMode string

const (
	// AuthModeFirebase uses the Google Identity Toolkit REST API.
	AuthModeFirebase AuthMode = "firebase"
	// AuthModeDev uses the in-process dev provider (development only).
	AuthModeDev AuthMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "firebase", "dev":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: firebase, dev)", v)
	}
}

// FirebaseConfig contains Identity Toolkit configuration (used when
// Mode=firebase).
type FirebaseConfig struct {
	// APIKey is the project's web API key. It doubles as the validation key
	// for password-reset deep links.
	APIKey    string `env:"API_KEY"`
	ProjectID string `env:"PROJECT_ID"`

	// Endpoint and TokenEndpoint override the API base URLs, typically to
	// point at the Auth emulator.
	Endpoint      string `env:"ENDPOINT"`
	TokenEndpoint string `env:"TOKEN_ENDPOINT"`

	// Emulator disables ID token signature verification. The Auth emulator
	// issues unsigned tokens; never enable against production.
	Emulator bool `env:"EMULATOR" envDefault:"false"`
}

// ClaimPathsConfig configures the JMESPath expressions that locate role
// attributes inside token claims.
type ClaimPathsConfig struct {
	Admin  string `env:"ADMIN"  envDefault:"admin"`
	Editor string `env:"EDITOR" envDefault:"editor"`
}

// AuthConfig groups identity provider and session configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"firebase"`

	// Firebase configuration (used when Mode=firebase).
	Firebase FirebaseConfig `envPrefix:"FIREBASE_"`

	// ClaimPaths locate role attributes inside provider claims.
	ClaimPaths ClaimPathsConfig `envPrefix:"AUTH_CLAIM_"`

	// BypassEmail is the designated test account that counts as logged in
	// without email verification. Empty disables the exception.
	BypassEmail string `env:"AUTH_BYPASS_EMAIL" envDefault:"test@user.de"`

	// ResolutionTimeout bounds how long role-gated route checks wait for
	// claims resolution before denying.
	ResolutionTimeout time.Duration `env:"AUTH_RESOLUTION_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.ResolutionTimeout <= 0 {
		a.ResolutionTimeout = 10 * time.Second
	}
	if a.ClaimPaths.Admin == "" {
		a.ClaimPaths.Admin = "admin"
	}
	if a.ClaimPaths.Editor == "" {
		a.ClaimPaths.Editor = "editor"
	}
}
