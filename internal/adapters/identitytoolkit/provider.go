package identitytoolkit

// Package identitytoolkit implements ports.IdentityProvider against the Google
// Identity Toolkit REST API (the backend behind Firebase Authentication).

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

const (
	defaultEndpoint            = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenEndpoint = "https://securetoken.googleapis.com/v1/token"

	// secureTokenJWKSURL serves the signing keys for securetoken ID tokens.
	secureTokenJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Config holds configuration for the Identity Toolkit provider.
type Config struct {
	// APIKey is the project's web API key, sent with every REST call. It is
	// the same key embedded in password-reset deep links.
	APIKey string
	// ProjectID names the project; it is both the ID token audience and the
	// issuer suffix.
	ProjectID string
	// Endpoint overrides the Identity Toolkit base URL (tests, emulator).
	Endpoint string
	// SecureTokenEndpoint overrides the token refresh URL (tests, emulator).
	SecureTokenEndpoint string
	// InsecureSkipVerify disables ID token signature verification. The Auth
	// emulator issues unsigned tokens; never enable this against production.
	InsecureSkipVerify bool
	HTTPClient         *http.Client // Optional, defaults to a 30s-timeout client
}

// Provider implements ports.IdentityProvider using the Identity Toolkit REST
// API. The provider-side session is a securetoken ID/refresh token pair; the
// ID token is refreshed on demand through an oauth2 token source.
type Provider struct {
	apiKey     string
	endpoint   string
	tokenURL   string
	httpClient *http.Client
	skipVerify bool

	verifier *gooidc.IDTokenVerifier

	mu       sync.Mutex
	identity *domainauth.Identity
	source   oauth2.TokenSource
	refresh  string
	handlers map[int]func(*domainauth.Identity)
	nextID   int
}

// NewProvider creates an Identity Toolkit provider. No network traffic happens
// here: the JWKS key set is fetched lazily on first token verification.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("identitytoolkit: API key is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("identitytoolkit: project ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	tokenURL := cfg.SecureTokenEndpoint
	if tokenURL == "" {
		tokenURL = defaultSecureTokenEndpoint
	}

	p := &Provider{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		skipVerify: cfg.InsecureSkipVerify,
		handlers:   make(map[int]func(*domainauth.Identity)),
	}

	if !cfg.InsecureSkipVerify {
		issuer := "https://securetoken.google.com/" + cfg.ProjectID
		keySet := gooidc.NewRemoteKeySet(
			context.WithValue(context.Background(), oauth2.HTTPClient, httpClient),
			secureTokenJWKSURL,
		)
		p.verifier = gooidc.NewVerifier(issuer, keySet, &gooidc.Config{ClientID: cfg.ProjectID})
	}

	return p, nil
}

// SignIn authenticates with email/password, looks up the account profile, and
// pushes the resulting identity to session-change handlers.
func (p *Provider) SignIn(ctx context.Context, email, password string) error {
	var resp struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	err := p.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return err
	}

	identity := &domainauth.Identity{
		UserID:      resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}
	// The sign-in response has no verification flag; the account lookup does.
	if verified, lookupErr := p.lookupEmailVerified(ctx, resp.IDToken); lookupErr == nil {
		identity.EmailVerified = verified
	}

	p.setSession(identity, resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	p.push(identity)
	return nil
}

// SignOut drops the provider-side session and pushes a nil identity. The REST
// API has no sign-out call; tokens are simply forgotten.
func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.identity = nil
	p.source = nil
	p.refresh = ""
	p.mu.Unlock()

	p.push(nil)
	return nil
}

// Reauthenticate re-proves the given credentials without replacing the pushed
// identity. A fresh token pair for the same account is adopted.
func (p *Provider) Reauthenticate(ctx context.Context, email, password string) error {
	var resp struct {
		LocalID      string `json:"localId"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	err := p.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.identity != nil && p.identity.UserID == resp.LocalID {
		p.adoptTokenLocked(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	}
	p.mu.Unlock()
	return nil
}

// UpdatePassword changes the current account's password. The API rotates the
// token pair; the fresh one is adopted.
func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	idToken, err := p.IDToken(ctx)
	if err != nil {
		return err
	}

	var resp struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	err = p.call(ctx, "accounts:update", map[string]any{
		"idToken":           idToken,
		"password":          newPassword,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.adoptTokenLocked(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	p.mu.Unlock()
	return nil
}

// SendPasswordResetEmail triggers the reset mail flow for the given address.
func (p *Provider) SendPasswordResetEmail(ctx context.Context, email string) error {
	return p.call(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// ConfirmPasswordReset redeems a mailed reset code for a new password.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	return p.call(ctx, "accounts:resetPassword", map[string]any{
		"oobCode":     code,
		"newPassword": newPassword,
	}, nil)
}

// TokenClaims verifies the current ID token and returns its claims, custom
// role attributes included.
func (p *Provider) TokenClaims(ctx context.Context) (domainauth.Claims, error) {
	raw, err := p.IDToken(ctx)
	if err != nil {
		return nil, err
	}

	if p.skipVerify {
		return decodeUnverifiedClaims(raw)
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var claims domainauth.Claims
	if claimsErr := idToken.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("parse id token claims: %w", claimsErr)
	}
	return claims, nil
}

// IDToken returns a currently valid ID token, refreshing through the
// securetoken endpoint when the cached one expired.
func (p *Provider) IDToken(_ context.Context) (string, error) {
	p.mu.Lock()
	source := p.source
	p.mu.Unlock()

	if source == nil {
		return "", errors.New("identitytoolkit: no active session")
	}
	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("refresh id token: %w", err)
	}
	return token.AccessToken, nil
}

// SessionChanges registers a push handler. Handlers see sign-in and sign-out
// transitions in call order.
func (p *Provider) SessionChanges(handler func(*domainauth.Identity)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.handlers, id)
		})
	}
}

func (p *Provider) push(identity *domainauth.Identity) {
	p.mu.Lock()
	handlers := make([]func(*domainauth.Identity), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(identity)
	}
}

func (p *Provider) setSession(identity *domainauth.Identity, idToken, refreshToken, expiresIn string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = identity
	p.adoptTokenLocked(idToken, refreshToken, expiresIn)
}

// adoptTokenLocked installs a token pair behind an oauth2.ReuseTokenSource so
// callers get cached tokens until expiry and transparent refresh after.
func (p *Provider) adoptTokenLocked(idToken, refreshToken, expiresIn string) {
	p.refresh = refreshToken
	seed := &oauth2.Token{
		AccessToken:  idToken,
		RefreshToken: refreshToken,
		Expiry:       expiryFromSeconds(expiresIn),
	}
	p.source = oauth2.ReuseTokenSource(seed, &refreshTokenSource{provider: p})
}

func (p *Provider) lookupEmailVerified(ctx context.Context, idToken string) (bool, error) {
	var resp struct {
		Users []struct {
			EmailVerified bool `json:"emailVerified"`
		} `json:"users"`
	}
	err := p.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp)
	if err != nil {
		return false, err
	}
	if len(resp.Users) == 0 {
		return false, errors.New("identitytoolkit: account lookup returned no users")
	}
	return resp.Users[0].EmailVerified, nil
}

// call POSTs a JSON request to one Identity Toolkit method and decodes the
// response into out (which may be nil).
func (p *Provider) call(ctx context.Context, method string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	endpoint := p.endpoint + "/" + method + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(method, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// apiError maps an Identity Toolkit error payload onto the shared provider
// error vocabulary. Unknown API codes pass through with a lowercased code.
func apiError(method string, status int, raw []byte) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Message == "" {
		return &ports.ProviderError{
			Code:    "http-" + strconv.Itoa(status),
			Message: fmt.Sprintf("%s failed with status %d", method, status),
		}
	}
	return &ports.ProviderError{
		Code:    providerCode(body.Error.Message),
		Message: body.Error.Message,
	}
}

// providerCode translates Identity Toolkit API error messages into the shared
// code vocabulary.
func providerCode(apiMessage string) string {
	switch apiMessage {
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return ports.ErrCodeInvalidPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return ports.ErrCodeInvalidEmail
	case "EMAIL_NOT_FOUND":
		return ports.ErrCodeUserNotFound
	case "EXPIRED_OOB_CODE", "INVALID_OOB_CODE":
		return ports.ErrCodeExpiredCode
	case "USER_DISABLED":
		return ports.ErrCodeUserDisabled
	default:
		return "provider-error"
	}
}

// refreshTokenSource exchanges the stored refresh token for a fresh ID token
// through the securetoken endpoint.
type refreshTokenSource struct {
	provider *Provider
}

func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	p := s.provider

	p.mu.Lock()
	refresh := p.refresh
	p.mu.Unlock()
	if refresh == "" {
		return nil, errors.New("identitytoolkit: no refresh token")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)

	endpoint := p.tokenURL + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("token", resp.StatusCode, raw)
	}

	var body struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode token refresh response: %w", err)
	}

	p.mu.Lock()
	p.refresh = body.RefreshToken
	p.mu.Unlock()

	return &oauth2.Token{
		AccessToken:  body.IDToken,
		RefreshToken: body.RefreshToken,
		Expiry:       expiryFromSeconds(body.ExpiresIn),
	}, nil
}

// expiryFromSeconds converts the API's string-encoded lifetime into an
// absolute expiry with a safety margin. A malformed lifetime yields an
// already-expired token, forcing a refresh on next use.
func expiryFromSeconds(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		return time.Now().Add(-time.Minute)
	}
	return time.Now().Add(time.Duration(seconds)*time.Second - 30*time.Second)
}

// decodeUnverifiedClaims parses a JWT payload without signature verification.
// Only used against the Auth emulator, which signs nothing.
func decodeUnverifiedClaims(raw string) (domainauth.Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, errors.New("identitytoolkit: malformed id token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode id token payload: %w", err)
	}
	var claims domainauth.Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("parse id token payload: %w", err)
	}
	return claims, nil
}
