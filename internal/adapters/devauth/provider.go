package devauth

// Package devauth provides an in-process, config-driven IdentityProvider for
// local development. No external identity service is involved; accounts,
// sessions, and reset codes live in memory.

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	"github.com/corrigohq/corrigo/internal/ports"
)

// Account is one configured development account.
type Account struct {
	UserID      string
	Email       string
	Password    string
	DisplayName string
	// EmailVerified mirrors the provider-side verification flag. The
	// designated bypass account is typically left unverified on purpose.
	EmailVerified bool
	// Claims are merged into the account's token claims; role attributes
	// (admin/editor) go here.
	Claims domainauth.Claims
}

// Config controls the dev auth provider behavior.
type Config struct {
	Accounts []Account
}

// Provider implements ports.IdentityProvider for local development.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]*Account // keyed by lowercased email
	current  *Account
	token    string
	handlers map[int]func(*domainauth.Identity)
	nextID   int
	// resetCodes maps outstanding oob codes to account emails.
	resetCodes map[string]string
	lastCode   string
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Accounts) == 0 {
		return nil, errors.New("dev auth: at least one account is required")
	}

	accounts := make(map[string]*Account, len(cfg.Accounts))
	for i := range cfg.Accounts {
		acct := cfg.Accounts[i]
		if acct.UserID == "" {
			return nil, errors.New("dev auth: account UserID is required")
		}
		if acct.Email == "" {
			return nil, errors.New("dev auth: account Email is required")
		}
		if acct.Password == "" {
			return nil, errors.New("dev auth: account Password is required")
		}
		accounts[strings.ToLower(acct.Email)] = &acct
	}

	return &Provider{
		accounts:   accounts,
		handlers:   make(map[int]func(*domainauth.Identity)),
		resetCodes: make(map[string]string),
	}, nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) error {
	p.mu.Lock()
	acct, err := p.checkCredentialsLocked(email, password)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.current = acct
	p.token = uuid.NewString()
	identity := identityFor(acct)
	p.mu.Unlock()

	p.push(identity)
	return nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.token = ""
	p.mu.Unlock()

	p.push(nil)
	return nil
}

// Reauthenticate validates credentials without touching the pushed session.
func (p *Provider) Reauthenticate(_ context.Context, email, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.checkCredentialsLocked(email, password)
	return err
}

func (p *Provider) UpdatePassword(_ context.Context, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return errors.New("dev auth: no active session")
	}
	p.current.Password = newPassword
	return nil
}

// SendPasswordResetEmail mints a reset code instead of mailing one. The code
// is retrievable via LastResetCode for manual testing.
func (p *Provider) SendPasswordResetEmail(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return &ports.ProviderError{Code: ports.ErrCodeUserNotFound, Message: "EMAIL_NOT_FOUND"}
	}
	code := uuid.NewString()
	p.resetCodes[code] = strings.ToLower(acct.Email)
	p.lastCode = code
	return nil
}

func (p *Provider) ConfirmPasswordReset(_ context.Context, code, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	email, ok := p.resetCodes[code]
	if !ok {
		return &ports.ProviderError{Code: ports.ErrCodeExpiredCode, Message: "INVALID_OOB_CODE"}
	}
	delete(p.resetCodes, code)
	p.accounts[email].Password = newPassword
	return nil
}

// TokenClaims returns the current account's configured claims plus the
// standard identity attributes.
func (p *Provider) TokenClaims(_ context.Context) (domainauth.Claims, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, errors.New("dev auth: no active session")
	}

	claims := domainauth.Claims{
		"user_id":        p.current.UserID,
		"email":          p.current.Email,
		"email_verified": p.current.EmailVerified,
	}
	for k, v := range p.current.Claims {
		claims[k] = v
	}
	return claims, nil
}

func (p *Provider) IDToken(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		return "", errors.New("dev auth: no active session")
	}
	return p.token, nil
}

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

// LastResetCode returns the most recently minted password-reset code.
func (p *Provider) LastResetCode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCode
}

func (p *Provider) checkCredentialsLocked(email, password string) (*Account, error) {
	acct, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return nil, &ports.ProviderError{Code: ports.ErrCodeUserNotFound, Message: "EMAIL_NOT_FOUND"}
	}
	if acct.Password != password {
		return nil, &ports.ProviderError{Code: ports.ErrCodeInvalidPassword, Message: "INVALID_PASSWORD"}
	}
	return acct, nil
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

func identityFor(acct *Account) *domainauth.Identity {
	return &domainauth.Identity{
		UserID:        acct.UserID,
		Email:         acct.Email,
		DisplayName:   acct.DisplayName,
		EmailVerified: acct.EmailVerified,
	}
}

// DemoAccounts is a ready-made account set for local development: an admin,
// an editor, a plain requester, and the unverified bypass test account.
func DemoAccounts() []Account {
	return []Account{
		{
			UserID:        "dev-admin",
			Email:         "admin@corrigo.local",
			Password:      "admin",
			DisplayName:   "Dev Admin",
			EmailVerified: true,
			Claims:        domainauth.Claims{"admin": true},
		},
		{
			UserID:        "dev-editor",
			Email:         "editor@corrigo.local",
			Password:      "editor",
			DisplayName:   "Dev Editor",
			EmailVerified: true,
			Claims:        domainauth.Claims{"editor": true},
		},
		{
			UserID:        "dev-requester",
			Email:         "requester@corrigo.local",
			Password:      "requester",
			DisplayName:   "Dev Requester",
			EmailVerified: true,
		},
		{
			UserID:      "dev-test",
			Email:       "test@user.de",
			Password:    "test",
			DisplayName: "Test User",
		},
	}
}
