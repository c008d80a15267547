package httpx

import (
	"context"
	"net/http"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	apperrors "github.com/corrigohq/corrigo/internal/errors"
	"github.com/corrigohq/corrigo/internal/service"
)

// AuthServiceInterface defines the session operations the handlers expose.
type AuthServiceInterface interface {
	LogIn(ctx context.Context, email, password string) service.Result
	LogOut(ctx context.Context)
	ReauthenticateUser(ctx context.Context, password string) service.Result
	ChangePassword(ctx context.Context, newPassword string) service.Result
	SendPasswordReset(ctx context.Context, email string) service.Result
	ConfirmPasswordReset(ctx context.Context, code, password string) service.Result
	GetToken(ctx context.Context) string
	CurrentIdentity() *domainauth.Identity
	CurrentRole() (domainauth.Role, bool)
	LoggedIn(ctx context.Context) bool
}

// AuthHandlers provides HTTP handlers for session operations.
type AuthHandlers struct {
	Svc AuthServiceInterface
}

// Login handles credential sign-in.
// POST /auth/login {"email": ..., "password": ...}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, "missing_credentials", apperrors.Validation("email and password are required"))
		return
	}

	result := h.Svc.LogIn(r.Context(), req.Email, req.Password)
	if !result.OK {
		WriteError(w, "authentication_failed", apperrors.Unauthenticated(result.Message))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Logout ends the session.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Svc.LogOut(r.Context())
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"redirect_to": service.LoginPath,
	})
}

// ChangePassword re-proves the current password, then sets the new one.
// POST /auth/password {"current_password": ..., "new_password": ...}.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		WriteError(w, "missing_password", apperrors.ValidationField("new_password", "new password is required"))
		return
	}

	if result := h.Svc.ReauthenticateUser(r.Context(), req.CurrentPassword); !result.OK {
		WriteError(w, "reauthentication_failed", apperrors.Validation(result.Message))
		return
	}
	result := h.Svc.ChangePassword(r.Context(), req.NewPassword)
	if !result.OK {
		WriteError(w, "change_password_failed", apperrors.Validation(result.Message))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": result.Message,
	})
}

// SendPasswordReset triggers the reset mail flow.
// POST /auth/password-reset {"email": ...}.
func (h *AuthHandlers) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if result := h.Svc.SendPasswordReset(r.Context(), req.Email); !result.OK {
		WriteError(w, "password_reset_failed", apperrors.Validation(result.Message))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ConfirmPasswordReset redeems a mailed reset code.
// POST /auth/password-reset/confirm {"oob_code": ..., "new_password": ...}.
func (h *AuthHandlers) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OobCode     string `json:"oob_code"`
		NewPassword string `json:"new_password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if result := h.Svc.ConfirmPasswordReset(r.Context(), req.OobCode, req.NewPassword); !result.OK {
		WriteError(w, "password_reset_failed", apperrors.Validation(result.Message))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Token returns the current bearer credential for data requests. An empty
// token is a valid response, never an error.
// GET /auth/token.
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"token": h.Svc.GetToken(r.Context())})
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	identity := h.Svc.CurrentIdentity()
	if identity == nil || !h.Svc.LoggedIn(r.Context()) {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	user := map[string]any{
		"id":             identity.UserID,
		"email":          identity.Email,
		"display_name":   identity.DisplayName,
		"email_verified": identity.EmailVerified,
	}
	if role, ok := h.Svc.CurrentRole(); ok {
		user["role"] = role
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}
