package auth

// Package auth contains domain-level types for identity, sessions, and roles.
// It is pure and free of framework/adapter concerns.

// Role represents an application's authorization tier.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleEditor    Role = "editor"
	RoleRequester Role = "requester"
)

// roleLevels defines the strict total order Admin > Editor > Requester.
var roleLevels = map[Role]int{
	RoleRequester: 1,
	RoleEditor:    2,
	RoleAdmin:     3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Meets reports whether r grants at least the permissions of required.
// Unknown roles on either side never meet anything.
func (r Role) Meets(required Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	requiredLevel, ok := roleLevels[required]
	if !ok {
		return false
	}
	return level >= requiredLevel
}

// Claims are the provider-issued attributes embedded in a credential.
// The role resolver derives a Role from them; nothing else inspects them.
type Claims map[string]any

// Identity represents the authenticated principal returned by the IdP.
// Adapters map provider-specific account shapes into this struct. It is
// replaced wholesale on every provider push and never partially merged.
type Identity struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	EmailVerified bool   `json:"email_verified"`
}

// Session pairs the current identity with its resolved role.
// Role is non-empty only if Identity is non-nil; the converse does not hold
// during the window between a successful login and claims resolution.
type Session struct {
	Identity *Identity
	Role     Role
}

// LoggedIn reports whether the session carries an identity.
func (s Session) LoggedIn() bool { return s.Identity != nil }
