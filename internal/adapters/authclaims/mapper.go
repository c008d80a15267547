package authclaims

// Package authclaims decodes identity-provider claims into application roles.
// The provider encodes tiers as ad-hoc boolean claims; paths are configurable
// JMESPath expressions so the encoding can change without touching consumers.

import (
	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

// Mapper maps claims to roles using a fixed precedence: the admin claim wins
// over the editor claim; anything else falls through to the lowest tier.
type Mapper struct {
	AdminPath     string
	EditorPath    string
	RequesterPath string
}

// NewMapper returns a Mapper for the default boolean claim encoding
// (top-level "admin", "editor", "requester" claims).
func NewMapper() Mapper {
	return Mapper{
		AdminPath:     "admin",
		EditorPath:    "editor",
		RequesterPath: "requester",
	}
}

// Map derives the role for the given claims. The requester tier is the
// default: an identity with no recognized claim still gets the lowest tier.
func (m Mapper) Map(claims domainauth.Claims) domainauth.Role {
	if truthy(claims, m.AdminPath) {
		return domainauth.RoleAdmin
	}
	if truthy(claims, m.EditorPath) {
		return domainauth.RoleEditor
	}
	return domainauth.RoleRequester
}

// truthy evaluates the JMESPath expression against the claims and reports
// whether the result is an affirmative marker. Evaluation errors and unknown
// result types count as false; a malformed claim must never raise a tier.
func truthy(claims domainauth.Claims, expr string) bool {
	if expr == "" {
		return false
	}
	result, err := jmespath.Search(expr, map[string]any(claims))
	if err != nil {
		return false
	}
	switch v := result.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
