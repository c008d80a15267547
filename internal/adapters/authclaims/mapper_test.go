package authclaims

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

func TestMapper_Map_Precedence(t *testing.T) {
	mapper := NewMapper()

	tests := []struct {
		name   string
		claims domainauth.Claims
		want   domainauth.Role
	}{
		{"admin claim", domainauth.Claims{"admin": true}, domainauth.RoleAdmin},
		{"editor claim", domainauth.Claims{"editor": true}, domainauth.RoleEditor},
		{"requester claim", domainauth.Claims{"requester": true}, domainauth.RoleRequester},
		{"admin wins over editor", domainauth.Claims{"admin": true, "editor": true}, domainauth.RoleAdmin},
		{"editor wins over requester", domainauth.Claims{"editor": true, "requester": true}, domainauth.RoleEditor},
		{"no claims defaults to requester", domainauth.Claims{}, domainauth.RoleRequester},
		{"nil claims default to requester", nil, domainauth.RoleRequester},
		{"false admin claim is ignored", domainauth.Claims{"admin": false}, domainauth.RoleRequester},
		{"string true is accepted", domainauth.Claims{"admin": "true"}, domainauth.RoleAdmin},
		{"non-boolean claim is ignored", domainauth.Claims{"admin": 1}, domainauth.RoleRequester},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapper.Map(tt.claims))
		})
	}
}

func TestMapper_Map_CustomPaths(t *testing.T) {
	mapper := Mapper{
		AdminPath:     "roles.admin",
		EditorPath:    "roles.editor",
		RequesterPath: "roles.requester",
	}

	claims := domainauth.Claims{
		"roles": map[string]any{"editor": true},
	}

	assert.Equal(t, domainauth.RoleEditor, mapper.Map(claims))
}

func TestMapper_Map_InvalidExpression(t *testing.T) {
	mapper := Mapper{AdminPath: "roles[", EditorPath: "", RequesterPath: ""}

	// A malformed expression must never raise a tier.
	assert.Equal(t, domainauth.RoleRequester, mapper.Map(domainauth.Claims{"admin": true}))
}
