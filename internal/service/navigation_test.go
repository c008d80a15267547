package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
	mocks "github.com/corrigohq/corrigo/internal/mocks/auth"
)

// roleCheckerFunc adapts a function to RoleChecker.
type roleCheckerFunc func(required domainauth.Role) bool

func (f roleCheckerFunc) HasRole(required domainauth.Role) bool { return f(required) }

func asRole(role domainauth.Role) roleCheckerFunc {
	return func(required domainauth.Role) bool { return role.Meets(required) }
}

func itemTexts(items []domainauth.NavigationItem) []string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.Text)
	}
	return texts
}

func TestNavigationPresenter_AdminSeesEverything(t *testing.T) {
	presenter := NewNavigationPresenter(asRole(domainauth.RoleAdmin), domainauth.DefaultNavigation())

	visible := presenter.Visible()

	assert.Contains(t, itemTexts(visible), "Settings")
	assert.Len(t, visible, len(domainauth.DefaultNavigation()))
}

func TestNavigationPresenter_RequesterDoesNotSeeSettings(t *testing.T) {
	presenter := NewNavigationPresenter(asRole(domainauth.RoleRequester), domainauth.DefaultNavigation())

	visible := presenter.Visible()

	texts := itemTexts(visible)
	assert.NotContains(t, texts, "Settings")
	assert.Contains(t, texts, "Home")
	assert.Contains(t, texts, "Ticket Overview")
}

func TestNavigationPresenter_ExcludedParentHidesChildren(t *testing.T) {
	items := []domainauth.NavigationItem{
		{
			Text:         "Restricted",
			RequiredRole: domainauth.RoleAdmin,
			Items: []domainauth.NavigationItem{
				{Text: "Open Child"}, // no own requirement
			},
		},
	}
	presenter := NewNavigationPresenter(asRole(domainauth.RoleEditor), items)

	// The child's lack of a requirement does not rescue it: exclusion of a
	// top-level item removes the whole branch.
	assert.Empty(t, presenter.Visible())
}

func TestNavigationPresenter_ChildrenFilteredIndividually(t *testing.T) {
	items := []domainauth.NavigationItem{
		{
			Text: "Tools",
			Items: []domainauth.NavigationItem{
				{Text: "For Everyone"},
				{Text: "Editors Only", RequiredRole: domainauth.RoleEditor},
			},
		},
	}
	presenter := NewNavigationPresenter(asRole(domainauth.RoleRequester), items)

	visible := presenter.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, []string{"For Everyone"}, itemTexts(visible[0].Items))
}

func TestNavigationPresenter_FilteringDoesNotMutateTree(t *testing.T) {
	items := domainauth.DefaultNavigation()
	presenter := NewNavigationPresenter(asRole(domainauth.RoleRequester), items)

	presenter.Visible()

	assert.Equal(t, domainauth.DefaultNavigation(), items)
}

func TestNavigationPresenter_WatchFollowsRoleChanges(t *testing.T) {
	provider := mocks.NewMockIdentityProvider()
	resolver := NewRoleResolver(provider, tierMapper(), nil)

	guard := NewAccessGuard(AccessGuardOptions{
		Session:  &fakeGuardSession{},
		Roles:    resolver,
		Router:   &mocks.RecordingRouter{},
		Notifier: &mocks.RecordingNotifier{},
	})
	presenter := NewNavigationPresenter(guard, domainauth.DefaultNavigation())

	itemsCh, cancel := presenter.Watch(resolver)
	defer cancel()

	// No role yet: the menu is empty.
	assert.Empty(t, <-itemsCh)

	provider.TokenClaimsFunc = func(context.Context) (domainauth.Claims, error) {
		return domainauth.Claims{"role": string(domainauth.RoleAdmin)}, nil
	}
	token := resolver.StartResolution()
	require.NoError(t, resolver.Resolve(context.Background(), token))

	select {
	case items := <-itemsCh:
		assert.Contains(t, itemTexts(items), "Settings")
	case <-time.After(time.Second):
		t.Fatal("no menu emission after role resolution")
	}

	resolver.Clear()

	select {
	case items := <-itemsCh:
		assert.Empty(t, items)
	case <-time.After(time.Second):
		t.Fatal("no menu emission after role clear")
	}
}
