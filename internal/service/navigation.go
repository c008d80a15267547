package service

import (
	domainauth "github.com/corrigohq/corrigo/internal/domain/auth"
)

// RoleChecker is the guard predicate the presenter filters with.
type RoleChecker interface {
	HasRole(required domainauth.Role) bool
}

// NavigationPresenter filters the static navigation tree down to the items
// the current role may see. Filtering is recomputed on every role emission;
// a stale menu after a role change is a defect, so nothing is cached.
type NavigationPresenter struct {
	checker RoleChecker
	items   []domainauth.NavigationItem
}

// NewNavigationPresenter constructs a presenter over the given tree.
func NewNavigationPresenter(checker RoleChecker, items []domainauth.NavigationItem) *NavigationPresenter {
	return &NavigationPresenter{
		checker: checker,
		items:   items,
	}
}

// Visible returns the subset of the tree the current role may see. A
// top-level item failing its role check is excluded entirely, children
// included; otherwise children are filtered individually, so a parent without
// its own requirement can still hide individual children.
func (p *NavigationPresenter) Visible() []domainauth.NavigationItem {
	visible := make([]domainauth.NavigationItem, 0, len(p.items))
	for _, item := range p.items {
		if item.RequiredRole != "" && !p.checker.HasRole(item.RequiredRole) {
			continue
		}

		filtered := item
		filtered.Items = nil
		for _, child := range item.Items {
			if child.RequiredRole != "" && !p.checker.HasRole(child.RequiredRole) {
				continue
			}
			filtered.Items = append(filtered.Items, child)
		}
		visible = append(visible, filtered)
	}
	return visible
}

// Watch emits the filtered tree on every role stream emission: the visible
// items while a role is present, an empty slice otherwise. The first value
// reflects the stream's replayed current role. Cancel stops the watch.
func (p *NavigationPresenter) Watch(resolver *RoleResolver) (<-chan []domainauth.NavigationItem, func()) {
	roleCh, cancelRoles := resolver.Subscribe()
	out := make(chan []domainauth.NavigationItem, 1)

	go func() {
		defer close(out)
		for role := range roleCh {
			var items []domainauth.NavigationItem
			if role != nil {
				items = p.Visible()
			} else {
				items = []domainauth.NavigationItem{}
			}
			select {
			case out <- items:
			default:
				// Drop if the consumer lags; only the latest tree matters.
				select {
				case <-out:
				default:
				}
				out <- items
			}
		}
	}()

	return out, cancelRoles
}
