package auth

// NavigationItem is a node of the static navigation tree. Items carrying a
// RequiredRole are only visible to sessions whose role meets it; the
// navigation presenter applies the check per item and per child.
type NavigationItem struct {
	Text         string           `json:"text"`
	Path         string           `json:"path,omitempty"`
	Icon         string           `json:"icon,omitempty"`
	RequiredRole Role             `json:"required_role,omitempty"`
	Items        []NavigationItem `json:"items,omitempty"`
}

// DefaultNavigation is the navigation tree of the correction-ticket app.
// The Settings branch and its children are admin-only.
func DefaultNavigation() []NavigationItem {
	return []NavigationItem{
		{Text: "Home", Path: "/home", Icon: "home"},
		{Text: "Create Ticket", Path: "/ticket/0", Icon: "add"},
		{Text: "Ticket Overview", Path: "/ticket", Icon: "description"},
		{
			Text:         "Settings",
			Icon:         "preferences",
			RequiredRole: RoleAdmin,
			Items: []NavigationItem{
				{Text: "Permissions", Path: "/permission"},
				{Text: "Course Management", Path: "/course"},
				{Text: "User Management", Path: "/user"},
			},
		},
		{Text: "Privacy Policy", Path: "/privacy-policy", Icon: "eyeopen"},
		{Text: "About Us", Path: "/about", Icon: "card"},
	}
}
