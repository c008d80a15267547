package httpx

import (
	"net/http"

	"github.com/corrigohq/corrigo/internal/service"
)

// NavigationHandlers serves the role-filtered navigation tree.
type NavigationHandlers struct {
	Presenter *service.NavigationPresenter
}

// Items returns the menu items visible to the current role.
// GET /api/navigation.
func (h *NavigationHandlers) Items(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"items": h.Presenter.Visible()})
}
