package api

import (
	"net/http"

	"github.com/storekit/storekit/core"
)

func (m *Module) handleListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := m.catalog.ListActive(r.Context())
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, list)
}
