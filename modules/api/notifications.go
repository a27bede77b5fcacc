package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/notifications"
)

func (m *Module) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)

	opts := notifications.ListOptions{
		OnlyUnread: r.URL.Query().Get("unread") == "true",
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}

	list, err := m.notifs.List(r.Context(), t.ID, opts)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, list)
}

func (m *Module) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t := mustTenant(r)

	if err := m.notifs.MarkRead(r.Context(), t.ID, req.IDs...); err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, map[string]any{"read": len(req.IDs)})
}
