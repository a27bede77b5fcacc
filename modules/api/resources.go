package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/usage"
)

// resourceRoutes registers the quota-gated mutation endpoints. The engine
// is advisory to the client through /session but authoritative here: every
// create consults it synchronously before the write is acknowledged.
func (m *Module) resourceRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", m.createResource(usage.KindProducts))
		r.Put("/{id}", m.updateResource)
		r.Delete("/{id}", m.deleteResource(usage.KindProducts))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", m.createResource(usage.KindOrders))
		r.Put("/{id}", m.updateResource)
		r.Delete("/{id}", m.deleteResource(usage.KindOrders))
	})

	r.Route("/categories", func(r chi.Router) {
		r.Post("/", m.handleCreateCategory)
		r.Put("/{categoryID}", m.updateResource)
		r.Delete("/{categoryID}", m.handleDeleteCategory)

		r.Route("/{categoryID}/subcategories", func(r chi.Router) {
			r.Post("/", m.handleCreateSubcategory)
			r.Put("/{id}", m.updateResource)
			r.Delete("/{id}", m.handleDeleteSubcategory)
		})
	})
}

// createResource gates and counts a whole-tenant pool resource.
func (m *Module) createResource(kind usage.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := mustTenant(r)
		id := uuid.New()
		if err := m.engine.CommitCreate(r.Context(), t.ID, kind, id); err != nil {
			m.writeError(w, r, err)
			return
		}
		core.JSON(w, http.StatusCreated, map[string]any{"id": id})
	}
}

func (m *Module) deleteResource(kind usage.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := mustTenant(r)
		if err := m.engine.CommitDelete(r.Context(), t.ID, kind, uuid.Nil); err != nil {
			m.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// updateResource gates edits to existing resources. Updates never consume
// quota, so only access is checked.
func (m *Module) updateResource(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)
	if err := m.engine.AuthorizeUpdate(r.Context(), t.ID); err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (m *Module) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)
	id := uuid.New()
	if err := m.engine.CommitCreate(r.Context(), t.ID, usage.KindCategories, id); err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (m *Module) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := m.engine.CommitDelete(r.Context(), t.ID, usage.KindCategories, categoryID); err != nil {
		m.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateSubcategory checks quota against the target category's own
// subcategory count, not a tenant-wide total.
func (m *Module) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := m.engine.CommitCreate(r.Context(), t.ID, usage.KindSubcategories, categoryID); err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusCreated, map[string]any{"id": uuid.New(), "category_id": categoryID})
}

func (m *Module) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)
	categoryID, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := m.engine.CommitDelete(r.Context(), t.ID, usage.KindSubcategories, categoryID); err != nil {
		m.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
