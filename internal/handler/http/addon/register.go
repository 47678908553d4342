package addon

import "net/http"

// Register mounts the addon routes under /api/admin/addons.
func Register(mux *http.ServeMux, svc Service, events EventLister) {
	mux.Handle("GET /api/admin/addons", ListHandler{svc})
	mux.Handle("GET /api/admin/addons/providers", ProvidersHandler{svc})
	mux.Handle("POST /api/admin/addons", CreateHandler{svc})
	mux.Handle("GET /api/admin/addons/{id}", GetHandler{svc})
	mux.Handle("PUT /api/admin/addons/{id}", UpdateHandler{svc})
	mux.Handle("DELETE /api/admin/addons/{id}", DeleteHandler{svc})
	mux.Handle("GET /api/admin/addons/{id}/events", EventsHandler{Svc: svc, Events: events})
}
