package addon

import (
	"net/http"
)

type DeleteHandler struct{ Svc Service }

// ServeHTTP answers 200 with an empty body. Deleting an unknown id is not an
// error.
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Svc.RemoveAddon(r.Context(), id, auditUser(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
