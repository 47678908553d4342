package addon

import (
	"net/http"

	"flaghook/internal/handler/http/respond"
)

type UpdateHandler struct{ Svc Service }

func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.Svc.UpdateAddon(r.Context(), id, in, auditUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}
