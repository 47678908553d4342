package addon

import (
	"net/http"

	"flaghook/internal/handler/http/respond"
)

type CreateHandler struct{ Svc Service }

func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.Svc.CreateAddon(r.Context(), in, auditUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, cfg)
}
