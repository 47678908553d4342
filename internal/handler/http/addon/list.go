package addon

import (
	"net/http"

	"flaghook/internal/domain/entity"
	"flaghook/internal/handler/http/respond"
)

type ListHandler struct{ Svc Service }

type listResponse struct {
	Addons    []*entity.AddonConfig    `json:"addons"`
	Providers []entity.AddonDefinition `json:"providers"`
}

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addons, err := h.Svc.GetAddons(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if addons == nil {
		addons = []*entity.AddonConfig{}
	}
	respond.JSON(w, http.StatusOK, listResponse{
		Addons:    addons,
		Providers: h.Svc.GetProviderDefinitions(),
	})
}

type ProvidersHandler struct{ Svc Service }

func (h ProvidersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Svc.GetProviderDefinitions())
}

type GetHandler struct{ Svc Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.Svc.GetAddon(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}
