package addon

import (
	"fmt"
	"net/http"
	"strconv"

	"flaghook/internal/domain/entity"
	"flaghook/internal/handler/http/respond"
)

// EventsHandler lists the newest delivery records of one addon config.
// The optional limit query parameter is clamped by the use case.
type EventsHandler struct {
	Svc    Service
	Events EventLister
}

func (h EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, fmt.Errorf("%w: limit must be an integer", entity.ErrInvalidInput))
			return
		}
	}
	if _, err := h.Svc.GetAddon(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	events, err := h.Events.GetEventsForIntegration(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []*entity.IntegrationEvent{}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"integrationEvents": events})
}
