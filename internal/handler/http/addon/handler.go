// Package addon exposes addon configuration over the admin HTTP API.
package addon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"flaghook/internal/domain/entity"
	hhttp "flaghook/internal/handler/http"
	"flaghook/internal/handler/http/pathutil"
	"flaghook/internal/handler/http/respond"
	addonUC "flaghook/internal/usecase/addon"
)

// Service is the slice of the addon use case the handlers call.
type Service interface {
	GetAddons(ctx context.Context) ([]*entity.AddonConfig, error)
	GetAddon(ctx context.Context, id int64) (*entity.AddonConfig, error)
	CreateAddon(ctx context.Context, in entity.AddonConfigInput, by entity.AuditUser) (*entity.AddonConfig, error)
	UpdateAddon(ctx context.Context, id int64, in entity.AddonConfigInput, by entity.AuditUser) (*entity.AddonConfig, error)
	RemoveAddon(ctx context.Context, id int64, by entity.AuditUser) error
	GetProviderDefinitions() []entity.AddonDefinition
}

// EventLister reads the delivery log of one addon config.
type EventLister interface {
	GetEventsForIntegration(ctx context.Context, integrationID int64, limit int) ([]*entity.IntegrationEvent, error)
}

// Headers naming the operator behind a change. The admin API sits behind
// the platform's own authentication, which sets them.
const (
	UserHeader   = "X-Unleash-User"
	UserIDHeader = "X-Unleash-User-Id"
)

// auditUser builds the audit identity of the request. Requests without a
// user header are recorded as the system user.
func auditUser(r *http.Request) entity.AuditUser {
	user := entity.AuditUser{Username: r.Header.Get(UserHeader), IP: hhttp.ClientIP(r)}
	if user.Username == "" {
		user.Username = entity.SystemUser.Username
		user.ID = entity.SystemUser.ID
		return user
	}
	if id, err := strconv.ParseInt(r.Header.Get(UserIDHeader), 10, 64); err == nil {
		user.ID = id
	}
	return user
}

func pathID(r *http.Request) (int64, error) {
	id, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", entity.ErrInvalidInput, err)
	}
	return id, nil
}

func decodeInput(r *http.Request) (entity.AddonConfigInput, error) {
	var in entity.AddonConfigInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return in, fmt.Errorf("%w: request body too large", entity.ErrInvalidInput)
		}
		return in, fmt.Errorf("%w: invalid JSON body", entity.ErrInvalidInput)
	}
	return in, nil
}

// writeError maps use case errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	code := respond.StatusFor(err)
	if errors.Is(err, addonUC.ErrAddonNotFound) {
		code = http.StatusNotFound
	}
	respond.SafeError(w, code, err)
}
