package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/comanda-backend/api/responses"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/zapi"
)

// MessagingProvider is the admin surface of the WhatsApp provider client.
type MessagingProvider interface {
	Status(ctx context.Context) (zapi.ConnectionState, error)
	Restart(ctx context.Context) error
}

func MessagingStatus(provider MessagingProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUpstream, "messaging provider not configured"))
			return
		}

		state, err := provider.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "fetch provider status"))
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// MessagingReconnect asks the provider to restart the WhatsApp session.
func MessagingReconnect(provider MessagingProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUpstream, "messaging provider not configured"))
			return
		}

		if err := provider.Restart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "restart provider session"))
			return
		}
		if logg != nil {
			logg.Info(r.Context(), "messaging session restart requested")
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "restarting"})
	}
}
