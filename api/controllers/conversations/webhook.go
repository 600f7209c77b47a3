package conversations

import (
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/comanda-backend/api/responses"
	internalconversations "github.com/angelmondragon/comanda-backend/internal/conversations"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
)

const maxWebhookBytes = 1 << 20

// Webhook ingests one WhatsApp delivery. Redeliveries answer 200 without writing.
func Webhook(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "payload too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "read webhook body"))
			return
		}

		result, err := svc.Ingest(r.Context(), raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
