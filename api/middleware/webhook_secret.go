package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/comanda-backend/api/responses"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret rejects webhook deliveries whose shared secret header does not
// match. An empty secret disables the check.
func WebhookSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(webhookSecretHeader))
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
