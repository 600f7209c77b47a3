package conversations

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/comanda-backend/api/middleware"
	"github.com/angelmondragon/comanda-backend/api/responses"
	"github.com/angelmondragon/comanda-backend/api/validators"
	internalconversations "github.com/angelmondragon/comanda-backend/internal/conversations"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
)

const (
	maxAgentNameLen = 100
	maxReplyLen     = 4096
)

type takeoverRequest struct {
	AgentName string `json:"atendente"`
}

type replyRequest struct {
	Content string `json:"conteudo" validate:"required"`
}

// List returns conversations ordered by last interaction, optionally filtered by ?modo=.
func List(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var mode *enums.ConversationMode
		if raw := strings.TrimSpace(r.URL.Query().Get("modo")); raw != "" {
			parsed, err := enums.ParseConversationMode(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "invalid modo filter"))
				return
			}
			mode = &parsed
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		list, err := svc.List(r.Context(), params, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func Detail(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		id, err := parseConversationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Detail(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Takeover hands the conversation to a human attendant. The agent name falls
// back to the name on the staff token.
func Takeover(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		id, err := parseConversationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload takeoverRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		agent := validators.SanitizeString(payload.AgentName, maxAgentNameLen)
		if agent == "" {
			agent = validators.SanitizeString(middleware.StaffNameFromContext(r.Context()), maxAgentNameLen)
		}

		result, err := svc.Takeover(r.Context(), id, agent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Release(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		id, err := parseConversationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Release(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Reply sends an attendant message through the provider and stores it.
func Reply(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		id, err := parseConversationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		content := strings.TrimSpace(payload.Content)
		if len(content) > maxReplyLen {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidInput, "message too long").WithDetails(map[string]any{"max": maxReplyLen}))
			return
		}

		message, err := svc.SendReply(r.Context(), id, content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

func Delete(svc internalconversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		id, err := parseConversationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

func parseConversationID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "conversationId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "conversation id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "invalid conversation id")
	}
	return id, nil
}
