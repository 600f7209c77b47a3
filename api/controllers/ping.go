package controllers

import (
	"net/http"

	"github.com/angelmondragon/comanda-backend/api/middleware"
	"github.com/angelmondragon/comanda-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the caller identity so the dashboard can verify its token.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if user := middleware.UserIDFromContext(r.Context()); user != "" {
			payload["user_id"] = user
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role.String()
		}
		if name := middleware.StaffNameFromContext(r.Context()); name != "" {
			payload["name"] = name
		}
		responses.WriteSuccess(w, payload)
	}
}
