package httpapi

import (
	"net/http"

	"invoicebook/backend/internal/domain"
)

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListUsers(r.Context())})
	case http.MethodPost:
		var req domain.CreateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeDecodeError(w, err)
			return
		}
		user, err := a.auth.CreateUser(r.Context(), req.Username, req.Password, req.Role)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		a.writeMethodNotAllowed(w)
	}
}
