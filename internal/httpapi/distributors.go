package httpapi

import (
	"net/http"

	"invoicebook/backend/internal/domain"
)

func (a *API) handleDistributors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		distributors, err := a.service.ListDistributors(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"distributors": distributors})
	case http.MethodPost:
		var req domain.DistributorRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeDecodeError(w, err)
			return
		}
		created, err := a.service.CreateDistributor(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleDistributor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		distributor, err := a.service.GetDistributor(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, distributor)
	case http.MethodPut:
		var req domain.DistributorRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeDecodeError(w, err)
			return
		}
		updated, err := a.service.UpdateDistributor(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.service.DeleteDistributor(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Distributor deleted"})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleDistributorInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	invoices, err := a.service.ListDistributorInvoices(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}
