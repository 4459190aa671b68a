package httpapi

import (
	"net/http"

	"invoicebook/backend/internal/domain"
)

func (a *API) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		payments, err := a.service.ListPayments(r.Context(), domain.PaymentFilter{
			DistributorID: query.Get("distributorId"),
			InvoiceID:     query.Get("invoiceId"),
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
	case http.MethodPost:
		var req domain.PaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeDecodeError(w, err)
			return
		}
		resp, err := a.service.RecordPayment(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handlePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	payment, err := a.service.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (a *API) handleInvoicePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	payments, err := a.service.ListInvoicePayments(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}
