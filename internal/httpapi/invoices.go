package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"invoicebook/backend/internal/attachment"
	"invoicebook/backend/internal/domain"
)

const (
	imageField = "invoiceImage"
	dataField  = "data"
)

func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		invoices, err := a.service.ListInvoices(r.Context(), domain.InvoiceFilter{
			DistributorID: r.URL.Query().Get("distributorId"),
		})
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
	case http.MethodPost:
		var req domain.InvoiceCreateRequest
		image, err := readInvoicePayload(r, &req)
		if err != nil {
			a.writeDecodeError(w, err)
			return
		}
		created, err := a.service.CreateInvoice(r.Context(), req, image)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		invoice, err := a.service.GetInvoice(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	case http.MethodPut:
		var req domain.InvoiceUpdateRequest
		image, err := readInvoicePayload(r, &req)
		if err != nil {
			a.writeDecodeError(w, err)
			return
		}
		updated, err := a.service.UpdateInvoice(r.Context(), id, req, image)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.service.DeleteInvoice(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Invoice deleted"})
	default:
		a.writeMethodNotAllowed(w)
	}
}

// readInvoicePayload decodes either a JSON body or a multipart form whose
// "data" part holds the JSON fields and whose "invoiceImage" part holds the
// optional file.
func readInvoicePayload(r *http.Request, dest any) (*domain.ImageUpload, error) {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return nil, decodeJSON(r, dest)
	}

	if err := r.ParseMultipartForm(attachment.MaxImageBytes); err != nil {
		return nil, err
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if raw := strings.TrimSpace(r.PostFormValue(dataField)); raw != "" {
		decoder := json.NewDecoder(bytes.NewBufferString(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(dest); err != nil {
			return nil, fmt.Errorf("%s field: %w", dataField, err)
		}
	}

	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// One byte past the cap is enough for the size check downstream.
	data, err := io.ReadAll(io.LimitReader(file, attachment.MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	return &domain.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
