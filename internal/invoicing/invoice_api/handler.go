package invoice_api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ms-scheduling/internal/invoicing"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/utils"

	"github.com/go-chi/chi/v5"
)

// maxRequestXML bounds an uploaded invoice batch.
const maxRequestXML = 10 << 20

type InvoiceService interface {
	CreateInvoicesBatch(ctx context.Context, requestXML string) (*invoicing.Response, error)
	UpdateInvoices(ctx context.Context, requestXML string) (*invoicing.Response, error)
	UpdateInvoice(ctx context.Context, invoiceID, requestXML string) (*invoicing.Response, error)
	DownloadInvoicePDF(ctx context.Context, invoiceID string) ([]byte, error)
}

type Handler struct {
	Service InvoiceService
	Logger  *logger.Logger
}

func NewHandler(service InvoiceService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) Mount(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.CreateInvoices)
		r.Post("/update", h.UpdateInvoices)
		r.Post("/{invoiceId}", h.UpdateInvoice)
		r.Get("/{invoiceId}/pdf", h.DownloadPDF)
	})
}

func (h *Handler) CreateInvoices(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreateInvoices: received request")
	body, ok := h.readXML(w, r, "CreateInvoices")
	if !ok {
		return
	}
	resp, err := h.Service.CreateInvoicesBatch(r.Context(), body)
	h.relay(w, "CreateInvoices", resp, err)
}

func (h *Handler) UpdateInvoices(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "UpdateInvoices: received request")
	body, ok := h.readXML(w, r, "UpdateInvoices")
	if !ok {
		return
	}
	resp, err := h.Service.UpdateInvoices(r.Context(), body)
	h.relay(w, "UpdateInvoices", resp, err)
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceId")
	h.Logger.Info("API", fmt.Sprintf("UpdateInvoice: received request for %s", invoiceID))
	body, ok := h.readXML(w, r, "UpdateInvoice")
	if !ok {
		return
	}
	resp, err := h.Service.UpdateInvoice(r.Context(), invoiceID, body)
	h.relay(w, "UpdateInvoice", resp, err)
}

func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceId")
	h.Logger.Info("API", fmt.Sprintf("DownloadPDF: received request for %s", invoiceID))

	pdf, err := h.Service.DownloadInvoicePDF(r.Context(), invoiceID)
	if err != nil {
		h.fail(w, "DownloadPDF", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", invoiceID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DownloadPDF: write failed: %v", err))
	}
}

func (h *Handler) readXML(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestXML))
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("%s: failed to read body: %v", op, err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return "", false
	}
	return string(data), true
}

// relay passes Xero's own status and body back to the caller.
func (h *Handler) relay(w http.ResponseWriter, op string, resp *invoicing.Response, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: write failed: %v", op, err))
	}
	h.Logger.Info("API", fmt.Sprintf("%s: xero answered %d", op, resp.StatusCode))
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, invoicing.ErrEmptyRequest), errors.Is(err, invoicing.ErrMissingInvoice):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid invoice request", err)
	case errors.Is(err, invoicing.ErrDiagnostics):
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusServiceUnavailable, "Invoicing is not configured", err)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}
