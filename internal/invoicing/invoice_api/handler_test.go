package invoice_api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ms-scheduling/internal/invoicing"
	"ms-scheduling/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) CreateInvoicesBatch(ctx context.Context, requestXML string) (*invoicing.Response, error) {
	args := m.Called(requestXML)
	resp, _ := args.Get(0).(*invoicing.Response)
	return resp, args.Error(1)
}

func (m *MockInvoiceService) UpdateInvoices(ctx context.Context, requestXML string) (*invoicing.Response, error) {
	args := m.Called(requestXML)
	resp, _ := args.Get(0).(*invoicing.Response)
	return resp, args.Error(1)
}

func (m *MockInvoiceService) UpdateInvoice(ctx context.Context, invoiceID, requestXML string) (*invoicing.Response, error) {
	args := m.Called(invoiceID, requestXML)
	resp, _ := args.Get(0).(*invoicing.Response)
	return resp, args.Error(1)
}

func (m *MockInvoiceService) DownloadInvoicePDF(ctx context.Context, invoiceID string) ([]byte, error) {
	args := m.Called(invoiceID)
	pdf, _ := args.Get(0).([]byte)
	return pdf, args.Error(1)
}

func setupRouter(svc *MockInvoiceService) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, logger.Discard()).Mount(r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateInvoices_RelaysXeroReply(t *testing.T) {
	svc := new(MockInvoiceService)
	svc.On("CreateInvoicesBatch", "<Invoices/>").
		Return(&invoicing.Response{StatusCode: http.StatusOK, ContentType: "application/json", Body: []byte(`{"Status":"OK"}`)}, nil)

	rec := do(setupRouter(svc), http.MethodPost, "/invoices", "<Invoices/>")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Status":"OK"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestUpdateInvoices_PassesXeroValidationStatus(t *testing.T) {
	svc := new(MockInvoiceService)
	svc.On("UpdateInvoices", "<Invoices/>").
		Return(&invoicing.Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"Type":"ValidationException"}`)}, nil)

	rec := do(setupRouter(svc), http.MethodPost, "/invoices/update", "<Invoices/>")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestUpdateInvoice_Route(t *testing.T) {
	svc := new(MockInvoiceService)
	svc.On("UpdateInvoice", "inv-1", "<Invoice/>").
		Return(&invoicing.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil)

	rec := do(setupRouter(svc), http.MethodPost, "/invoices/inv-1", "<Invoice/>")

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestInvoiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty body", invoicing.ErrEmptyRequest, http.StatusBadRequest},
		{"diagnostics", fmt.Errorf("%w: consumer key is not set", invoicing.ErrDiagnostics), http.StatusServiceUnavailable},
		{"transport", fmt.Errorf("xero PUT Invoices: connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInvoiceService)
			svc.On("CreateInvoicesBatch", "").Return(nil, tt.err)

			rec := do(setupRouter(svc), http.MethodPost, "/invoices", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDownloadPDF(t *testing.T) {
	svc := new(MockInvoiceService)
	svc.On("DownloadInvoicePDF", "inv-7").Return([]byte("%PDF"), nil)
	svc.On("DownloadInvoicePDF", "inv-8").Return(nil, invoicing.ErrUnexpectedReply)
	h := setupRouter(svc)

	rec := do(h, http.MethodGet, "/invoices/inv-7/pdf", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=inv-7.pdf", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String())

	rec = do(h, http.MethodGet, "/invoices/inv-8/pdf", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
