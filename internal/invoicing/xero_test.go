package invoicing

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ms-scheduling/internal/config"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchXML = `<Invoices><Invoice><Type>ACCREC</Type><Contact><Name>Acme</Name></Contact></Invoice></Invoices>`

type recordingDispatcher struct {
	jobs []models.EmailJob
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, job models.EmailJob) error {
	d.jobs = append(d.jobs, job)
	return nil
}

func writeKey(t *testing.T, pkcs8 bool) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}
	path := filepath.Join(t.TempDir(), "privatekey.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func newTestClient(t *testing.T, baseURL string) (*Client, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	c := NewClient(config.XeroConfig{
		BaseURL:        baseURL + "/api.xro/2.0/",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		PrivateKeyPath: writeKey(t, false),
		PDFDir:         filepath.Join(t.TempDir(), "invoices"),
		Timeout:        5 * time.Second,
	}, d, []string{"accounts@studio.test"}, logger.Discard())
	return c, d
}

type captured struct {
	method string
	path   string
	auth   string
	accept string
	body   string
}

func xeroServer(t *testing.T, status int, contentType, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.accept = r.Header.Get("Accept")
		got.body = string(body)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestCreateInvoicesBatch_SignsWithRSA(t *testing.T) {
	srv, got := xeroServer(t, http.StatusOK, "application/json", `{"Status":"OK"}`)
	c, _ := newTestClient(t, srv.URL)

	resp, err := c.CreateInvoicesBatch(context.Background(), batchXML)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"Status":"OK"}`, string(resp.Body))
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api.xro/2.0/Invoices", got.path)
	assert.Equal(t, batchXML, got.body)
	assert.Equal(t, "application/json", got.accept)
	assert.True(t, strings.HasPrefix(got.auth, "OAuth "), got.auth)
	assert.Contains(t, got.auth, `oauth_signature_method="RSA-SHA1"`)
	assert.Contains(t, got.auth, `oauth_consumer_key="ck"`)
	assert.Contains(t, got.auth, `oauth_token="ck"`)
}

func TestUpdateInvoices(t *testing.T) {
	srv, got := xeroServer(t, http.StatusBadRequest, "application/json", `{"Type":"ValidationException"}`)
	c, _ := newTestClient(t, srv.URL)

	resp, err := c.UpdateInvoices(context.Background(), batchXML)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api.xro/2.0/Invoices", got.path)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateInvoice(t *testing.T) {
	srv, got := xeroServer(t, http.StatusOK, "application/json", `{}`)
	c, _ := newTestClient(t, srv.URL)

	_, err := c.UpdateInvoice(context.Background(), "inv-123", `<Invoice><Status>AUTHORISED</Status></Invoice>`)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api.xro/2.0/Invoices/inv-123", got.path)

	_, err = c.UpdateInvoice(context.Background(), " ", batchXML)
	assert.ErrorIs(t, err, ErrMissingInvoice)
}

func TestCallInvoices_DiagnosticsFailureSendsEmail(t *testing.T) {
	srv, got := xeroServer(t, http.StatusOK, "application/json", `{}`)
	c, d := newTestClient(t, srv.URL)
	c.PrivateKeyPath = filepath.Join(t.TempDir(), "missing.pem")
	c.ConsumerSecret = ""

	_, err := c.CreateInvoicesBatch(context.Background(), batchXML)
	require.ErrorIs(t, err, ErrDiagnostics)
	assert.Contains(t, err.Error(), "consumer secret is not set")
	assert.Empty(t, got.method)

	require.Len(t, d.jobs, 1)
	assert.Equal(t, "XERO invoicing error", d.jobs[0].Subject)
	assert.Equal(t, models.EmailKindInvoicingError, d.jobs[0].Kind)
	assert.Equal(t, []string{"accounts@studio.test"}, d.jobs[0].To)
	assert.Contains(t, d.jobs[0].Body, batchXML)
}

func TestCallInvoices_EmptyBody(t *testing.T) {
	c, d := newTestClient(t, "http://xero.invalid")
	_, err := c.CreateInvoicesBatch(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyRequest)
	assert.Empty(t, d.jobs)
}

func TestDownloadInvoicePDFToDir(t *testing.T) {
	srv, got := xeroServer(t, http.StatusOK, "application/pdf", "%PDF-1.4 invoice")
	c, _ := newTestClient(t, srv.URL)

	path, err := c.DownloadInvoicePDFToDir(context.Background(), "inv-9")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(c.PDFDir, "inv-9.pdf"), path)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "application/pdf", got.accept)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 invoice", string(data))
}

func TestDownloadInvoicePDF_NotFound(t *testing.T) {
	srv, _ := xeroServer(t, http.StatusNotFound, "text/plain", "missing")
	c, _ := newTestClient(t, srv.URL)

	_, err := c.DownloadInvoicePDF(context.Background(), "inv-0")
	assert.ErrorIs(t, err, ErrUnexpectedReply)
}

func TestLoadPrivateKey(t *testing.T) {
	key, err := LoadPrivateKey(writeKey(t, true))
	require.NoError(t, err)
	assert.NotNil(t, key)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o600))
	_, err = LoadPrivateKey(bad)
	assert.Error(t, err)

	_, err = LoadPrivateKey("")
	assert.Error(t, err)
}

func TestDiagnostics(t *testing.T) {
	c, _ := newTestClient(t, "https://api.xero.com")
	assert.Empty(t, c.Diagnostics())

	c.BaseURL = "api.xero.com"
	c.ConsumerKey = ""
	problems := c.Diagnostics()
	assert.Len(t, problems, 2)
}
