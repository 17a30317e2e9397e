package invoicing

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ms-scheduling/internal/config"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/mail"
	"ms-scheduling/internal/models"

	"github.com/dghubble/oauth1"
)

const (
	userAgent         = "Studio Invoicing"
	errorEmailSubject = "XERO invoicing error"
)

var (
	ErrDiagnostics     = errors.New("xero configuration failed diagnostics")
	ErrEmptyRequest    = errors.New("empty xero request body")
	ErrMissingInvoice  = errors.New("missing xero invoice identifier")
	ErrUnexpectedReply = errors.New("unexpected xero response")
)

// Response is Xero's raw reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client talks to Xero as a private application: every request is signed with RSA-SHA1 and
// the consumer key doubles as the access token.
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	PrivateKeyPath string
	PDFDir         string
	Timeout        time.Duration
	Mail           mail.Dispatcher
	Recipients     []string
	Logger         *logger.Logger

	// Transport is the unsigned base transport; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

func NewClient(cfg config.XeroConfig, dispatcher mail.Dispatcher, recipients []string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		BaseURL:        cfg.BaseURL,
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		PrivateKeyPath: cfg.PrivateKeyPath,
		PDFDir:         cfg.PDFDir,
		Timeout:        cfg.Timeout,
		Mail:           dispatcher,
		Recipients:     recipients,
		Logger:         log,
	}
}

// ---------------- DIAGNOSTICS ----------------

// Diagnostics lists every configuration problem. An empty result means requests can be signed.
func (c *Client) Diagnostics() []string {
	var problems []string
	if strings.TrimSpace(c.ConsumerKey) == "" {
		problems = append(problems, "consumer key is not set")
	}
	if strings.TrimSpace(c.ConsumerSecret) == "" {
		problems = append(problems, "consumer secret is not set")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("base url %q is not absolute", c.BaseURL))
	}
	if _, err := LoadPrivateKey(c.PrivateKeyPath); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// LoadPrivateKey reads a PEM encoded PKCS#1 or PKCS#8 RSA key.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("rsa private key path is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rsa private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("rsa private key %s is not PEM encoded", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rsa private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key %s is not RSA", path)
	}
	return key, nil
}

// ---------------- INVOICES ----------------

// CreateInvoicesBatch PUTs a batch of invoices.
func (c *Client) CreateInvoicesBatch(ctx context.Context, requestXML string) (*Response, error) {
	return c.callInvoices(ctx, http.MethodPut, requestXML)
}

// UpdateInvoices POSTs a batch of invoice updates.
func (c *Client) UpdateInvoices(ctx context.Context, requestXML string) (*Response, error) {
	return c.callInvoices(ctx, http.MethodPost, requestXML)
}

func (c *Client) callInvoices(ctx context.Context, method, requestXML string) (*Response, error) {
	if strings.TrimSpace(requestXML) == "" {
		return nil, ErrEmptyRequest
	}
	if problems := c.Diagnostics(); len(problems) > 0 {
		c.Logger.LogInvoice("diagnostics", strings.Join(problems, "; "))
		c.sendErrorEmail(ctx, "There are error occur for xml request validation. \n"+requestXML)
		return nil, fmt.Errorf("%w: %s", ErrDiagnostics, strings.Join(problems, "; "))
	}
	return c.do(ctx, method, "Invoices", []byte(requestXML), "application/json")
}

// UpdateInvoice POSTs to a single invoice, e.g. to authorise it.
func (c *Client) UpdateInvoice(ctx context.Context, invoiceID, requestXML string) (*Response, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, ErrMissingInvoice
	}
	if problems := c.Diagnostics(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDiagnostics, strings.Join(problems, "; "))
	}
	return c.do(ctx, http.MethodPost, "Invoices/"+url.PathEscape(invoiceID), []byte(requestXML), "application/json")
}

// DownloadInvoicePDF fetches the rendered PDF of one invoice.
func (c *Client) DownloadInvoicePDF(ctx context.Context, invoiceID string) ([]byte, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, ErrMissingInvoice
	}
	if problems := c.Diagnostics(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDiagnostics, strings.Join(problems, "; "))
	}
	resp, err := c.do(ctx, http.MethodGet, "Invoices/"+url.PathEscape(invoiceID), nil, "application/pdf")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: pdf download returned %d", ErrUnexpectedReply, resp.StatusCode)
	}
	return resp.Body, nil
}

// DownloadInvoicePDFToDir stores the invoice PDF as <PDFDir>/<invoiceID>.pdf and returns its path.
func (c *Client) DownloadInvoicePDFToDir(ctx context.Context, invoiceID string) (string, error) {
	pdf, err := c.DownloadInvoicePDF(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.PDFDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create invoice dir: %w", err)
	}
	path := filepath.Join(c.PDFDir, filepath.Base(invoiceID)+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write invoice pdf: %w", err)
	}
	c.Logger.LogInvoice("pdf", fmt.Sprintf("stored %s", path))
	return path, nil
}

// ---------------- TRANSPORT ----------------

func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	key, err := LoadPrivateKey(c.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	cfg := oauth1.Config{
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
		Signer:         &oauth1.RSASigner{PrivateKey: key},
	}
	// oauth1 only borrows the transport of the context client.
	ctx = context.WithValue(ctx, oauth1.HTTPClient, &http.Client{Transport: c.Transport})
	client := cfg.Client(ctx, oauth1.NewToken(c.ConsumerKey, c.ConsumerSecret))
	client.Timeout = c.Timeout
	return client, nil
}

func (c *Client) do(ctx context.Context, method, resource string, body []byte, accept string) (*Response, error) {
	client, err := c.httpClient(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + resource
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build xero request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.Logger.LogInvoice(strings.ToLower(method), fmt.Sprintf("%s failed: %v", resource, err))
		return nil, fmt.Errorf("xero %s %s: %w", method, resource, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read xero response: %w", err)
	}
	c.Logger.LogInvoice(strings.ToLower(method), fmt.Sprintf("%s -> %d in %s", resource, resp.StatusCode, time.Since(start)))
	return &Response{StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: data}, nil
}

func (c *Client) sendErrorEmail(ctx context.Context, body string) {
	if c.Mail == nil || len(c.Recipients) == 0 {
		c.Logger.Warn("INVOICE", "no invoice notification recipients configured")
		return
	}
	job := models.NewEmailJob(models.EmailKindInvoicingError, errorEmailSubject, body, c.Recipients)
	if err := c.Mail.Dispatch(ctx, job); err != nil {
		c.Logger.Error("INVOICE", fmt.Sprintf("failed to dispatch invoicing error email: %v", err))
	}
}
