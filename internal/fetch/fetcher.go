// Package fetch downloads documents on behalf of the browser session that asked
// for them to be printed.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// Defaults applied by NewFetcher for zero-valued Config fields.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept    = "application/pdf,*/*"
	DefaultMinBytes  = 100
	DefaultMaxBytes  = 64 << 20
	DefaultTimeout   = 30 * time.Second
)

// Credential is one browser cookie forwarded by the extension.
type Credential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Document is a fetched payload. ContentType is advisory only.
type Document struct {
	URL         string
	ContentType string
	Data        []byte
}

// IsPDF reports whether the declared type or the magic bytes indicate a PDF.
func (d *Document) IsPDF() bool {
	if mt, _, err := mime.ParseMediaType(d.ContentType); err == nil && mt == "application/pdf" {
		return true
	}
	return len(d.Data) >= 5 && string(d.Data[:5]) == "%PDF-"
}

// Config holds fetcher settings
type Config struct {
	UserAgent string
	MinBytes  int
	MaxBytes  int64
	Timeout   time.Duration
}

// Fetcher retrieves documents over HTTP.
type Fetcher struct {
	client *http.Client
	cfg    Config
}

// NewFetcher creates a fetcher. A nil client gets one bounded by cfg.Timeout.
func NewFetcher(client *http.Client, cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{client: client, cfg: cfg}
}

// CookieHeader joins credentials as name=value pairs separated by "; ", in input order.
func CookieHeader(creds []Credential) string {
	parts := make([]string, 0, len(creds))
	for _, c := range creds {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Fetch downloads url with the given cookies.
func (f *Fetcher) Fetch(ctx context.Context, url string, creds []Credential) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, printer.Errorf(printer.KindFetchFailed, err, "invalid document URL")
	}
	if cookie := CookieHeader(creds); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	req.Header.Set("Accept", DefaultAccept)
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	logging.Debug("Fetching document", "url", url, "cookies", len(creds))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, printer.Errorf(printer.KindFetchFailed, err, "fetching document")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug("Error closing response body", "error", cerr)
		}
	}()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := printer.Errorf(printer.KindFetchFailed, nil, "document server returned HTTP status %d", resp.StatusCode)
		e.Status = resp.StatusCode
		return nil, e
	}
	if readErr != nil {
		return nil, printer.Errorf(printer.KindFetchFailed, readErr, "reading document body")
	}

	if len(body) < f.cfg.MinBytes {
		return nil, printer.Errorf(printer.KindInvalidDocument, nil,
			"document is too small (%d bytes), likely empty or invalid", len(body))
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, printer.Errorf(printer.KindInvalidDocument, nil,
			"document exceeds %d bytes", f.cfg.MaxBytes)
	}

	doc := &Document{URL: url, ContentType: resp.Header.Get("Content-Type"), Data: body}
	if !doc.IsPDF() {
		logging.Warn("Document does not look like a PDF", "url", url, "content_type", doc.ContentType)
	}

	logging.Info("Document fetched", "url", url, "size", len(body), "status", resp.StatusCode)
	return doc, nil
}

// String is used in logs.
func (d *Document) String() string {
	return fmt.Sprintf("%s (%d bytes, %q)", d.URL, len(d.Data), d.ContentType)
}
