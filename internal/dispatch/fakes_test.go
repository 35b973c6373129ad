package dispatch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/OpenPrinting/goipp"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/print-bridge/internal/fetch"
	"github.com/adcondev/print-bridge/internal/printer"
)

func testDoc(n int) *fetch.Document {
	data := []byte("%PDF-1.7\n")
	for len(data) < n {
		data = append(data, 'x')
	}
	return &fetch.Document{URL: "https://site/doc.pdf", ContentType: "application/pdf", Data: data[:n]}
}

type fakeDirectory struct {
	mu       sync.Mutex
	printers []printer.Descriptor
	calls    int
}

func (f *fakeDirectory) ListPrinters(context.Context) []printer.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]printer.Descriptor, len(f.printers))
	copy(out, f.printers)
	return out
}

type fakeResolver struct {
	mu       sync.Mutex
	endpoint *printer.Endpoint
	calls    int
}

func (f *fakeResolver) ResolveEndpoint(context.Context, string) *printer.Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.endpoint
}

type fakeFetcher struct {
	mu    sync.Mutex
	doc   *fetch.Document
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string, []fetch.Credential) (*fetch.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.doc, f.err
}

// fakeSpooler records calls and whether the temp file existed when it was called.
type fakeSpooler struct {
	mu         sync.Mutex
	nativeErr  error
	utilityErr error
	openErr    error
	calls      []string
	paths      []string
	missing    bool
}

func (s *fakeSpooler) record(kind, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, kind)
	s.paths = append(s.paths, path)
	if _, err := os.Stat(path); err != nil {
		s.missing = true
	}
}

func (s *fakeSpooler) PrintNative(_ context.Context, _ string, path string) error {
	s.record("native", path)
	return s.nativeErr
}

func (s *fakeSpooler) PrintUtility(_ context.Context, _ string, path string) error {
	s.record("utility", path)
	return s.utilityErr
}

func (s *fakeSpooler) OpenDefault(_ context.Context, path string) error {
	s.record("open", path)
	return s.openErr
}

func (s *fakeSpooler) callList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ippServer is a minimal IPP printer.
type ippServer struct {
	*httptest.Server
	mu         sync.Mutex
	status     goipp.Status
	httpStatus int
	requests   []*goipp.Message
	documents  [][]byte
}

func newIPPServer(t *testing.T, status goipp.Status) *ippServer {
	t.Helper()
	s := &ippServer{status: status}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *ippServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.httpStatus != 0 {
		w.WriteHeader(s.httpStatus)
		return
	}
	if r.Header.Get("Content-Type") != goipp.ContentType {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}
	m := &goipp.Message{}
	if err := m.Decode(r.Body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	doc, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, m)
	s.documents = append(s.documents, doc)
	s.mu.Unlock()

	rsp := goipp.NewResponse(goipp.DefaultVersion, s.status, m.RequestID)
	rsp.Operation.Add(goipp.MakeAttribute("attributes-charset", goipp.TagCharset, goipp.String("utf-8")))
	rsp.Operation.Add(goipp.MakeAttribute("attributes-natural-language", goipp.TagLanguage, goipp.String("en-US")))
	w.Header().Set("Content-Type", goipp.ContentType)
	_ = rsp.Encode(w)
}

func (s *ippServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *ippServer) endpoint(t *testing.T) *printer.Endpoint {
	t.Helper()
	return endpointFor(t, s.URL)
}

func endpointFor(t *testing.T, rawURL string) *printer.Endpoint {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return printer.NewNetworkEndpoint(host, port, printer.DefaultIPPPath)
}

func operationAttr(m *goipp.Message, name string) string {
	for _, a := range m.Operation {
		if a.Name == name && len(a.Values) > 0 {
			return a.Values[0].V.String()
		}
	}
	return ""
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}
