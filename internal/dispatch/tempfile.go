package dispatch

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/adcondev/print-bridge/internal/fetch"
	"github.com/adcondev/print-bridge/internal/logging"
)

// TempStore writes documents to disk for the local print commands.
type TempStore struct {
	Dir string // empty uses os.TempDir()
}

// Write stores doc as print-<unix-millis>-<xid>.<ext> and returns its path with a
// cleanup func. cleanup never fails; removal errors are logged.
func (s *TempStore) Write(doc *fetch.Document) (string, func(), error) {
	dir := ""
	if s != nil {
		dir = s.Dir
	}
	if dir == "" {
		dir = os.TempDir()
	}

	name := fmt.Sprintf("print-%d-%s%s", time.Now().UnixMilli(), xid.New().String(), extensionFor(doc))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", func() {}, fmt.Errorf("creating temp file: %w", err)
	}
	_, werr := f.Write(doc.Data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}

	cleanup := func() {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			logging.Warn("Failed to remove temp file", "path", path, "error", rerr)
		}
	}
	if werr != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("writing temp file: %w", werr)
	}

	logging.Debug("Temp file written", "path", path, "size", len(doc.Data))
	return path, cleanup, nil
}

// extensionFor picks the file extension the OS uses to choose a handler.
func extensionFor(doc *fetch.Document) string {
	if doc.IsPDF() || doc.ContentType == "" {
		return ".pdf"
	}
	mt, _, err := mime.ParseMediaType(doc.ContentType)
	if err != nil {
		return ".pdf"
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		return exts[0]
	}
	return ".pdf"
}
