package dispatch

import (
	"context"
	"time"

	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// DefaultOpenGrace is how long a document handed to the default handler stays
// on disk before it is removed.
const DefaultOpenGrace = 2 * time.Minute

// FallbackChannel tries the lightweight print utility, then opens the document
// with the default handler.
type FallbackChannel struct {
	spooler   printer.Spooler
	temp      *TempStore
	openGrace time.Duration
}

// NewFallbackChannel creates the last-resort channel. A non-positive openGrace
// uses DefaultOpenGrace.
func NewFallbackChannel(spooler printer.Spooler, temp *TempStore, openGrace time.Duration) *FallbackChannel {
	if openGrace <= 0 {
		openGrace = DefaultOpenGrace
	}
	return &FallbackChannel{spooler: spooler, temp: temp, openGrace: openGrace}
}

// Name implements Channel.
func (c *FallbackChannel) Name() string { return ChannelFallback }

// Applicable implements Channel.
func (c *FallbackChannel) Applicable(*Job) bool { return true }

// Print implements Channel. The open commands return once the viewer is
// launched, so after a handoff the file is removed openGrace later instead of
// on return.
func (c *FallbackChannel) Print(ctx context.Context, job *Job) error {
	path, cleanup, err := c.temp.Write(job.Document)
	if err != nil {
		return printer.Errorf(printer.KindLocalPrintFailed, err, "preparing document")
	}
	handedOff := false
	defer func() {
		if handedOff {
			time.AfterFunc(c.openGrace, cleanup)
			return
		}
		cleanup()
	}()

	uerr := c.spooler.PrintUtility(ctx, job.Printer, path)
	if uerr == nil {
		logging.Info("Fallback utility printed document", "job_id", job.ID, "printer", job.PrinterLabel())
		return nil
	}
	logging.Warn("Fallback utility failed, opening with default handler", "job_id", job.ID, "error", uerr)

	if err := c.spooler.OpenDefault(ctx, path); err != nil {
		return printer.Errorf(printer.KindLocalPrintFailed, err, "default handler for %s", job.PrinterLabel())
	}
	handedOff = true
	logging.Warn("Document handed to default handler, printing is best-effort and left to the user",
		"job_id", job.ID, "path", path, "removed_after", c.openGrace)
	return nil
}
