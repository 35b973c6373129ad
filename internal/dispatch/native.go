package dispatch

import (
	"context"

	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// NativeChannel prints through the operating system's own print command.
type NativeChannel struct {
	spooler printer.Spooler
	temp    *TempStore
}

// NewNativeChannel creates the native command channel.
func NewNativeChannel(spooler printer.Spooler, temp *TempStore) *NativeChannel {
	return &NativeChannel{spooler: spooler, temp: temp}
}

// Name implements Channel.
func (c *NativeChannel) Name() string { return ChannelNative }

// Applicable implements Channel.
func (c *NativeChannel) Applicable(*Job) bool { return true }

// Print implements Channel.
func (c *NativeChannel) Print(ctx context.Context, job *Job) error {
	path, cleanup, err := c.temp.Write(job.Document)
	if err != nil {
		return printer.Errorf(printer.KindLocalPrintFailed, err, "preparing document")
	}
	defer cleanup()

	if err := c.spooler.PrintNative(ctx, job.Printer, path); err != nil {
		return printer.Errorf(printer.KindLocalPrintFailed, err, "native print to %s", job.PrinterLabel())
	}
	logging.Info("Native print command completed", "job_id", job.ID, "printer", job.PrinterLabel())
	return nil
}
