package printer

import (
	"context"
	"net/url"

	"github.com/adcondev/print-bridge/internal/logging"
)

// CUPS drives printers through the lpstat, lp and lpr commands.
type CUPS struct {
	runner Runner
	opener string
}

// NewCUPS creates the CUPS platform. opener is the command that opens a file
// with the desktop's default handler.
func NewCUPS(runner Runner, opener string) *CUPS {
	if opener == "" {
		opener = "xdg-open"
	}
	return &CUPS{runner: runner, opener: opener}
}

// Name identifies the platform in logs and health output.
func (c *CUPS) Name() string { return "cups" }

// ListPrinters parses `lpstat -p` for names and `lpstat -d` for the default.
func (c *CUPS) ListPrinters(ctx context.Context) []Descriptor {
	out, err := c.runner.Run(ctx, "lpstat", "-p")
	if err != nil {
		logging.Warn("lpstat -p failed", "error", err)
		return []Descriptor{}
	}
	names := ParseLpstatPrinters(string(out))

	def := ""
	if dout, derr := c.runner.Run(ctx, "lpstat", "-d"); derr == nil {
		def = ParseLpstatDefault(string(dout))
	} else {
		logging.Debug("lpstat -d failed, assuming no default", "error", derr)
	}

	printers := make([]Descriptor, 0, len(names))
	for _, n := range names {
		printers = append(printers, Descriptor{Name: n, IsDefault: n == def})
	}
	return printers
}

// ResolveEndpoint points at the local CUPS scheduler, which accepts IPP for every queue.
func (c *CUPS) ResolveEndpoint(ctx context.Context, name string) *Endpoint {
	if name == "" {
		name = DefaultName(c.ListPrinters(ctx))
		if name == "" {
			return nil
		}
	}
	return NewNetworkEndpoint("localhost", DefaultIPPPort, "/printers/"+url.PathEscape(name))
}

// PrintNative submits the file with lp.
func (c *CUPS) PrintNative(ctx context.Context, printerName, path string) error {
	args := []string{}
	if printerName != "" {
		args = append(args, "-d", printerName)
	}
	_, err := c.runner.Run(ctx, "lp", append(args, path)...)
	return err
}

// PrintUtility submits the file with lpr.
func (c *CUPS) PrintUtility(ctx context.Context, printerName, path string) error {
	args := []string{}
	if printerName != "" {
		args = append(args, "-P", printerName)
	}
	_, err := c.runner.Run(ctx, "lpr", append(args, path)...)
	return err
}

// OpenDefault hands the file to the desktop opener.
func (c *CUPS) OpenDefault(ctx context.Context, path string) error {
	_, err := c.runner.Run(ctx, c.opener, path)
	return err
}
