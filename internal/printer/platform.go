package printer

import (
	"context"
	"runtime"
	"time"
)

// Directory enumerates printers known to the host. It never fails: an empty list
// means "no information", not "no printers".
type Directory interface {
	ListPrinters(ctx context.Context) []Descriptor
}

// Resolver finds a network printing endpoint for a printer name, or nil.
type Resolver interface {
	ResolveEndpoint(ctx context.Context, name string) *Endpoint
}

// Spooler runs the platform's local print mechanisms against a file on disk.
// An empty printer name targets the system default.
type Spooler interface {
	PrintNative(ctx context.Context, printerName, path string) error
	PrintUtility(ctx context.Context, printerName, path string) error
	OpenDefault(ctx context.Context, path string) error
}

// Platform bundles the host-specific printer capabilities.
type Platform interface {
	Name() string
	Directory
	Resolver
	Spooler
}

// Options selects and configures a platform.
type Options struct {
	GOOS           string // defaults to runtime.GOOS
	Runner         Runner // defaults to an ExecRunner bounded by CommandTimeout
	CommandTimeout time.Duration
	SumatraPath    string
}

// Detect picks the platform implementation once, at start-up.
func Detect(opts Options) Platform {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	runner := opts.Runner
	if runner == nil {
		r := ExecRunner{Timeout: opts.CommandTimeout}
		if goos != "windows" {
			// lpstat output is parsed, keep it in the C locale
			r.Env = []string{"LC_ALL=C"}
		}
		runner = r
	}

	switch goos {
	case "windows":
		return NewWindows(runner, opts.SumatraPath)
	case "darwin":
		return NewCUPS(runner, "open")
	default:
		return NewCUPS(runner, "xdg-open")
	}
}
