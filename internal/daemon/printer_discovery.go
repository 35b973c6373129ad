package daemon

import (
	"context"

	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// PrinterDiscovery reports on the host's printers for health checks and
// start-up diagnostics. Every call queries the platform; nothing is cached.
type PrinterDiscovery struct {
	platform printer.Platform
}

// NewPrinterDiscovery creates a discovery service over platform.
func NewPrinterDiscovery(platform printer.Platform) *PrinterDiscovery {
	return &PrinterDiscovery{platform: platform}
}

// GetPrinters returns a fresh snapshot.
func (pd *PrinterDiscovery) GetPrinters(ctx context.Context) []printer.Descriptor {
	return pd.platform.ListPrinters(ctx)
}

// GetSummary returns a lightweight summary for health checks
func (pd *PrinterDiscovery) GetSummary(ctx context.Context) printer.Summary {
	return printer.Summarize(pd.platform.Name(), pd.GetPrinters(ctx))
}

// LogStartupDiagnostics logs printers and their resolved endpoints at service start
func (pd *PrinterDiscovery) LogStartupDiagnostics(ctx context.Context) {
	printers := pd.GetPrinters(ctx)
	if len(printers) == 0 {
		logging.Warn("No printers reported by the host, selector validation disabled until some appear",
			"platform", pd.platform.Name())
		return
	}

	logging.Info("Printers detected", "platform", pd.platform.Name(), "count", len(printers),
		"default", printer.DefaultName(printers))

	if !logging.GetVerbose() {
		return
	}
	for _, p := range printers {
		ep := pd.platform.ResolveEndpoint(ctx, p.Name)
		logging.Debug("Printer", "name", p.Name, "default", p.IsDefault, "endpoint", ep.String())
	}
}
