package printer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/adcondev/print-bridge/internal/logging"
)

const defaultSumatraPath = "SumatraPDF.exe"

// nativeSpoolWait bounds how long PrintNative waits for the shell handler.
// It stays below DefaultCommandTimeout.
const nativeSpoolWait = 10 * time.Second

// Windows drives printers through PowerShell printer-management cmdlets, wmic and
// SumatraPDF.
type Windows struct {
	runner      Runner
	sumatraPath string
}

// NewWindows creates the Windows platform.
func NewWindows(runner Runner, sumatraPath string) *Windows {
	if sumatraPath == "" {
		sumatraPath = defaultSumatraPath
	}
	return &Windows{runner: runner, sumatraPath: sumatraPath}
}

// Name identifies the platform in logs and health output.
func (w *Windows) Name() string { return "windows" }

func (w *Windows) powershell(ctx context.Context, script string) ([]byte, error) {
	return w.runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// psQuote renders s as a single-quoted PowerShell literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ListPrinters prefers the CIM query and falls back to wmic.
func (w *Windows) ListPrinters(ctx context.Context) []Descriptor {
	out, err := w.powershell(ctx, "Get-CimInstance -ClassName Win32_Printer | Select-Object Name,Default | ConvertTo-Json -Compress")
	if err == nil {
		printers, perr := ParseWin32Printers(out)
		if perr == nil {
			return printers
		}
		logging.Warn("Unparseable Win32_Printer output, falling back to wmic", "error", perr)
	} else {
		logging.Warn("Win32_Printer query failed, falling back to wmic", "error", err)
	}

	out, err = w.runner.Run(ctx, "wmic", "printer", "get", "Default,Name")
	if err != nil {
		logging.Warn("wmic printer query failed", "error", err)
		return []Descriptor{}
	}
	return ParseWmicPrinters(string(out))
}

type winPrinter struct {
	Name         string `json:"Name"`
	PortName     string `json:"PortName"`
	ComputerName string `json:"ComputerName"`
	ShareName    string `json:"ShareName"`
}

type winPort struct {
	Name               string `json:"Name"`
	PrinterHostAddress string `json:"PrinterHostAddress"`
}

// ResolveEndpoint tries the port's host address, then an address encoded in the
// port name, then the hosting machine of a shared queue.
func (w *Windows) ResolveEndpoint(ctx context.Context, name string) *Endpoint {
	if name == "" {
		name = DefaultName(w.ListPrinters(ctx))
		if name == "" {
			return nil
		}
	}

	info := winPrinter{Name: name}
	out, err := w.powershell(ctx, fmt.Sprintf(
		"Get-Printer -Name %s | Select-Object Name,PortName,ComputerName,ShareName | ConvertTo-Json -Compress", psQuote(name)))
	if err != nil {
		logging.Warn("Get-Printer failed", "printer", name, "error", err)
	} else if list, perr := decodeJSONList[winPrinter](out); perr != nil {
		logging.Warn("Unparseable Get-Printer output", "printer", name, "error", perr)
	} else if len(list) > 0 {
		info = list[0]
	}

	if info.PortName != "" {
		if ip := w.portHostAddress(ctx, info.PortName); ip != "" {
			logging.Debug("Endpoint resolved from port host address", "printer", name, "host", ip)
			return NewNetworkEndpoint(ip, DefaultIPPPort, DefaultIPPPath)
		}
		if ip := ExtractIPv4(info.PortName); ip != "" {
			logging.Debug("Endpoint resolved from port name", "printer", name, "port", info.PortName)
			return NewNetworkEndpoint(ip, DefaultIPPPort, DefaultIPPPath)
		}
	}

	if server, share, ok := sharedQueue(info); ok {
		logging.Debug("Endpoint resolved from shared queue", "printer", name, "server", server)
		return NewNetworkEndpoint(server, DefaultIPPPort, "/printers/"+url.PathEscape(share))
	}
	return nil
}

func (w *Windows) portHostAddress(ctx context.Context, port string) string {
	out, err := w.powershell(ctx, fmt.Sprintf(
		"Get-PrinterPort -Name %s | Select-Object Name,PrinterHostAddress | ConvertTo-Json -Compress", psQuote(port)))
	if err != nil {
		logging.Debug("Get-PrinterPort failed", "port", port, "error", err)
		return ""
	}
	ports, err := decodeJSONList[winPort](out)
	if err != nil || len(ports) == 0 {
		return ""
	}
	return ExtractIPv4(ports[0].PrinterHostAddress)
}

func sharedQueue(p winPrinter) (server, share string, ok bool) {
	if server, share, ok = splitSharedQueue(p.Name); ok {
		return server, share, true
	}
	server = strings.TrimPrefix(strings.TrimSpace(p.ComputerName), `\\`)
	if server == "" {
		return "", "", false
	}
	share = p.ShareName
	if share == "" {
		share = p.Name
	}
	return server, share, true
}

// PrintNative asks the shell to print the file through its registered handler.
// The handler gets at most nativeSpoolWait to exit; one still running after
// that, as PDF viewers usually are, is not a failure.
func (w *Windows) PrintNative(ctx context.Context, printerName, path string) error {
	start := fmt.Sprintf("Start-Process -FilePath %s -Verb Print -WindowStyle Hidden -PassThru", psQuote(path))
	if printerName != "" {
		start = fmt.Sprintf("Start-Process -FilePath %s -Verb PrintTo -ArgumentList %s -WindowStyle Hidden -PassThru",
			psQuote(path), psQuote(`"`+printerName+`"`))
	}
	script := fmt.Sprintf("$p = %s; if ($p) { [void]$p.WaitForExit(%d) }", start, nativeSpoolWait.Milliseconds())
	_, err := w.powershell(ctx, script)
	return err
}

// PrintUtility prints silently through SumatraPDF.
func (w *Windows) PrintUtility(ctx context.Context, printerName, path string) error {
	args := []string{"-print-to-default", "-silent", path}
	if printerName != "" {
		args = []string{"-print-to", printerName, "-silent", path}
	}
	_, err := w.runner.Run(ctx, w.sumatraPath, args...)
	return err
}

// OpenDefault opens the file with its associated application.
func (w *Windows) OpenDefault(ctx context.Context, path string) error {
	_, err := w.runner.Run(ctx, "cmd", "/c", "start", "", path)
	return err
}
