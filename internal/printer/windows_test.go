package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows_ListPrinters_StructuredQuery(t *testing.T) {
	r := (&fakeRunner{}).on("Win32_Printer", `[{"Name":"Office-Printer","Default":true},{"Name":"PDF","Default":false}]`, nil)
	w := NewWindows(r, "")

	got := w.ListPrinters(context.Background())
	assert.Equal(t, []Descriptor{{Name: "Office-Printer", IsDefault: true}, {Name: "PDF"}}, got)
	assert.False(t, r.called("wmic"))
}

func TestWindows_ListPrinters_FallsBackToWmic(t *testing.T) {
	r := (&fakeRunner{}).
		on("Win32_Printer", "", errors.New("powershell: not recognized")).
		on("wmic printer get", "Default  Name\r\nTRUE     Office-Printer\r\n", nil)
	w := NewWindows(r, "")

	got := w.ListPrinters(context.Background())
	assert.Equal(t, []Descriptor{{Name: "Office-Printer", IsDefault: true}}, got)
}

func TestWindows_ListPrinters_FailSoft(t *testing.T) {
	r := (&fakeRunner{}).
		on("Win32_Printer", "", errors.New("boom")).
		on("wmic", "", errors.New("wmic: not found"))
	w := NewWindows(r, "")

	got := w.ListPrinters(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWindows_ResolveEndpoint_FromPortHostAddress(t *testing.T) {
	r := (&fakeRunner{}).
		on("Get-Printer -Name 'Office'", `{"Name":"Office","PortName":"WSD-7b1c","ComputerName":"","ShareName":""}`, nil).
		on("Get-PrinterPort -Name 'WSD-7b1c'", `{"Name":"WSD-7b1c","PrinterHostAddress":"192.168.1.40"}`, nil)
	w := NewWindows(r, "")

	e := w.ResolveEndpoint(context.Background(), "Office")
	require.NotNil(t, e)
	assert.Equal(t, "192.168.1.40", e.Host)
	assert.Equal(t, 631, e.Port)
	assert.Equal(t, "/ipp/print", e.Path)
}

func TestWindows_ResolveEndpoint_FromPortName(t *testing.T) {
	r := (&fakeRunner{}).
		on("Get-Printer -Name", `{"Name":"Office","PortName":"IP_10.0.0.7"}`, nil).
		on("Get-PrinterPort", `{"Name":"IP_10.0.0.7","PrinterHostAddress":""}`, nil)
	w := NewWindows(r, "")

	e := w.ResolveEndpoint(context.Background(), "Office")
	require.NotNil(t, e)
	assert.Equal(t, "10.0.0.7", e.Host)
}

func TestWindows_ResolveEndpoint_SharedQueue(t *testing.T) {
	r := (&fakeRunner{}).
		on("Get-Printer -Name", `{"Name":"\\\\printsrv\\Floor 2","PortName":"USB001","ComputerName":"printsrv","ShareName":"Floor 2"}`, nil).
		on("Get-PrinterPort", `{"Name":"USB001","PrinterHostAddress":null}`, nil)
	w := NewWindows(r, "")

	e := w.ResolveEndpoint(context.Background(), `\\printsrv\Floor 2`)
	require.NotNil(t, e)
	assert.Equal(t, "printsrv", e.Host)
	assert.Equal(t, "/printers/Floor%202", e.Path)
}

func TestWindows_ResolveEndpoint_NoneForLocalUSB(t *testing.T) {
	r := (&fakeRunner{}).
		on("Get-Printer -Name", `{"Name":"Label","PortName":"USB001","ComputerName":""}`, nil).
		on("Get-PrinterPort", `{"Name":"USB001"}`, nil)
	w := NewWindows(r, "")

	assert.Nil(t, w.ResolveEndpoint(context.Background(), "Label"))
}

func TestWindows_ResolveEndpoint_SystemErrorIsNone(t *testing.T) {
	r := (&fakeRunner{}).on("Get-Printer", "", errors.New("access denied"))
	w := NewWindows(r, "")

	assert.Nil(t, w.ResolveEndpoint(context.Background(), "Office"))
}

func TestWindows_ResolveEndpoint_DefaultPrinter(t *testing.T) {
	r := (&fakeRunner{}).
		on("Win32_Printer", `[{"Name":"Office","Default":true}]`, nil).
		on("Get-Printer -Name 'Office'", `{"Name":"Office","PortName":"IP_10.0.0.9"}`, nil).
		on("Get-PrinterPort", "", errors.New("no port"))
	w := NewWindows(r, "")

	e := w.ResolveEndpoint(context.Background(), "")
	require.NotNil(t, e)
	assert.Equal(t, "10.0.0.9", e.Host)
}

func TestWindows_PrintCommands(t *testing.T) {
	r := (&fakeRunner{}).
		on("PrintTo", "", nil).
		on("SumatraPDF.exe -print-to Office -silent", "", nil).
		on("cmd /c start", "", nil)
	w := NewWindows(r, "")
	ctx := context.Background()

	require.NoError(t, w.PrintNative(ctx, "Office", `C:\Temp\print-1.pdf`))
	assert.True(t, r.called(`-ArgumentList '"Office"'`))

	require.NoError(t, w.PrintUtility(ctx, "Office", `C:\Temp\print-1.pdf`))
	require.NoError(t, w.OpenDefault(ctx, `C:\Temp\print-1.pdf`))
}

func TestPsQuote(t *testing.T) {
	assert.Equal(t, `'O''Brien''s printer'`, psQuote("O'Brien's printer"))
}

func TestWindows_PrintNativeDoesNotWaitForHandlerExit(t *testing.T) {
	r := (&fakeRunner{}).on("Start-Process", "", nil)
	w := NewWindows(r, "")
	ctx := context.Background()

	require.NoError(t, w.PrintNative(ctx, "", `C:\Temp\print-1.pdf`))
	require.NoError(t, w.PrintNative(ctx, "Office", `C:\Temp\print-2.pdf`))

	require.Len(t, r.calls, 2)
	for _, call := range r.calls {
		assert.NotContains(t, call, "-Wait ")
		assert.False(t, strings.HasSuffix(call, "-Wait"), call)
		assert.Contains(t, call, "-PassThru")
		assert.Contains(t, call, fmt.Sprintf("WaitForExit(%d)", nativeSpoolWait.Milliseconds()))
	}
	assert.Less(t, nativeSpoolWait, DefaultCommandTimeout)
}
