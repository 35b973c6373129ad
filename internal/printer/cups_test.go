package printer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lpstatP = `printer Office-Printer is idle.  enabled since Mon 06 Jan 2025
printer Label disabled since Mon 06 Jan 2025 -
`

func TestCUPS_ListPrinters(t *testing.T) {
	r := (&fakeRunner{}).
		on("lpstat -p", lpstatP, nil).
		on("lpstat -d", "system default destination: Label\n", nil)
	c := NewCUPS(r, "")

	got := c.ListPrinters(context.Background())
	assert.Equal(t, []Descriptor{{Name: "Office-Printer"}, {Name: "Label", IsDefault: true}}, got)
}

func TestCUPS_ListPrinters_NoDefault(t *testing.T) {
	r := (&fakeRunner{}).
		on("lpstat -p", lpstatP, nil).
		on("lpstat -d", "", errors.New("exit status 1"))
	c := NewCUPS(r, "")

	got := c.ListPrinters(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "", DefaultName(got))
}

func TestCUPS_ListPrinters_Idempotent(t *testing.T) {
	r := (&fakeRunner{}).
		on("lpstat -p", lpstatP, nil).
		on("lpstat -d", "no system default destination\n", nil)
	c := NewCUPS(r, "")

	first := c.ListPrinters(context.Background())
	second := c.ListPrinters(context.Background())
	assert.ElementsMatch(t, first, second)
}

func TestCUPS_ListPrinters_FailSoft(t *testing.T) {
	r := (&fakeRunner{}).on("lpstat -p", "", errors.New("lpstat: No destinations added."))
	c := NewCUPS(r, "")

	got := c.ListPrinters(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCUPS_ResolveEndpoint(t *testing.T) {
	c := NewCUPS(&fakeRunner{}, "")

	e := c.ResolveEndpoint(context.Background(), "Office Printer")
	require.NotNil(t, e)
	assert.Equal(t, "localhost", e.Host)
	assert.Equal(t, 631, e.Port)
	assert.Equal(t, "/printers/Office%20Printer", e.Path)
}

func TestCUPS_ResolveEndpoint_DefaultOrNone(t *testing.T) {
	withDefault := (&fakeRunner{}).
		on("lpstat -p", lpstatP, nil).
		on("lpstat -d", "system default destination: Label\n", nil)
	e := NewCUPS(withDefault, "").ResolveEndpoint(context.Background(), "")
	require.NotNil(t, e)
	assert.Equal(t, "/printers/Label", e.Path)

	noDefault := (&fakeRunner{}).
		on("lpstat -p", lpstatP, nil).
		on("lpstat -d", "no system default destination\n", nil)
	assert.Nil(t, NewCUPS(noDefault, "").ResolveEndpoint(context.Background(), ""))
}

func TestCUPS_PrintCommands(t *testing.T) {
	r := (&fakeRunner{}).
		on("lp -d Office /tmp/print-1.pdf", "request id is Office-12 (1 file(s))", nil).
		on("lp /tmp/print-2.pdf", "", nil).
		on("lpr -P Office /tmp/print-1.pdf", "", nil).
		on("xdg-open /tmp/print-1.pdf", "", nil)
	c := NewCUPS(r, "")
	ctx := context.Background()

	require.NoError(t, c.PrintNative(ctx, "Office", "/tmp/print-1.pdf"))
	require.NoError(t, c.PrintNative(ctx, "", "/tmp/print-2.pdf"))
	require.NoError(t, c.PrintUtility(ctx, "Office", "/tmp/print-1.pdf"))
	require.NoError(t, c.OpenDefault(ctx, "/tmp/print-1.pdf"))
}

func TestDetect(t *testing.T) {
	assert.Equal(t, "windows", Detect(Options{GOOS: "windows", Runner: &fakeRunner{}}).Name())
	assert.Equal(t, "cups", Detect(Options{GOOS: "linux", Runner: &fakeRunner{}}).Name())
	assert.Equal(t, "cups", Detect(Options{GOOS: "darwin"}).Name())
}
