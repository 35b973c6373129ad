package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		env         string
		wantName    string
		wantAddr    string
		wantProbe   bool
		wantOrigins []string
	}{
		{"local", "LOCAL", "localhost:" + ServerPort, true, []string{"*"}},
		{"remote", "REMOTE", "0.0.0.0:" + ServerPort, true,
			[]string{"chrome-extension://*", "http://localhost:*", "https://localhost:*"}},
		{"unknown_env", "LOCAL", "localhost:" + ServerPort, true, []string{"*"}},
		{"", "LOCAL", "localhost:" + ServerPort, true, []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			got := GetEnvironment(tt.env)

			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantAddr, got.ListenAddr)
			assert.Equal(t, tt.wantProbe, got.ProbeEndpoints)
			assert.Equal(t, tt.wantOrigins, got.AllowedOrigins)
			assert.Equal(t, []string{"ipp", "native", "fallback"}, got.ChannelOrder)
			assert.Equal(t, 100, got.MinDocumentBytes)
			assert.Equal(t, "print-bridge", got.RequestingUser)
			assert.Empty(t, got.Endpoints)
			require.NoError(t, got.Validate())
		})
	}
}

func TestGetEnvironment_ReturnsCopies(t *testing.T) {
	a := GetEnvironment("remote")
	a.ChannelOrder[0] = "fallback"
	a.AllowedOrigins[0] = "http://evil.example"

	b := GetEnvironment("remote")
	assert.Equal(t, "ipp", b.ChannelOrder[0])
	assert.Equal(t, "chrome-extension://*", b.AllowedOrigins[0])
}

func TestGetEnvironment_AllowedOriginsFromBuild(t *testing.T) {
	saved := AllowedOrigins
	t.Cleanup(func() { AllowedOrigins = saved })

	AllowedOrigins = "chrome-extension://abc*,http://localhost:*"
	got := GetEnvironment("remote")
	assert.Equal(t, []string{"chrome-extension://abc*", "http://localhost:*"}, got.AllowedOrigins)
}

func TestEnvironment_WriteTimeoutCoversDispatch(t *testing.T) {
	for _, env := range []string{"local", "remote"} {
		cfg := GetEnvironment(env)
		assert.GreaterOrEqual(t, cfg.WriteTimeout, cfg.DispatchBudget()+WriteMargin, env)
	}
}

func TestEnvironment_DispatchBudget(t *testing.T) {
	cfg := Environment{
		FetchTimeout:   30 * time.Second,
		ChannelTimeout: 30 * time.Second,
		CommandTimeout: 20 * time.Second,
		ChannelOrder:   []string{"ipp", "native", "fallback"},
	}
	assert.Equal(t, 200*time.Second, cfg.DispatchBudget())

	cfg.ChannelOrder = []string{"native"}
	assert.Equal(t, 140*time.Second, cfg.DispatchBudget())
}

func TestEnvironment_EndpointFor(t *testing.T) {
	cfg := Environment{Endpoints: []PrinterEndpoint{
		{Printer: "Front Desk", Host: "10.0.0.5"},
		{Printer: "Label", Host: "print-srv", Port: 8631, Path: "printers/label"},
	}}

	ep := cfg.EndpointFor("front desk")
	require.NotNil(t, ep)
	assert.Equal(t, "10.0.0.5:631", ep.Address())
	assert.Equal(t, "/ipp/print", ep.Path)

	ep = cfg.EndpointFor("Label")
	require.NotNil(t, ep)
	assert.Equal(t, "ipp://print-srv:8631/printers/label", ep.PrinterURI())

	assert.Nil(t, cfg.EndpointFor("Basement"))
	assert.Nil(t, cfg.EndpointFor(""))
}

func TestEnvironment_LogPath(t *testing.T) {
	env := Environment{ServiceName: "PrintBridge"}
	programData := "/var/lib"

	assert.Equal(t, filepath.Join(programData, "PrintBridge", "PrintBridge.log"), env.LogPath(programData))
}
