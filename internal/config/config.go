// Package config defines environment-specific settings for the print bridge.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// Build variables, injected at compile time
var (
	BuildEnvironment = "local"
	BuildDate        = "unknown"
	BuildTime        = "unknown"
	// ServiceName is used for logging and as part of the log file path.
	ServiceName = "PrintBridge"
	// TokenHashB64 is a base64-encoded bcrypt hash of the API token injected via ldflags.
	// If empty, print submissions are accepted without a token.
	TokenHashB64 = ""
	// ServerPort is the default port for the service, can be overridden by environment config.
	ServerPort = "3001"
	// AllowedOrigins is a comma-separated list of allowed origins injected via ldflags.
	// Example: "chrome-extension://abcdef*,http://localhost:*"
	AllowedOrigins = ""
)

// PrinterEndpoint maps a printer name to a fixed IPP endpoint.
type PrinterEndpoint struct {
	Printer string `mapstructure:"printer"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Environment holds environment-specific settings
type Environment struct {
	// Identification
	Name        string
	ServiceName string

	// Network
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Queue
	QueueCapacity      int
	Workers            int
	RateLimitPerMinute int

	// Logging
	Verbose       bool
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Printing
	DefaultPrinter   string
	FetchTimeout     time.Duration
	ChannelTimeout   time.Duration
	CommandTimeout   time.Duration
	OpenGrace        time.Duration
	MinDocumentBytes int
	MaxDocumentBytes int64
	UserAgent        string
	TempDir          string
	SumatraPath      string
	RequestingUser   string
	ProbeEndpoints   bool
	ChannelOrder     []string
	Endpoints        []PrinterEndpoint

	// Security
	AllowedOrigins []string
}

// LogPath returns the full log file path for this environment.
// Uses the convention: <programData>/<ServiceName>/<ServiceName>.log
func (e Environment) LogPath(programData string) string {
	return filepath.Join(programData, e.ServiceName, e.ServiceName+".log")
}

// EndpointFor returns the configured endpoint for a printer, or nil.
func (e Environment) EndpointFor(name string) *printer.Endpoint {
	if name == "" {
		return nil
	}
	for _, pe := range e.Endpoints {
		if strings.EqualFold(pe.Printer, name) {
			return printer.NewNetworkEndpoint(pe.Host, pe.Port, pe.Path)
		}
	}
	return nil
}

// WriteMargin is the slack WriteTimeout keeps above DispatchBudget.
const WriteMargin = 10 * time.Second

// lookupCommands is the most platform commands one dispatch runs before its
// first channel: a directory listing with fallback, then endpoint resolution.
const lookupCommands = 4

// DispatchBudget is the worst-case duration of one dispatch: printer lookup,
// the document fetch and every configured channel.
func (e Environment) DispatchBudget() time.Duration {
	return lookupCommands*e.CommandTimeout + e.FetchTimeout +
		time.Duration(len(e.ChannelOrder))*e.ChannelTimeout
}

// environments defines available deployment configurations
var environments = map[string]Environment{
	"remote": {
		Name:               "REMOTE",
		ServiceName:        ServiceName,
		ListenAddr:         "0.0.0.0:" + ServerPort,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       4 * time.Minute,
		IdleTimeout:        60 * time.Second,
		QueueCapacity:      50,
		Workers:            2,
		RateLimitPerMinute: 30,
		Verbose:            false,
		LogLevel:           "info",
		LogMaxSizeMB:       10,
		LogMaxBackups:      5,
		LogMaxAgeDays:      30,
		FetchTimeout:       30 * time.Second,
		ChannelTimeout:     30 * time.Second,
		CommandTimeout:     20 * time.Second,
		OpenGrace:          2 * time.Minute,
		MinDocumentBytes:   100,
		MaxDocumentBytes:   64 << 20,
		RequestingUser:     "print-bridge",
		ProbeEndpoints:     true,
		ChannelOrder:       []string{"ipp", "native", "fallback"},
		// By default, restrict to extension and localhost origins
		AllowedOrigins: []string{"chrome-extension://*", "http://localhost:*", "https://localhost:*"},
	},
	"local": {
		Name:               "LOCAL",
		ServiceName:        ServiceName,
		ListenAddr:         "localhost:" + ServerPort,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       4 * time.Minute,
		IdleTimeout:        120 * time.Second,
		QueueCapacity:      50,
		Workers:            2,
		RateLimitPerMinute: 60,
		Verbose:            true,
		LogLevel:           "debug",
		LogMaxSizeMB:       5,
		LogMaxBackups:      3,
		LogMaxAgeDays:      7,
		FetchTimeout:       30 * time.Second,
		ChannelTimeout:     30 * time.Second,
		CommandTimeout:     20 * time.Second,
		OpenGrace:          2 * time.Minute,
		MinDocumentBytes:   100,
		MaxDocumentBytes:   64 << 20,
		RequestingUser:     "print-bridge",
		ProbeEndpoints:     true,
		ChannelOrder:       []string{"ipp", "native", "fallback"},
		// Allow all in local dev mode for convenience, but can be overridden
		AllowedOrigins: []string{"*"},
	},
}

// GetEnvironment returns config for the specified environment.
func GetEnvironment(env string) Environment {
	cfg, ok := environments[env]
	if !ok {
		logging.Warn("Unknown environment, defaulting to local", "environment", env)
		cfg = environments["local"]
	}

	// Override allowed origins from ldflags if provided
	if AllowedOrigins != "" {
		cfg.AllowedOrigins = strings.Split(AllowedOrigins, ",")
	}

	cfg.ChannelOrder = append([]string(nil), cfg.ChannelOrder...)
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}
