// Package printer contains the printer directory, endpoint resolution and the
// platform print commands, plus the shared types used across the bridge.
package printer

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Protocol identifies how an endpoint is reached.
type Protocol string

const (
	ProtocolNetwork Protocol = "network"
	ProtocolLocal   Protocol = "local"
)

// Default IPP endpoint values used when a configuration omits them.
const (
	DefaultIPPPort = 631
	DefaultIPPPath = "/ipp/print"
)

// Descriptor is one printer as reported by the host in a single snapshot.
type Descriptor struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Endpoint is a network-reachable printing address.
type Endpoint struct {
	Protocol Protocol `json:"protocol,omitempty"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Path     string   `json:"path"`
}

// NewNetworkEndpoint builds an endpoint applying the IPP defaults for port and path.
func NewNetworkEndpoint(host string, port int, path string) *Endpoint {
	e := &Endpoint{Protocol: ProtocolNetwork, Host: host, Port: port, Path: path}
	e.applyDefaults()
	return e
}

func (e *Endpoint) applyDefaults() {
	if e.Protocol == "" {
		e.Protocol = ProtocolNetwork
	}
	if e.Port == 0 {
		e.Port = DefaultIPPPort
	}
	if e.Path == "" {
		e.Path = DefaultIPPPath
	}
	if !strings.HasPrefix(e.Path, "/") {
		e.Path = "/" + e.Path
	}
}

// Validate checks host and port, filling defaults for missing port and path.
func (e *Endpoint) Validate() error {
	if e == nil {
		return fmt.Errorf("endpoint is nil")
	}
	e.Host = strings.TrimSpace(e.Host)
	if e.Host == "" {
		return fmt.Errorf("endpoint host is required")
	}
	e.applyDefaults()
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("endpoint port %d out of range 1-65535", e.Port)
	}
	return nil
}

// Address returns host:port.
func (e *Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL is the HTTP transport address IPP requests are posted to.
func (e *Endpoint) URL() string {
	u := url.URL{Scheme: "http", Host: e.Address(), Path: e.Path}
	return u.String()
}

// PrinterURI is the value of the IPP printer-uri attribute.
func (e *Endpoint) PrinterURI() string {
	u := url.URL{Scheme: "ipp", Host: e.Address(), Path: e.Path}
	return u.String()
}

func (e *Endpoint) String() string {
	if e == nil {
		return "<none>"
	}
	return e.PrinterURI()
}

// Summary provides lightweight overview for health checks
type Summary struct {
	Status        string `json:"status"` // "ok", "warning", "error"
	DetectedCount int    `json:"detected_count"`
	DefaultName   string `json:"default_name,omitempty"`
	Platform      string `json:"platform"`
}

// DefaultName returns the single default printer of a snapshot, or "" when there
// is none or the host reported more than one.
func DefaultName(printers []Descriptor) string {
	name := ""
	for _, p := range printers {
		if !p.IsDefault {
			continue
		}
		if name != "" {
			return ""
		}
		name = p.Name
	}
	return name
}

// Contains reports whether name is present in the snapshot.
func Contains(printers []Descriptor, name string) bool {
	for _, p := range printers {
		if p.Name == name {
			return true
		}
	}
	return false
}

// normalizeDefaults clears every default flag when more than one printer claims it.
func normalizeDefaults(printers []Descriptor) []Descriptor {
	count := 0
	for _, p := range printers {
		if p.IsDefault {
			count++
		}
	}
	if count > 1 {
		for i := range printers {
			printers[i].IsDefault = false
		}
	}
	return printers
}

// Summarize builds the health summary for a snapshot. An empty snapshot is a
// warning, not an error: the directory may simply be unavailable.
func Summarize(platform string, printers []Descriptor) Summary {
	s := Summary{
		Status:        "ok",
		DetectedCount: len(printers),
		DefaultName:   DefaultName(printers),
		Platform:      platform,
	}
	if len(printers) == 0 {
		s.Status = "warning"
	}
	return s
}
