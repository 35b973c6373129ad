package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/fetch"
	"github.com/adcondev/print-bridge/internal/printer"
)

// PrintRequest is the body of POST /print and the datos of a WebSocket print message.
type PrintRequest struct {
	URL       string             `json:"url"`
	Cookies   []fetch.Credential `json:"cookies"`
	Printer   string             `json:"printer,omitempty"`
	IPPConfig *IPPConfig         `json:"ippConfig,omitempty"`
}

// IPPConfig is the explicit endpoint an extension may store per printer.
type IPPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
	Path string `json:"path,omitempty"`
}

// endpoint returns nil for an absent or hostless config.
func (c *IPPConfig) endpoint() *printer.Endpoint {
	if c == nil || strings.TrimSpace(c.Host) == "" {
		return nil
	}
	return printer.NewNetworkEndpoint(strings.TrimSpace(c.Host), c.Port, c.Path)
}

// ErrorResponse is written for every failed HTTP request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// PrintJob represents a queued print request
type PrintJob struct {
	ID         string           `json:"id"`
	ClientConn *websocket.Conn  `json:"-"`
	Request    dispatch.Request `json:"-"`
	ReceivedAt time.Time        `json:"received_at"`
}

// Message represents incoming WebSocket message
type Message struct {
	Tipo  string          `json:"tipo"`
	ID    string          `json:"id,omitempty"`
	Datos json.RawMessage `json:"datos,omitempty"`
}

// Response represents outgoing WebSocket message
type Response struct {
	Tipo      string           `json:"tipo"`
	ID        string           `json:"id,omitempty"`
	Status    string           `json:"status,omitempty"`
	Mensaje   string           `json:"mensaje,omitempty"`
	Current   int              `json:"current,omitempty"`
	Capacity  int              `json:"capacity,omitempty"`
	Resultado *dispatch.Result `json:"resultado,omitempty"`
}

// PrintersResponse answers a get_printers message.
type PrintersResponse struct {
	Tipo     string               `json:"tipo"`
	Status   string               `json:"status"`
	Printers []printer.Descriptor `json:"printers"`
	Summary  printer.Summary      `json:"summary"`
}
