// Package server exposes the print bridge over HTTP and WebSocket and queues
// WebSocket print jobs for the worker pool.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/adcondev/print-bridge/internal/auth"
	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// Dispatcher is the print engine the routes drive.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
	ListPrinters(ctx context.Context) []printer.Descriptor
}

// Authorizer validates API tokens; nil disables checks.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// Config holds server configuration
type Config struct {
	QueueSize          int
	AllowedOrigins     []string
	RateLimitPerMinute int    // 0 disables limiting
	DefaultPrinter     string // used when a request names no printer
	Platform           string
	// EndpointFor returns a configured endpoint for a printer, or nil.
	EndpointFor func(name string) *printer.Endpoint
}

// Server manages HTTP routes, WebSocket connections and the job queue
type Server struct {
	cfg          Config
	clients      *ClientRegistry
	jobQueue     chan *PrintJob
	limiter      *JobRateLimiter
	dispatcher   Dispatcher
	auth         Authorizer
	shutdownOnce sync.Once
	shutdownChan chan struct{}
}

// NewServer creates a new server
func NewServer(cfg Config, d Dispatcher, authz Authorizer) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.EndpointFor == nil {
		cfg.EndpointFor = func(string) *printer.Endpoint { return nil }
	}

	s := &Server{
		cfg:          cfg,
		clients:      NewClientRegistry(),
		jobQueue:     make(chan *PrintJob, cfg.QueueSize),
		dispatcher:   d,
		auth:         authz,
		shutdownChan: make(chan struct{}),
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = NewJobRateLimiter(cfg.RateLimitPerMinute)
	}
	return s
}

// Routes registers the bridge endpoints on mux, wrapped in CORS handling.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.Handle("/print", WithCORS(s.cfg.AllowedOrigins, http.HandlerFunc(s.HandlePrint)))
	mux.Handle("/printers", WithCORS(s.cfg.AllowedOrigins, http.HandlerFunc(s.HandlePrinters)))
	mux.HandleFunc("/ws", s.HandleWebSocket)
}

// QueueStatus returns current and max queue size
func (s *Server) QueueStatus() (current, capacity int) {
	return len(s.jobQueue), cap(s.jobQueue)
}

// JobQueue returns the job queue channel (for worker consumption)
func (s *Server) JobQueue() <-chan *PrintJob {
	return s.jobQueue
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	return s.clients.Count()
}

// buildRequest turns the wire request into a dispatch request. The explicit
// ippConfig wins over a configured endpoint for the printer.
func (s *Server) buildRequest(pr *PrintRequest) dispatch.Request {
	name := pr.Printer
	if name == "" {
		name = s.cfg.DefaultPrinter
	}
	ep := pr.IPPConfig.endpoint()
	if ep == nil {
		ep = s.cfg.EndpointFor(name)
	}
	return dispatch.Request{
		DocumentURL: pr.URL,
		Credentials: pr.Cookies,
		Printer:     name,
		Endpoint:    ep,
	}
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil {
		if err := s.auth.Authorize(r); err != nil {
			logging.Warn("WebSocket connection rejected", "remote", r.RemoteAddr, "error", err)
			writeError(w, statusForAuthError(err), err.Error(), "")
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		logging.Warn("Error accepting WebSocket client", "remote", r.RemoteAddr,
			"origin", r.Header.Get("Origin"), "error", err)
		return
	}

	s.clients.Add(conn, r.RemoteAddr)
	logging.Info("Client connected", "total", s.clients.Count(), "remote", r.RemoteAddr)

	ctx := r.Context()
	welcome := Response{
		Tipo:    "info",
		Status:  "connected",
		Mensaje: "Print bridge ready",
	}
	_ = wsjson.Write(ctx, conn, welcome)

	s.handleMessages(ctx, conn, clientKey(r))

	s.clients.Remove(conn)
	_ = conn.Close(websocket.StatusNormalClosure, "disconnected")
	logging.Info("Client disconnected", "remaining", s.clients.Count())
}

// handleMessages processes incoming messages from a client
func (s *Server) handleMessages(ctx context.Context, conn *websocket.Conn, client string) {
	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		var msg Message
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				ctx.Err() != nil {
				return
			}
			logging.Debug("Error reading WebSocket message", "error", err)
			return
		}

		s.routeMessage(ctx, conn, client, &msg)
	}
}

// routeMessage routes message to appropriate handler
func (s *Server) routeMessage(ctx context.Context, conn *websocket.Conn, client string, msg *Message) {
	switch msg.Tipo {
	case "print":
		s.handlePrintMessage(ctx, conn, client, msg)
	case "status":
		s.handleStatus(ctx, conn)
	case "ping":
		s.handlePing(ctx, conn, msg)
	case "get_printers":
		s.handleGetPrinters(ctx, conn)
	default:
		logging.Warn("Unknown message type", "tipo", msg.Tipo)
		s.sendError(ctx, conn, msg.ID, "Unknown message type: "+msg.Tipo)
	}
}

// handlePrintMessage validates and enqueues a print job
func (s *Server) handlePrintMessage(ctx context.Context, conn *websocket.Conn, client string, msg *Message) {
	jobID := msg.ID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	if len(msg.Datos) == 0 {
		logging.Warn("Job rejected: missing datos", "job_id", jobID)
		s.sendError(ctx, conn, jobID, "Field 'datos' is required for type 'print'")
		return
	}
	var pr PrintRequest
	if err := json.Unmarshal(msg.Datos, &pr); err != nil {
		s.sendError(ctx, conn, jobID, "Invalid 'datos': "+err.Error())
		return
	}
	if pr.URL == "" {
		s.sendError(ctx, conn, jobID, "Field 'datos.url' is required")
		return
	}
	if s.limiter != nil && !s.limiter.Allow(client) {
		logging.Warn("Job rejected: rate limit", "job_id", jobID, "client", client)
		s.sendError(ctx, conn, jobID, "Rate limit exceeded, please retry later")
		return
	}

	job := &PrintJob{
		ID:         jobID,
		ClientConn: conn,
		Request:    s.buildRequest(&pr),
		ReceivedAt: time.Now(),
	}

	select {
	case s.jobQueue <- job:
		current, capacity := s.QueueStatus()
		logging.Info("Job queued", "job_id", jobID, "queue", current, "capacity", capacity)
		_ = wsjson.Write(ctx, conn, Response{
			Tipo:     "ack",
			ID:       jobID,
			Status:   "queued",
			Current:  current,
			Capacity: capacity,
			Mensaje:  "Job queued for printing",
		})
	default:
		current, capacity := s.QueueStatus()
		logging.Warn("Queue full, rejecting job", "job_id", jobID, "queue", current, "capacity", capacity)
		s.sendError(ctx, conn, jobID, "Queue full, please retry in a few seconds")
	}
}

// handleStatus sends queue status
func (s *Server) handleStatus(ctx context.Context, conn *websocket.Conn) {
	current, capacity := s.QueueStatus()
	_ = wsjson.Write(ctx, conn, Response{
		Tipo:     "status",
		Status:   "ok",
		Current:  current,
		Capacity: capacity,
		Mensaje:  formatStatus(current, capacity),
	})
}

// handlePing responds to ping
func (s *Server) handlePing(ctx context.Context, conn *websocket.Conn, msg *Message) {
	_ = wsjson.Write(ctx, conn, Response{Tipo: "pong", ID: msg.ID, Status: "ok"})
}

// handleGetPrinters handles printer enumeration requests
func (s *Server) handleGetPrinters(ctx context.Context, conn *websocket.Conn) {
	printers := s.dispatcher.ListPrinters(ctx)
	_ = wsjson.Write(ctx, conn, PrintersResponse{
		Tipo:     "printers",
		Status:   "ok",
		Printers: printers,
		Summary:  printer.Summarize(s.cfg.Platform, printers),
	})
}

// sendError sends error response to client
func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, id, mensaje string) {
	_ = wsjson.Write(ctx, conn, Response{Tipo: "error", ID: id, Status: "error", Mensaje: mensaje})
}

// NotifyClient sends a result back to a specific client
func (s *Server) NotifyClient(conn *websocket.Conn, response Response) error {
	if conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, response)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		logging.Info("Shutting down, disconnecting clients", "clients", s.clients.Count())
		s.clients.ForEach(func(conn *websocket.Conn) {
			_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		})
	})
}

func formatStatus(current, capacity int) string {
	return "Queue: " + strconv.Itoa(current) + "/" + strconv.Itoa(capacity)
}

func clientKey(r *http.Request) string {
	return auth.ClientIP(r)
}

// Clients lists connected WebSocket clients.
func (s *Server) Clients() []ClientInfo {
	return s.clients.Snapshot()
}
