package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adcondev/print-bridge/internal/auth"
	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// maxRequestBody caps the JSON body of POST /print.
const maxRequestBody = 1 << 20

// HandlePrint serves POST /print: fetch, validate and print synchronously.
func (s *Server) HandlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if s.auth != nil {
		if err := s.auth.Authorize(r); err != nil {
			logging.Warn("Print request rejected", "remote", r.RemoteAddr, "error", err)
			writeError(w, statusForAuthError(err), err.Error(), "")
			return
		}
	}
	if s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please retry later", "")
		return
	}

	var pr PrintRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&pr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}
	if pr.URL == "" {
		writeError(w, http.StatusBadRequest, "No URL provided", "")
		return
	}

	logging.Info("Print request received", "url", pr.URL, "printer", pr.Printer,
		"cookies", len(pr.Cookies), "explicit_endpoint", pr.IPPConfig != nil)

	res, err := s.dispatcher.Dispatch(r.Context(), s.buildRequest(&pr))
	if err != nil {
		status, kind := statusForDispatchError(err)
		logging.Error("Print request failed", "url", pr.URL, "status", status, "error", err)
		writeError(w, status, err.Error(), kind)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandlePrinters serves GET /printers with a fresh directory snapshot.
func (s *Server) HandlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	printers := s.dispatcher.ListPrinters(r.Context())
	if printers == nil {
		printers = []printer.Descriptor{}
	}
	writeJSON(w, http.StatusOK, printers)
}

// statusForDispatchError maps error kinds to HTTP status codes.
func statusForDispatchError(err error) (int, string) {
	if errors.Is(err, dispatch.ErrInvalidRequest) {
		return http.StatusBadRequest, ""
	}
	var pe *printer.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, ""
	}
	switch pe.Kind {
	case printer.KindPrinterNotFound:
		return http.StatusNotFound, string(pe.Kind)
	case printer.KindInvalidDocument:
		return http.StatusUnprocessableEntity, string(pe.Kind)
	case printer.KindFetchFailed:
		return http.StatusBadGateway, string(pe.Kind)
	default:
		return http.StatusInternalServerError, string(pe.Kind)
	}
}

func statusForAuthError(err error) int {
	if errors.Is(err, auth.ErrLockedOut) {
		return http.StatusTooManyRequests
	}
	return http.StatusUnauthorized
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Error writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}
