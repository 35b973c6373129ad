// Package dispatch routes fetched documents to printers through an ordered list
// of print channels, falling back from one to the next.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adcondev/print-bridge/internal/fetch"
	"github.com/adcondev/print-bridge/internal/printer"
)

// Channel names accepted in the configured channel order.
const (
	ChannelIPP      = "ipp"
	ChannelNative   = "native"
	ChannelFallback = "fallback"
)

// DefaultChannelOrder is network first, then the OS command, then the fallback utility.
var DefaultChannelOrder = []string{ChannelIPP, ChannelNative, ChannelFallback}

// Job is a single attempt context handed to each channel in turn.
type Job struct {
	ID       string
	Printer  string // empty means the system default
	Endpoint *printer.Endpoint
	Explicit bool // endpoint came from the caller or configuration, not the resolver
	Document *fetch.Document
}

// PrinterLabel is the printer name used in results and logs.
func (j *Job) PrinterLabel() string {
	if j.Printer == "" {
		return "default"
	}
	return j.Printer
}

// Channel is one strategy for delivering a document to a printer.
type Channel interface {
	Name() string
	Applicable(job *Job) bool
	Print(ctx context.Context, job *Job) error
}

// ChannelSet holds what the channel constructors need.
type ChannelSet struct {
	IPP       *IPPChannel
	Spooler   printer.Spooler
	Temp      *TempStore
	OpenGrace time.Duration // delays removal of files handed to the default handler
}

// Build returns the channels in the given order. Unknown or repeated names fail.
func (s ChannelSet) Build(order []string) ([]Channel, error) {
	if len(order) == 0 {
		order = DefaultChannelOrder
	}
	seen := make(map[string]bool, len(order))
	channels := make([]Channel, 0, len(order))
	for _, raw := range order {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, fmt.Errorf("channel %q listed twice", name)
		}
		seen[name] = true

		switch name {
		case ChannelIPP:
			ipp := s.IPP
			if ipp == nil {
				ipp = NewIPPChannel(IPPConfig{})
			}
			channels = append(channels, ipp)
		case ChannelNative:
			if s.Spooler == nil {
				return nil, fmt.Errorf("channel %q needs a platform spooler", name)
			}
			channels = append(channels, NewNativeChannel(s.Spooler, s.Temp))
		case ChannelFallback:
			if s.Spooler == nil {
				return nil, fmt.Errorf("channel %q needs a platform spooler", name)
			}
			channels = append(channels, NewFallbackChannel(s.Spooler, s.Temp, s.OpenGrace))
		default:
			return nil, fmt.Errorf("unknown channel %q", raw)
		}
	}
	return channels, nil
}

// ValidChannelName reports whether name is a known channel.
func ValidChannelName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ChannelIPP, ChannelNative, ChannelFallback:
		return true
	}
	return false
}
