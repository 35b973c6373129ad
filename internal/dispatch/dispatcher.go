package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adcondev/print-bridge/internal/fetch"
	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// DefaultChannelTimeout bounds a single channel attempt.
const DefaultChannelTimeout = 30 * time.Second

// ErrInvalidRequest is returned for requests that cannot be dispatched at all.
var ErrInvalidRequest = errors.New("invalid print request")

// Fetcher downloads the document for a request.
type Fetcher interface {
	Fetch(ctx context.Context, url string, creds []fetch.Credential) (*fetch.Document, error)
}

// Request is one print submission. It is never retained after Dispatch returns.
type Request struct {
	DocumentURL string
	Credentials []fetch.Credential
	Printer     string            // empty means the system default
	Endpoint    *printer.Endpoint // explicit endpoint, skips validation and resolution
}

// Result describes a successful dispatch.
type Result struct {
	Success     bool   `json:"success"`
	DocumentURL string `json:"url"`
	Printer     string `json:"printer"`
	SizeBytes   int    `json:"size"`
	Channel     string `json:"channel"`
}

// Options wires a Dispatcher.
type Options struct {
	Directory      printer.Directory
	Resolver       printer.Resolver
	Fetcher        Fetcher
	Channels       []Channel
	ChannelTimeout time.Duration
}

// Dispatcher runs the validate, fetch, resolve and attempt sequence. It holds no
// per-request state and is safe for concurrent use.
type Dispatcher struct {
	directory      printer.Directory
	resolver       printer.Resolver
	fetcher        Fetcher
	channels       []Channel
	channelTimeout time.Duration
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Directory == nil || opts.Resolver == nil {
		return nil, errors.New("dispatcher needs a printer directory and resolver")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("dispatcher needs a document fetcher")
	}
	if len(opts.Channels) == 0 {
		return nil, errors.New("dispatcher needs at least one channel")
	}
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = DefaultChannelTimeout
	}
	return &Dispatcher{
		directory:      opts.Directory,
		resolver:       opts.Resolver,
		fetcher:        opts.Fetcher,
		channels:       opts.Channels,
		channelTimeout: opts.ChannelTimeout,
	}, nil
}

// ListPrinters returns a fresh directory snapshot.
func (d *Dispatcher) ListPrinters(ctx context.Context) []printer.Descriptor {
	return d.directory.ListPrinters(ctx)
}

// ChannelNames lists the configured channels in attempt order.
func (d *Dispatcher) ChannelNames() []string {
	names := make([]string, len(d.channels))
	for i, c := range d.channels {
		names[i] = c.Name()
	}
	return names
}

// Dispatch fetches the document and prints it through the first channel that succeeds.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.DocumentURL) == "" {
		return nil, fmt.Errorf("%w: document URL is required", ErrInvalidRequest)
	}

	job := &Job{ID: uuid.NewString(), Printer: req.Printer}
	if req.Endpoint != nil {
		ep := *req.Endpoint
		if err := ep.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		job.Endpoint = &ep
		job.Explicit = true
	}

	if !job.Explicit {
		if err := d.validatePrinter(ctx, job.Printer); err != nil {
			return nil, err
		}
	}

	doc, err := d.fetcher.Fetch(ctx, req.DocumentURL, req.Credentials)
	if err != nil {
		logging.Error("Document fetch failed", "job_id", job.ID, "url", req.DocumentURL, "error", err)
		return nil, err
	}
	job.Document = doc

	if !job.Explicit {
		job.Endpoint = d.resolver.ResolveEndpoint(ctx, job.Printer)
		logging.Debug("Endpoint resolved", "job_id", job.ID, "printer", job.PrinterLabel(), "endpoint", job.Endpoint.String())
	}

	channel, err := d.attempt(ctx, job)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:     true,
		DocumentURL: req.DocumentURL,
		Printer:     job.PrinterLabel(),
		SizeBytes:   len(doc.Data),
		Channel:     channel,
	}, nil
}

// validatePrinter rejects selectors missing from a non-empty directory snapshot.
func (d *Dispatcher) validatePrinter(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	snapshot := d.directory.ListPrinters(ctx)
	if len(snapshot) == 0 {
		logging.Warn("Printer directory returned no printers, skipping validation", "printer", name)
		return nil
	}
	if !printer.Contains(snapshot, name) {
		return printer.Errorf(printer.KindPrinterNotFound, nil, "printer %q not found", name)
	}
	return nil
}

// attempt walks the channel list and returns the name of the channel that printed.
func (d *Dispatcher) attempt(ctx context.Context, job *Job) (string, error) {
	var lastErr error
	for _, ch := range d.channels {
		if !ch.Applicable(job) {
			logging.Debug("Channel not applicable", "job_id", job.ID, "channel", ch.Name())
			continue
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		err := d.runChannel(ctx, ch, job)
		if err == nil {
			logging.Info("Document printed", "job_id", job.ID, "channel", ch.Name(),
				"printer", job.PrinterLabel(), "duration", time.Since(start))
			return ch.Name(), nil
		}
		logging.Warn("Channel failed, trying next", "job_id", job.ID, "channel", ch.Name(), "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no applicable channel")
	}
	return "", printer.Errorf(printer.KindChannelsExhausted, lastErr, "all print channels failed for %s", job.PrinterLabel())
}

func (d *Dispatcher) runChannel(ctx context.Context, ch Channel, job *Job) error {
	cctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()
	return ch.Print(cctx, job)
}
