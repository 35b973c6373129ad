package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/OpenPrinting/goipp"

	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
)

// IPP channel defaults.
const (
	DefaultRequestingUser = "print-bridge"
	DefaultProbeTimeout   = 2 * time.Second
	ippStatusErrorFloor   = 0x0100
)

// IPPConfig configures network submission.
type IPPConfig struct {
	Client         *http.Client
	RequestingUser string
	// Probe dials resolved endpoints before submitting. Explicit endpoints are
	// never probed.
	Probe        bool
	ProbeTimeout time.Duration
}

// IPPChannel submits a Print-Job operation to the job's endpoint.
type IPPChannel struct {
	client       *http.Client
	user         string
	probe        bool
	probeTimeout time.Duration
	requestID    atomic.Uint32
}

// NewIPPChannel creates the network channel.
func NewIPPChannel(cfg IPPConfig) *IPPChannel {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.RequestingUser == "" {
		cfg.RequestingUser = DefaultRequestingUser
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	return &IPPChannel{
		client:       cfg.Client,
		user:         cfg.RequestingUser,
		probe:        cfg.Probe,
		probeTimeout: cfg.ProbeTimeout,
	}
}

// Name implements Channel.
func (c *IPPChannel) Name() string { return ChannelIPP }

// Applicable is true only when an endpoint is known.
func (c *IPPChannel) Applicable(job *Job) bool { return job.Endpoint != nil }

// Print implements Channel.
func (c *IPPChannel) Print(ctx context.Context, job *Job) error {
	ep := job.Endpoint
	if ep == nil {
		return printer.Errorf(printer.KindNetworkPrintFailed, nil, "no network endpoint")
	}

	if c.probe && !job.Explicit {
		if err := c.reachable(ctx, ep); err != nil {
			return printer.Errorf(printer.KindNetworkPrintFailed, err, "endpoint %s unreachable", ep.Address())
		}
	}

	header, err := c.encodePrintJob(job)
	if err != nil {
		return printer.Errorf(printer.KindNetworkPrintFailed, err, "encoding IPP request")
	}

	body := io.MultiReader(bytes.NewReader(header), bytes.NewReader(job.Document.Data))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL(), body)
	if err != nil {
		return printer.Errorf(printer.KindNetworkPrintFailed, err, "building IPP request")
	}
	req.Header.Set("Content-Type", goipp.ContentType)
	req.ContentLength = int64(len(header) + len(job.Document.Data))

	logging.Debug("Submitting IPP job", "job_id", job.ID, "endpoint", ep.String(), "size", len(job.Document.Data))

	resp, err := c.client.Do(req)
	if err != nil {
		return printer.Errorf(printer.KindNetworkPrintFailed, err, "IPP submission to %s", ep.Address())
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug("Error closing IPP response body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return printer.Errorf(printer.KindNetworkPrintFailed, nil, "IPP server returned HTTP status %d", resp.StatusCode)
	}

	var rsp goipp.Message
	if err := rsp.Decode(resp.Body); err != nil {
		return printer.Errorf(printer.KindNetworkPrintFailed, err, "decoding IPP response")
	}
	if rsp.Code >= ippStatusErrorFloor {
		return printer.Errorf(printer.KindNetworkPrintFailed, nil, "IPP status %s", goipp.Status(rsp.Code))
	}

	logging.Info("IPP job accepted", "job_id", job.ID, "endpoint", ep.String(), "status", goipp.Status(rsp.Code).String())
	return nil
}

func (c *IPPChannel) encodePrintJob(job *Job) ([]byte, error) {
	m := goipp.NewRequest(goipp.DefaultVersion, goipp.OpPrintJob, c.requestID.Add(1))

	format := "application/pdf"
	if !job.Document.IsPDF() {
		format = "application/octet-stream"
	}
	jobName := job.ID
	if jobName == "" {
		jobName = "print-bridge"
	}

	m.Operation.Add(goipp.MakeAttribute("attributes-charset", goipp.TagCharset, goipp.String("utf-8")))
	m.Operation.Add(goipp.MakeAttribute("attributes-natural-language", goipp.TagLanguage, goipp.String("en-US")))
	m.Operation.Add(goipp.MakeAttribute("printer-uri", goipp.TagURI, goipp.String(job.Endpoint.PrinterURI())))
	m.Operation.Add(goipp.MakeAttribute("requesting-user-name", goipp.TagName, goipp.String(c.user)))
	m.Operation.Add(goipp.MakeAttribute("job-name", goipp.TagName, goipp.String(jobName)))
	m.Operation.Add(goipp.MakeAttribute("document-format", goipp.TagMimeType, goipp.String(format)))

	return m.EncodeBytes()
}

func (c *IPPChannel) reachable(ctx context.Context, ep *printer.Endpoint) error {
	d := net.Dialer{Timeout: c.probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", ep.Address())
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return conn.Close()
}
