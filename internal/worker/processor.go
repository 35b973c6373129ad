// Package worker runs queued WebSocket print jobs through the dispatcher.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/server"
	workererrors "github.com/adcondev/print-bridge/internal/worker/errors"
)

// DefaultJobTimeout bounds one queued job from fetch to the last channel.
const DefaultJobTimeout = 2 * time.Minute

// Config holds worker configuration
type Config struct {
	Workers    int
	JobTimeout time.Duration
}

// ClientNotifier interface for sending results back to clients
type ClientNotifier interface {
	NotifyClient(conn *websocket.Conn, response server.Response) error
}

// Dispatcher prints one request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// Worker consumes print jobs from the queue with a fixed pool of goroutines
type Worker struct {
	jobQueue      <-chan *server.PrintJob
	dispatcher    Dispatcher
	notifier      ClientNotifier
	config        Config
	stopChan      chan struct{}
	ctx           context.Context // parent of every job, cancelled by Stop
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	inFlight      int
	jobsProcessed int64
	jobsFailed    int64
	lastJobTime   time.Time
}

// NewWorker creates a new print worker pool
func NewWorker(jobQueue <-chan *server.PrintJob, d Dispatcher, notifier ClientNotifier, config Config) *Worker {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		jobQueue:   jobQueue,
		dispatcher: d,
		notifier:   notifier,
		config:     config,
		stopChan:   make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the worker goroutines
func (w *Worker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.mu.Unlock()

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.run(i)
	}

	logging.Info("Print workers started", "workers", w.config.Workers)
}

// Stop cancels in-flight jobs, waits for their workers and stops the pool
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	close(w.stopChan)
	w.cancel()
	w.wg.Wait()

	stats := w.Stats()
	logging.Info("Print workers stopped", "processed", stats.JobsProcessed, "failed", stats.JobsFailed)
}

// run is the main worker loop
func (w *Worker) run(n int) {
	defer w.wg.Done()
	logging.Debug("Worker waiting for print jobs", "worker", n)

	for {
		select {
		case <-w.stopChan:
			return
		case job, ok := <-w.jobQueue:
			if !ok {
				logging.Debug("Job channel closed, worker exiting", "worker", n)
				return
			}
			w.processJob(job)
		}
	}
}

// processJob handles a single print job
func (w *Worker) processJob(job *server.PrintJob) {
	startTime := time.Now()
	logging.Info("Processing job", "job_id", job.ID, "url", job.Request.DocumentURL,
		"waited", startTime.Sub(job.ReceivedAt))

	w.mu.Lock()
	w.inFlight++
	w.mu.Unlock()

	result, err := w.executePrint(job)
	duration := time.Since(startTime)

	w.mu.Lock()
	w.inFlight--
	w.lastJobTime = time.Now()
	if err != nil {
		w.jobsFailed++
	} else {
		w.jobsProcessed++
	}
	w.mu.Unlock()

	var response server.Response
	if err != nil {
		logging.Error("Job failed", "job_id", job.ID, "duration", duration, "error", err)
		response = server.Response{
			Tipo:    "result",
			ID:      job.ID,
			Status:  "error",
			Mensaje: workererrors.ExtractUserFriendlyError(err),
		}
	} else {
		logging.Info("Job completed", "job_id", job.ID, "duration", duration, "channel", result.Channel)
		response = server.Response{
			Tipo:      "result",
			ID:        job.ID,
			Status:    "success",
			Mensaje:   fmt.Sprintf("Printed on %s via %s in %v", result.Printer, result.Channel, duration.Round(time.Millisecond)),
			Resultado: result,
		}
	}

	// notify async so a slow client does not hold a worker
	if job.ClientConn != nil && w.notifier != nil {
		go func() {
			if err := w.notifier.NotifyClient(job.ClientConn, response); err != nil {
				logging.Warn("Failed to notify client", "job_id", job.ID, "error", err)
			}
		}()
	}
}

// executePrint runs the dispatcher under the job timeout
func (w *Worker) executePrint(job *server.PrintJob) (result *dispatch.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered in executePrint: %v", r)
			logging.Error("Panic in job", "job_id", job.ID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(w.ctx, w.config.JobTimeout)
	defer cancel()
	return w.dispatcher.Dispatch(ctx, job.Request)
}

// Stats returns current worker statistics
func (w *Worker) Stats() Statistics {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Statistics{
		IsRunning:     w.isRunning,
		Workers:       w.config.Workers,
		InFlight:      w.inFlight,
		JobsProcessed: w.jobsProcessed,
		JobsFailed:    w.jobsFailed,
		LastJobTime:   w.lastJobTime,
	}
}

// Statistics holds worker runtime statistics
type Statistics struct {
	IsRunning     bool      `json:"is_running"`
	Workers       int       `json:"workers"`
	InFlight      int       `json:"in_flight"`
	JobsProcessed int64     `json:"jobs_processed"`
	JobsFailed    int64     `json:"jobs_failed"`
	LastJobTime   time.Time `json:"last_job_time,omitempty"`
}
