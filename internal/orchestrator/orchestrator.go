// Package orchestrator drives the upload → analyze → poll sequence,
// turning the backend's fire-and-forget analysis job into an observable
// progress stream with a terminal outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"frameselect/pkg/api"
)

type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateStarting  State = "starting"
	StatePolling   State = "polling"
	StateDone      State = "done"
)

var (
	// ErrNoFiles is returned by Run before any network call when the file
	// list is empty.
	ErrNoFiles = errors.New("no files provided")

	// ErrPollTimeout is returned when the poll budget is exhausted before
	// the job reaches a terminal state.
	ErrPollTimeout = errors.New("gave up waiting for analysis to finish")
)

// JobFailure carries the backend's error string for a failed analysis job.
type JobFailure struct {
	Reason string
}

func (e *JobFailure) Error() string {
	return "analysis failed: " + e.Reason
}

// Update is one observation on the progress stream.
type Update struct {
	State   State
	Percent float64 // [0,100], non-decreasing
	Step    string
}

// Result is the successful terminal outcome. UploadID keys the results
// view for everything downstream.
type Result struct {
	UploadID  string
	FileCount int
	JobID     string
}

// Gateway is the slice of the backend client the orchestrator needs.
type Gateway interface {
	Upload(ctx context.Context, paths []string) (api.UploadResponse, error)
	StartAnalysis(ctx context.Context, uploadID string) (api.AnalyzeResponse, error)
	PollJob(ctx context.Context, jobID string) (api.JobStatus, error)
}

// Options bound the polling loop: cadence, a total attempt budget, and an
// optional backoff that stretches the interval between polls.
type Options struct {
	PollInterval  time.Duration // default 1s
	MaxAttempts   int           // default 600; 0 means unbounded
	BackoffFactor float64       // multiplier per attempt; <=1 means fixed cadence
	MaxInterval   time.Duration // cap when backoff is active
}

type Orchestrator struct {
	gw      Gateway
	opts    Options
	updates chan Update

	// lastPercent enforces monotonic displayed progress even if the
	// backend regresses its reported value.
	lastPercent float64
}

func New(gw Gateway, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 600
	} else if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	return &Orchestrator{gw: gw, opts: opts, updates: make(chan Update, 64)}
}

// Updates returns the progress stream. The channel is closed when Run
// returns. Sends never block; a slow consumer misses intermediate ticks,
// never terminal ones out of order.
func (o *Orchestrator) Updates() <-chan Update {
	return o.updates
}

func (o *Orchestrator) emit(state State, percent float64, step string) {
	percent = math.Min(100, math.Max(0, percent))
	if percent < o.lastPercent {
		percent = o.lastPercent
	}
	o.lastPercent = percent

	select {
	case o.updates <- Update{State: state, Percent: percent, Step: step}:
	default:
	}
}

// Run drives one upload attempt end to end. There is no automatic retry: a
// failure requires the caller to resubmit from scratch. Cancelling ctx
// stops the polling loop promptly.
func (o *Orchestrator) Run(ctx context.Context, files []string) (Result, error) {
	defer close(o.updates)

	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}

	o.emit(StateUploading, 0, "Uploading files...")
	upload, err := o.gw.Upload(ctx, files)
	if err != nil {
		return Result{}, err
	}
	slog.Info("upload complete", "upload_id", upload.UploadId, "count", upload.Count)

	o.emit(StateStarting, 0, "Starting analysis...")
	analyze, err := o.gw.StartAnalysis(ctx, upload.UploadId)
	if err != nil {
		return Result{}, err
	}
	slog.Info("analysis started", "job_id", analyze.JobId)

	status, err := o.poll(ctx, analyze.JobId, upload.Count)
	if err != nil {
		return Result{}, err
	}

	if status.Status == api.JobFailed {
		reason := status.Error
		if reason == "" {
			reason = "Unknown error"
		}
		return Result{}, &JobFailure{Reason: reason}
	}

	o.emit(StateDone, 100, "Analysis complete")
	return Result{UploadID: upload.UploadId, FileCount: upload.Count, JobID: analyze.JobId}, nil
}

// poll waits out the job, one request per tick, strictly sequential: the
// next tick is never scheduled before the previous response is observed.
func (o *Orchestrator) poll(ctx context.Context, jobID string, fileCount int) (api.JobStatus, error) {
	interval := o.opts.PollInterval

	for attempt := 1; ; attempt++ {
		if o.opts.MaxAttempts > 0 && attempt > o.opts.MaxAttempts {
			return api.JobStatus{}, fmt.Errorf("%w after %d polls", ErrPollTimeout, o.opts.MaxAttempts)
		}

		select {
		case <-ctx.Done():
			return api.JobStatus{}, ctx.Err()
		case <-time.After(interval):
		}

		status, err := o.gw.PollJob(ctx, jobID)
		if err != nil {
			return api.JobStatus{}, err
		}

		step := "Waiting for analysis to start..."
		if status.Status == api.JobRunning {
			processed := int(math.Floor(status.Progress * float64(fileCount)))
			step = fmt.Sprintf("Analyzing %d of %d images...", processed, fileCount)
		}
		o.emit(StatePolling, status.Progress*100, step)

		if status.Status.Terminal() {
			return status, nil
		}

		if o.opts.BackoffFactor > 1 {
			interval = time.Duration(float64(interval) * o.opts.BackoffFactor)
			if interval > o.opts.MaxInterval {
				interval = o.opts.MaxInterval
			}
		}
	}
}
