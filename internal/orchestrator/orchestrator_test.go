package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"frameselect/internal/orchestrator"
	"frameselect/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	uploadErr  error
	analyzeErr error
	pollErr    error

	statuses []api.JobStatus
	polls    int
}

func (g *fakeGateway) Upload(ctx context.Context, paths []string) (api.UploadResponse, error) {
	if g.uploadErr != nil {
		return api.UploadResponse{}, g.uploadErr
	}
	return api.UploadResponse{UploadId: "up1", Count: len(paths)}, nil
}

func (g *fakeGateway) StartAnalysis(ctx context.Context, uploadID string) (api.AnalyzeResponse, error) {
	if g.analyzeErr != nil {
		return api.AnalyzeResponse{}, g.analyzeErr
	}
	return api.AnalyzeResponse{JobId: "job1", UploadId: uploadID, Status: api.JobQueued}, nil
}

func (g *fakeGateway) PollJob(ctx context.Context, jobID string) (api.JobStatus, error) {
	if g.pollErr != nil {
		return api.JobStatus{}, g.pollErr
	}
	g.polls++
	idx := g.polls - 1
	if idx >= len(g.statuses) {
		idx = len(g.statuses) - 1
	}
	return g.statuses[idx], nil
}

func fastOpts() orchestrator.Options {
	return orchestrator.Options{PollInterval: time.Millisecond}
}

func drain(o *orchestrator.Orchestrator) []orchestrator.Update {
	var updates []orchestrator.Update
	for u := range o.Updates() {
		updates = append(updates, u)
	}
	return updates
}

func TestRunHappyPath(t *testing.T) {
	gw := &fakeGateway{statuses: []api.JobStatus{
		{Status: api.JobQueued, Progress: 0.0},
		{Status: api.JobRunning, Progress: 0.5},
		{Status: api.JobCompleted, Progress: 1.0},
	}}
	o := orchestrator.New(gw, fastOpts())

	result, err := o.Run(context.Background(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "up1", result.UploadID)
	assert.Equal(t, "job1", result.JobID)
	assert.Equal(t, 2, result.FileCount)
	assert.Equal(t, 3, gw.polls)

	updates := drain(o)
	require.NotEmpty(t, updates)

	assert.Equal(t, orchestrator.StateUploading, updates[0].State)
	assert.Equal(t, "Uploading files...", updates[0].Step)

	last := updates[len(updates)-1]
	assert.Equal(t, orchestrator.StateDone, last.State)
	assert.Equal(t, 100.0, last.Percent)

	var steps []string
	for _, u := range updates {
		steps = append(steps, u.Step)
	}
	assert.Contains(t, steps, "Waiting for analysis to start...")
	assert.Contains(t, steps, "Analyzing 1 of 2 images...")
}

func TestRunNoFiles(t *testing.T) {
	gw := &fakeGateway{}
	o := orchestrator.New(gw, fastOpts())

	_, err := o.Run(context.Background(), nil)

	assert.ErrorIs(t, err, orchestrator.ErrNoFiles)
	assert.Zero(t, gw.polls, "no network call may happen with an empty file list")
}

func TestRunJobFailure(t *testing.T) {
	gw := &fakeGateway{statuses: []api.JobStatus{
		{Status: api.JobFailed, Error: "corrupt image"},
	}}
	o := orchestrator.New(gw, fastOpts())

	_, err := o.Run(context.Background(), []string{"a.jpg"})

	var failure *orchestrator.JobFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "corrupt image", failure.Reason)
	assert.Equal(t, "analysis failed: corrupt image", failure.Error())
}

func TestRunJobFailureWithoutReason(t *testing.T) {
	gw := &fakeGateway{statuses: []api.JobStatus{{Status: api.JobFailed}}}
	o := orchestrator.New(gw, fastOpts())

	_, err := o.Run(context.Background(), []string{"a.jpg"})

	var failure *orchestrator.JobFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Unknown error", failure.Reason)
}

func TestRunUploadError(t *testing.T) {
	wantErr := errors.New("connection refused")
	o := orchestrator.New(&fakeGateway{uploadErr: wantErr}, fastOpts())

	_, err := o.Run(context.Background(), []string{"a.jpg"})

	assert.ErrorIs(t, err, wantErr)
}

func TestRunPollBudgetExhausted(t *testing.T) {
	gw := &fakeGateway{statuses: []api.JobStatus{{Status: api.JobRunning, Progress: 0.1}}}
	opts := fastOpts()
	opts.MaxAttempts = 3
	o := orchestrator.New(gw, opts)

	_, err := o.Run(context.Background(), []string{"a.jpg"})

	assert.ErrorIs(t, err, orchestrator.ErrPollTimeout)
	assert.Equal(t, 3, gw.polls)
}

func TestRunCancellation(t *testing.T) {
	gw := &fakeGateway{statuses: []api.JobStatus{{Status: api.JobRunning, Progress: 0.1}}}
	opts := orchestrator.Options{PollInterval: 50 * time.Millisecond}
	o := orchestrator.New(gw, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := o.Run(ctx, []string{"a.jpg"})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancellation did not stop the polling loop")
	}
}

// A backend that regresses its reported progress must not regress the stream.
func TestProgressIsMonotonic(t *testing.T) {
	gw := &fakeGateway{statuses: []api.JobStatus{
		{Status: api.JobRunning, Progress: 0.6},
		{Status: api.JobRunning, Progress: 0.3},
		{Status: api.JobRunning, Progress: 0.9},
		{Status: api.JobCompleted, Progress: 1.0},
	}}
	o := orchestrator.New(gw, fastOpts())

	_, err := o.Run(context.Background(), []string{"a.jpg"})
	require.NoError(t, err)

	prev := -1.0
	for _, u := range drain(o) {
		assert.GreaterOrEqual(t, u.Percent, prev, "progress regressed at step %q", u.Step)
		prev = u.Percent
	}
}
