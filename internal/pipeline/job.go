package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/auditlog/ytdown/internal/fsm"
	"github.com/auditlog/ytdown/internal/ipc"
)

// Job is a run executing on its own goroutine.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	state    fsm.State
	progress *Progress
	report   Report
	err      error
}

// JobStatus is a snapshot of a running job.
type JobStatus struct {
	State fsm.State
	// Progress is nil until the first part is released.
	Progress *Progress
}

// Start runs p.Run for req in the background. The caller's Progress and Observe
// callbacks are still invoked.
func Start(ctx context.Context, p *Pipeline, req Request) *Job {
	runCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		cancel: cancel,
		done:   make(chan struct{}),
		state:  fsm.StateIdle,
	}

	progress := req.Progress
	req.Progress = func(pr Progress) {
		job.setProgress(pr)
		if progress != nil {
			progress(pr)
		}
	}
	observe := req.Observe
	req.Observe = func(event fsm.Event) {
		job.transition(event)
		if observe != nil {
			observe(event)
		}
	}

	go func() {
		defer close(job.done)
		defer cancel()

		report, err := p.Run(runCtx, req)
		switch {
		case err != nil && runCtx.Err() != nil:
			job.transition(fsm.EventCancel)
		case err != nil:
			job.transition(fsm.EventFail)
		}

		job.mu.Lock()
		job.report = report
		job.err = err
		job.mu.Unlock()
	}()

	return job
}

// Status returns the current state and latest progress.
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	status := JobStatus{State: j.state}
	if j.progress != nil {
		pr := *j.progress
		status.Progress = &pr
	}
	return status
}

// Wait blocks until the run ends.
func (j *Job) Wait() (Report, error) {
	<-j.done
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.report, j.err
}

// Done is closed when the run ends.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel requests cancellation. Completed parts are kept.
func (j *Job) Cancel() {
	j.cancel()
}

// Handle serves control-socket commands for the running job.
func (j *Job) Handle(_ context.Context, req ipc.Request) ipc.Response {
	status := j.Status()
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(status.State), Message: "status", Progress: toIPCProgress(status.Progress)}
	case ipc.CommandCancel:
		if fsm.Terminal(status.State) {
			return ipc.Response{OK: false, State: string(status.State), Error: fmt.Sprintf("cannot cancel from state %s", status.State)}
		}
		j.Cancel()
		return ipc.Response{OK: true, State: string(status.State), Message: "cancel requested"}
	default:
		return ipc.Response{OK: false, State: string(status.State), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// transition applies event best-effort; out-of-order events keep the current state.
func (j *Job) transition(event fsm.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if next, err := fsm.Transition(j.state, event); err == nil {
		j.state = next
	}
}

func (j *Job) setProgress(pr Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = &pr
}

func toIPCProgress(pr *Progress) *ipc.Progress {
	if pr == nil {
		return nil
	}
	return &ipc.Progress{
		Ordinal:    pr.Ordinal,
		Total:      pr.Total,
		Characters: pr.Characters,
		Completed:  pr.Completed,
		ETA:        pr.ETAString(),
	}
}
