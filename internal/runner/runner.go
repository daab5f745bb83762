// Package runner is a thin job layer over the spawn engine: it builds
// actions/attributes from a Job, spawns, reaps in the background, and
// exports lifecycle events to history sinks and metrics. It does no
// supervision; a job runs at most once per Run call.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/loykin/ospawn/internal/history"
	"github.com/loykin/ospawn/internal/metrics"
	"github.com/loykin/ospawn/internal/spawn"
)

// Status is the externally visible state of a job's most recent run.
type Status struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	PID       int       `json:"pid"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	// StartUnix is the kernel's start time for the child in Unix
	// seconds, 0 when unavailable.
	StartUnix int64     `json:"start_unix,omitempty"`
	ExitedAt  time.Time `json:"exited_at,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Signal    string    `json:"signal,omitempty"`
	WaitErr   string    `json:"wait_error,omitempty"`
}

type jobState struct {
	st   Status
	done chan struct{}
}

// Runner tracks spawned jobs by name. The most recent run of a name
// wins; callers wanting concurrent instances use distinct names.
type Runner struct {
	mu    sync.Mutex
	log   *slog.Logger
	sinks []history.Sink
	jobs  map[string]*jobState
}

func New(log *slog.Logger, sinks ...history.Sink) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log, sinks: sinks, jobs: make(map[string]*jobState)}
}

// Run spawns the job and returns once the child has execed. Reaping
// happens in the background; use RunAndWait or Status to observe the
// exit.
func (r *Runner) Run(job Job) (Status, error) {
	st, _, err := r.start(job)
	return st, err
}

// RunAndWait spawns the job and blocks until the child is reaped.
func (r *Runner) RunAndWait(job Job) (Status, error) {
	_, done, err := r.start(job)
	if err != nil {
		return Status{}, err
	}
	<-done
	return r.Status(job.Name)
}

func (r *Runner) start(job Job) (Status, <-chan struct{}, error) {
	if err := job.Validate(); err != nil {
		return Status{}, nil, err
	}
	actions, err := job.actions()
	if err != nil {
		return Status{}, nil, fmt.Errorf("job %s: %w", job.Name, err)
	}
	defer actions.Release()
	attr, err := job.attr()
	if err != nil {
		return Status{}, nil, fmt.Errorf("job %s: %w", job.Name, err)
	}
	env := job.Env
	if env == nil {
		env = os.Environ()
	}

	began := time.Now()
	pid, err := spawn.Spawn(job.Path, actions, attr, job.argv(), env)
	if err != nil {
		kind := errKind(err)
		metrics.IncSpawnError(job.Name, kind)
		r.emit(history.Event{Type: history.EventError, OccurredAt: time.Now(), Record: history.Record{
			Job: job.Name, Path: job.Path, ExitCode: -1, ErrKind: kind,
			Uniq: fmt.Sprintf("%s-0-%d", job.Name, began.UnixNano()),
		}})
		r.log.Error("spawn failed", "job", job.Name, "path", job.Path, "error", err)
		return Status{}, nil, err
	}
	metrics.IncSpawn(job.Name)
	metrics.IncRunning(job.Name)
	metrics.ObserveSpawnDuration(job.Name, time.Since(began))

	st := Status{
		Name:      job.Name,
		Path:      job.Path,
		PID:       pid,
		Running:   true,
		StartedAt: began,
		StartUnix: procStartUnix(pid),
		ExitCode:  -1,
	}
	js := &jobState{st: st, done: make(chan struct{})}
	r.mu.Lock()
	r.jobs[job.Name] = js
	r.mu.Unlock()

	r.emit(history.Event{Type: history.EventSpawn, OccurredAt: began, Record: recordOf(st)})
	r.log.Info("spawned", "job", job.Name, "path", job.Path, "pid", pid)

	go r.reap(job.Name, js)
	return st, js.done, nil
}

func (r *Runner) reap(name string, js *jobState) {
	es, err := spawn.Wait(js.st.PID)

	r.mu.Lock()
	js.st.Running = false
	js.st.ExitedAt = time.Now()
	outcome := "exited"
	switch {
	case err != nil:
		js.st.WaitErr = err.Error()
		outcome = "lost"
	case es.Signaled():
		js.st.Signal = unix.SignalName(es.Signal())
		js.st.ExitCode = -1
		outcome = "signaled"
	default:
		js.st.ExitCode = es.ExitCode()
	}
	st := js.st
	r.mu.Unlock()
	close(js.done)

	metrics.DecRunning(name)
	metrics.IncExit(name, outcome)
	r.emit(history.Event{Type: history.EventExit, OccurredAt: st.ExitedAt, Record: recordOf(st)})
	if err != nil {
		r.log.Error("wait failed", "job", name, "pid", st.PID, "error", err)
		return
	}
	r.log.Info("reaped", "job", name, "pid", st.PID, "status", es.String())
}

// Status returns the most recent state of the named job.
func (r *Runner) Status(name string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	js, ok := r.jobs[name]
	if !ok {
		return Status{}, fmt.Errorf("unknown job %q", name)
	}
	return js.st, nil
}

// List returns the state of every known job.
func (r *Runner) List() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.jobs))
	for _, js := range r.jobs {
		out = append(out, js.st)
	}
	return out
}

// Signal delivers a named signal to a running job's child.
func (r *Runner) Signal(name, sig string) error {
	signum, err := parseSignal(sig)
	if err != nil {
		return err
	}
	r.mu.Lock()
	js, ok := r.jobs[name]
	running := ok && js.st.Running
	pid := 0
	if ok {
		pid = js.st.PID
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	if !running {
		return fmt.Errorf("job %q is not running", name)
	}
	return unix.Kill(pid, signum)
}

func (r *Runner) emit(e history.Event) {
	for _, s := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Send(ctx, e); err != nil {
			r.log.Warn("history sink send failed", "type", string(e.Type), "error", err)
		}
		cancel()
	}
}

func recordOf(st Status) history.Record {
	return history.Record{
		Job:       st.Name,
		Path:      st.Path,
		PID:       st.PID,
		StartedAt: st.StartedAt,
		ExitedAt:  st.ExitedAt,
		ExitCode:  st.ExitCode,
		Signal:    st.Signal,
		Uniq:      fmt.Sprintf("%s-%d", st.Name, st.PID),
	}
}

func errKind(err error) string {
	var se *spawn.Error
	if errors.As(err, &se) {
		return se.Kind.String()
	}
	return "unexpected error"
}
