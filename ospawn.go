package ospawn

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/ospawn/internal/config"
	"github.com/loykin/ospawn/internal/history"
	"github.com/loykin/ospawn/internal/history/factory"
	"github.com/loykin/ospawn/internal/metrics"
	"github.com/loykin/ospawn/internal/runner"
	"github.com/loykin/ospawn/internal/server"
	"github.com/loykin/ospawn/internal/spawn"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type FileActions = spawn.FileActions

type Attr = spawn.Attr

type Flags = spawn.Flags

type SigSet = spawn.SigSet

type ExitStatus = spawn.ExitStatus

type Error = spawn.Error

type Kind = spawn.Kind

const (
	ResetIDs      = spawn.ResetIDs
	SetPGroup     = spawn.SetPGroup
	SetSigDef     = spawn.SetSigDef
	SetSigMask    = spawn.SetSigMask
	SetSchedParam = spawn.SetSchedParam
	SetScheduler  = spawn.SetScheduler
	UseVFork      = spawn.UseVFork
	SetSid        = spawn.SetSid
)

const (
	Unexpected            = spawn.Unexpected
	SystemResources       = spawn.SystemResources
	InvalidFileDescriptor = spawn.InvalidFileDescriptor
	NameTooLong           = spawn.NameTooLong
	TooBig                = spawn.TooBig
	PermissionDenied      = spawn.PermissionDenied
	InputOutput           = spawn.InputOutput
	FileSystem            = spawn.FileSystem
	FileNotFound          = spawn.FileNotFound
	InvalidExe            = spawn.InvalidExe
	NotDir                = spawn.NotDir
	FileBusy              = spawn.FileBusy
	ChildExecFailed       = spawn.ChildExecFailed
)

func NewFileActions() *FileActions { return spawn.NewFileActions() }

func NewAttr() *Attr { return spawn.NewAttr() }

// Spawn creates a child at path with the given actions, attributes and
// argument vectors. See internal/spawn for the full contract.
func Spawn(path string, actions *FileActions, attr *Attr, argv, envp []string) (int, error) {
	return spawn.Spawn(path, actions, attr, argv, envp)
}

// Wait reaps pid and returns its decoded exit status.
func Wait(pid int) (ExitStatus, error) {
	return spawn.Wait(pid)
}

// Runner facade for embedding the job layer.

type Job = runner.Job

type JobStatus = runner.Status

type HistorySink = history.Sink

type Runner struct{ inner *runner.Runner }

func NewRunner(log *slog.Logger, sinks ...history.Sink) *Runner {
	return &Runner{inner: runner.New(log, sinks...)}
}

func (r *Runner) Run(job Job) (JobStatus, error)        { return r.inner.Run(job) }
func (r *Runner) RunAndWait(job Job) (JobStatus, error) { return r.inner.RunAndWait(job) }
func (r *Runner) Status(name string) (JobStatus, error) { return r.inner.Status(name) }
func (r *Runner) List() []JobStatus                     { return r.inner.List() }
func (r *Runner) Signal(name string, sig string) error  { return r.inner.Signal(name, sig) }

type Config = config.FileConfig

func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewHistorySink builds a sink from a DSN. Supported schemes: sqlite,
// postgres, clickhouse; a plain path is treated as a sqlite file.
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts an HTTP server exposing the runner's job API.
func NewHTTPServer(addr, basePath string, r *Runner) (*http.Server, error) {
	return server.NewServer(addr, basePath, r.inner)
}

// NewAPIHandler returns the job API as an http.Handler for embedding
// into an existing server or mux.
func NewAPIHandler(basePath string, r *Runner) http.Handler {
	return server.NewRouter(r.inner, basePath).Handler()
}

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics serves Prometheus metrics on addr at /metrics.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
