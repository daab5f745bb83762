package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/ospawn/internal/runner"
)

// Router provides embeddable HTTP handlers for spawning jobs.
// Endpoints:
//   POST {basePath}/run           body: Job JSON; query: wait=1 to block until exit
//   GET  {basePath}/status        query: name=...
//   GET  {basePath}/jobs          list all known jobs
//   POST {basePath}/signal        query: name=...&signal=TERM
//   GET  {basePath}/healthz
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	run      *runner.Runner
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/run, /api/status.
func NewRouter(run *runner.Runner, basePath string) *Router {
	return &Router{run: run, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/run", r.handleRun)
	group.GET("/status", r.handleStatus)
	group.GET("/jobs", r.handleJobs)
	group.POST("/signal", r.handleSignal)
	group.GET("/healthz", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Callers shut it down via the returned http.Server.
func NewServer(addr, basePath string, run *runner.Runner) (*http.Server, error) {
	r := NewRouter(run, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleRun(c *gin.Context) {
	var job runner.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := job.Validate(); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	var (
		st  runner.Status
		err error
	)
	if wait {
		st, err = r.run.RunAndWait(job)
	} else {
		st, err = r.run.Run(job)
	}
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	st, err := r.run.Status(name)
	if err != nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (r *Router) handleJobs(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.run.List())
}

func (r *Router) handleSignal(c *gin.Context) {
	name := c.Query("name")
	sig := c.DefaultQuery("signal", "TERM")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if err := r.run.Signal(name, sig); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
