package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/loykin/ospawn/internal/spawn"
)

// Job describes one program to spawn. Stdio fields are file paths the
// child's descriptors are redirected to via file actions; empty fields
// inherit the runner's descriptors.
type Job struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Args []string `json:"args"`
	Env  []string `json:"env"` // nil inherits the runner environment

	Cwd    string `json:"cwd"`
	Stdin  string `json:"stdin"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	NewSession bool `json:"new_session"`
	SetPGroup  bool `json:"set_pgroup"`
	PGroup     int  `json:"pgroup"`
	ResetIDs   bool `json:"reset_ids"`
	UseVFork   bool `json:"use_vfork"`

	SchedPolicy   string `json:"sched_policy"` // "", "other", "fifo", "rr"
	SchedPriority int    `json:"sched_priority"`

	SigMask    []string `json:"sigmask"`    // signals blocked in the child
	SigDefault []string `json:"sigdefault"` // signals reset to default disposition
}

func (j *Job) Validate() error {
	if !validName(j.Name) {
		return fmt.Errorf("invalid job name %q: need [A-Za-z0-9._-] without \"..\"", j.Name)
	}
	if strings.TrimSpace(j.Path) == "" {
		return errors.New("job path is required")
	}
	if !safeAbsPath(j.Path) {
		return fmt.Errorf("job path %q must be absolute without traversal", j.Path)
	}
	for _, p := range []string{j.Cwd, j.Stdin, j.Stdout, j.Stderr} {
		if !safeAbsPath(p) {
			return fmt.Errorf("job file path %q must be absolute without traversal", p)
		}
	}
	return nil
}

// validName restricts names to characters safe in file names, URLs and
// history records. The charset excludes path separators, so only the
// ".." form needs an explicit check.
func validName(s string) bool {
	if s == "" || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// safeAbsPath accepts empty (inherit) or an absolute path already clean
// apart from a trailing separator.
func safeAbsPath(p string) bool {
	if p == "" {
		return true
	}
	if !filepath.IsAbs(p) {
		return false
	}
	clean := filepath.Clean(p)
	return clean == p || clean == strings.TrimRight(p, string(filepath.Separator))
}

// actions builds the file-action list for the job: stdio redirections
// first, working directory last, so a relative stdio path is resolved
// against the runner's cwd, not the job's.
func (j *Job) actions() (*spawn.FileActions, error) {
	fa := spawn.NewFileActions()
	if j.Stdin != "" {
		if err := fa.AddOpen(0, j.Stdin, os.O_RDONLY, 0); err != nil {
			return nil, err
		}
	}
	if j.Stdout != "" {
		if err := fa.AddOpen(1, j.Stdout, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err != nil {
			return nil, err
		}
	}
	if j.Stderr != "" {
		if j.Stderr == j.Stdout {
			if err := fa.AddDup2(1, 2); err != nil {
				return nil, err
			}
		} else if err := fa.AddOpen(2, j.Stderr, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err != nil {
			return nil, err
		}
	}
	if j.Cwd != "" {
		if err := fa.AddChdir(j.Cwd); err != nil {
			return nil, err
		}
	}
	return fa, nil
}

func (j *Job) attr() (*spawn.Attr, error) {
	var flags spawn.Flags
	a := spawn.NewAttr()
	if j.NewSession {
		flags |= spawn.SetSid
	}
	if j.SetPGroup {
		flags |= spawn.SetPGroup
		a.SetPGroup(j.PGroup)
	}
	if j.ResetIDs {
		flags |= spawn.ResetIDs
	}
	if j.UseVFork {
		flags |= spawn.UseVFork
	}
	if j.SchedPolicy != "" {
		policy, err := parsePolicy(j.SchedPolicy)
		if err != nil {
			return nil, err
		}
		flags |= spawn.SetScheduler
		a.SetSched(policy, j.SchedPriority)
	} else if j.SchedPriority != 0 {
		flags |= spawn.SetSchedParam
		a.SetSched(0, j.SchedPriority)
	}
	if len(j.SigMask) > 0 {
		var s spawn.SigSet
		for _, name := range j.SigMask {
			sig, err := parseSignal(name)
			if err != nil {
				return nil, err
			}
			s.Add(sig)
		}
		flags |= spawn.SetSigMask
		a.SetSigMask(s)
	}
	if len(j.SigDefault) > 0 {
		var s spawn.SigSet
		for _, name := range j.SigDefault {
			sig, err := parseSignal(name)
			if err != nil {
				return nil, err
			}
			s.Add(sig)
		}
		flags |= spawn.SetSigDef
		a.SetSigDefault(s)
	}
	if err := a.SetFlags(flags); err != nil {
		return nil, err
	}
	return a, nil
}

func (j *Job) argv() []string {
	argv0 := j.Path
	if i := strings.LastIndexByte(argv0, '/'); i >= 0 {
		argv0 = argv0[i+1:]
	}
	return append([]string{argv0}, j.Args...)
}

// parseSignal resolves names like "TERM" or "SIGUSR1".
func parseSignal(name string) (syscall.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return 0, errors.New("empty signal name")
	}
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	sig := unix.SignalNum(n)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}

func parsePolicy(policy string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "other":
		return unix.SCHED_NORMAL, nil
	case "fifo":
		return unix.SCHED_FIFO, nil
	case "rr":
		return unix.SCHED_RR, nil
	case "batch":
		return unix.SCHED_BATCH, nil
	case "idle":
		return unix.SCHED_IDLE, nil
	default:
		return 0, fmt.Errorf("unknown scheduling policy %q", policy)
	}
}
