package runner

import (
	"syscall"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/loykin/ospawn/internal/spawn"
)

func TestJobValidate(t *testing.T) {
	j := Job{}
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for empty job")
	}
	j.Name = "x"
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for missing path")
	}
	j.Path = "/bin/true"
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJobValidateRejectsUnsafeFields(t *testing.T) {
	bad := []Job{
		{Name: "../evil", Path: "/bin/true"},
		{Name: "a/b", Path: "/bin/true"},
		{Name: "a b", Path: "/bin/true"},
		{Name: "x", Path: "bin/true"},
		{Name: "x", Path: "/a/../b"},
		{Name: "x", Path: "/bin/true", Stdout: "out.log"},
		{Name: "x", Path: "/bin/true", Cwd: "./here"},
	}
	for _, j := range bad {
		if err := j.Validate(); err == nil {
			t.Errorf("Validate(%+v) accepted unsafe job", j)
		}
	}
	ok := Job{Name: "a.b-c_d", Path: "/bin/true", Cwd: "/tmp/", Stdout: "/var/log/out.log"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate rejected safe job: %v", err)
	}
}

func TestJobArgv(t *testing.T) {
	j := Job{Path: "/usr/bin/sleep", Args: []string{"5"}}
	got := j.argv()
	if len(got) != 2 || got[0] != "sleep" || got[1] != "5" {
		t.Fatalf("argv = %v", got)
	}
	j = Job{Path: "sh"}
	if got := j.argv(); len(got) != 1 || got[0] != "sh" {
		t.Fatalf("argv = %v", got)
	}
}

func TestJobActionsCount(t *testing.T) {
	j := Job{Name: "x", Path: "/bin/true"}
	fa, err := j.actions()
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	defer fa.Release()
	if fa.Len() != 0 {
		t.Fatalf("expected empty action list, got %d", fa.Len())
	}

	j = Job{
		Name:   "x",
		Path:   "/bin/true",
		Stdin:  "/dev/null",
		Stdout: "/tmp/out.log",
		Stderr: "/tmp/out.log",
		Cwd:    "/tmp",
	}
	fa, err = j.actions()
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	defer fa.Release()
	// stdin open, stdout open, stderr dup of stdout, chdir
	if fa.Len() != 4 {
		t.Fatalf("expected 4 actions, got %d", fa.Len())
	}
}

func TestJobAttrFlags(t *testing.T) {
	j := Job{
		Name:       "x",
		Path:       "/bin/true",
		NewSession: true,
		ResetIDs:   true,
		SigMask:    []string{"TERM", "SIGUSR1"},
	}
	a, err := j.attr()
	if err != nil {
		t.Fatalf("attr: %v", err)
	}
	want := spawn.SetSid | spawn.ResetIDs | spawn.SetSigMask
	if a.Flags() != want {
		t.Fatalf("flags = %#x, want %#x", a.Flags(), want)
	}
}

func TestJobAttrBadSignal(t *testing.T) {
	j := Job{Name: "x", Path: "/bin/true", SigMask: []string{"NOTASIG"}}
	if _, err := j.attr(); err == nil {
		t.Fatalf("expected error for unknown signal")
	}
}

func TestParseSignal(t *testing.T) {
	cases := map[string]syscall.Signal{
		"TERM":    unix.SIGTERM,
		"sigkill": unix.SIGKILL,
		"Usr1":    unix.SIGUSR1,
	}
	for in, want := range cases {
		got, err := parseSignal(in)
		if err != nil {
			t.Fatalf("parseSignal(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseSignal(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseSignal(""); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := parseSignal("BOGUS"); err == nil {
		t.Fatalf("expected error for bogus name")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := parsePolicy("fifo"); err != nil || p != unix.SCHED_FIFO {
		t.Fatalf("fifo: %v %v", p, err)
	}
	if p, err := parsePolicy("Other"); err != nil || p != unix.SCHED_NORMAL {
		t.Fatalf("other: %v %v", p, err)
	}
	if _, err := parsePolicy("realtime"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
