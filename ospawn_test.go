//go:build linux

package ospawn_test

import (
	"errors"
	"testing"

	"github.com/loykin/ospawn"
)

func TestSpawnWaitRoundTrip(t *testing.T) {
	actions := ospawn.NewFileActions()
	defer actions.Release()
	pid, err := ospawn.Spawn("/bin/sh", actions, nil,
		[]string{"sh", "-c", "exit 5"}, []string{"PATH=/usr/bin:/bin"})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	st, err := ospawn.Wait(pid)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !st.Exited() || st.ExitCode() != 5 {
		t.Fatalf("status = %v", st)
	}
}

func TestSpawnErrorKind(t *testing.T) {
	actions := ospawn.NewFileActions()
	defer actions.Release()
	_, err := ospawn.Spawn("/no/such/binary", actions, nil,
		[]string{"binary"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var se *ospawn.Error
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T", err)
	}
	if se.Kind != ospawn.FileNotFound {
		t.Fatalf("kind = %v", se.Kind)
	}
}

func TestRunnerFacade(t *testing.T) {
	run := ospawn.NewRunner(nil)
	st, err := run.RunAndWait(ospawn.Job{Name: "true", Path: "/bin/true"})
	if err != nil {
		t.Fatalf("RunAndWait: %v", err)
	}
	if st.ExitCode != 0 {
		t.Fatalf("exit code = %d", st.ExitCode)
	}
	if got := len(run.List()); got != 1 {
		t.Fatalf("List() = %d", got)
	}
}
