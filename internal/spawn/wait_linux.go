//go:build linux

package spawn

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus is the decoded termination state of a reaped child:
// either a normal exit with a code or death by signal.
type ExitStatus struct {
	raw unix.WaitStatus
}

func (s ExitStatus) Exited() bool { return s.raw.Exited() }

// ExitCode is the child's exit code, or -1 when it was signaled.
func (s ExitStatus) ExitCode() int {
	if !s.raw.Exited() {
		return -1
	}
	return s.raw.ExitStatus()
}

func (s ExitStatus) Signaled() bool { return s.raw.Signaled() }

func (s ExitStatus) Signal() syscall.Signal {
	if !s.raw.Signaled() {
		return 0
	}
	return s.raw.Signal()
}

func (s ExitStatus) String() string {
	if s.raw.Signaled() {
		return fmt.Sprintf("signaled(%v)", s.raw.Signal())
	}
	return fmt.Sprintf("exited(%d)", s.raw.ExitStatus())
}

// Wait blocks until pid terminates and returns its decoded status.
// Interruption by a signal is retried transparently. ECHILD means the
// caller broke the reaping contract (already reaped, or never spawned)
// and surfaces as ChildExecFailed.
func Wait(pid int) (ExitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.ECHILD {
				return ExitStatus{}, &Error{Kind: ChildExecFailed, Op: "wait", Errno: unix.ECHILD}
			}
			return ExitStatus{}, &Error{Kind: Unexpected, Op: "wait", Errno: asErrno(err)}
		}
		if ws.Exited() || ws.Signaled() {
			return ExitStatus{raw: ws}, nil
		}
		// Stopped/continued states are not requested and not terminal.
	}
}
