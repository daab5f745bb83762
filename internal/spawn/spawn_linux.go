//go:build linux

package spawn

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Spawn creates a child process at path, replays actions and applies
// attr inside it, and execs with argv/envp. On success the returned
// PID refers to the post-exec process and the caller owns reaping it
// via Wait. On any failure, parent-side or child-side, no live child
// is left behind.
//
// actions and attr may be nil. The call blocks until the child has
// either execed or reported a failure.
func Spawn(path string, actions *FileActions, attr *Attr, argv, envp []string) (int, error) {
	if path == "" {
		return 0, &Error{Kind: FileNotFound, Op: "path"}
	}
	if len(path) >= pathMax {
		return 0, &Error{Kind: NameTooLong, Op: "path"}
	}
	req, err := newSpawnRequest(path, actions, attr, argv, envp)
	if err != nil {
		return 0, err
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return 0, errnoErr("pipe", asErrno(err))
	}

	// Park the write end above every descriptor the action list touches
	// so replay cannot close or dup over the report channel.
	if maxFD := actions.maxFDOrNeg(); p[1] <= maxFD {
		nfd, err := unix.FcntlInt(uintptr(p[1]), unix.F_DUPFD_CLOEXEC, maxFD+1)
		if err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return 0, errnoErr("dup pipe", asErrno(err))
		}
		unix.Close(p[1])
		p[1] = nfd
	}
	req.pipeFD = uintptr(p[1])

	// The fork window is serialized against the rest of the process the
	// same way syscall.forkExec is.
	syscall.ForkLock.Lock()

	// Block everything and remember the caller's mask. The child
	// restores the saved mask (or the attribute mask); the parent
	// restores unconditionally, success or failure.
	var full, saved SigSet
	full.Fill()
	if errno := sigprocmask(_SIG_SETMASK, &full, &saved); errno != 0 {
		syscall.ForkLock.Unlock()
		unix.Close(p[0])
		unix.Close(p[1])
		return 0, errnoErr("sigprocmask", errno)
	}
	req.savedMask = saved

	r1, errno := forkAndExecInChild(req)
	afterFork()
	_ = sigprocmask(_SIG_SETMASK, &saved, nil)
	syscall.ForkLock.Unlock()

	unix.Close(p[1])
	if errno != 0 {
		unix.Close(p[0])
		return 0, errnoErr("clone", errno)
	}
	pid := int(r1)

	rep, failed, rerr := readReport(p[0])
	unix.Close(p[0])
	if rerr != nil {
		// Report channel broke; the child state is unknown. Reap it so
		// nothing leaks, then surface the read failure.
		_, _ = Wait(pid)
		return 0, rerr
	}
	if !failed {
		// Exec closed the write end without a record: success.
		return pid, nil
	}
	// The child reported a pre-exec/exec failure and exited; reap it and
	// translate the record.
	_, _ = Wait(pid)
	return 0, errnoErr(rep.Step.String(), syscall.Errno(rep.Errno))
}

// readReport block-reads the child's failure record. failed is false
// when the pipe closed without data, the success signal.
func readReport(fd int) (rep childReport, failed bool, err error) {
	buf := (*[unsafe.Sizeof(childReport{})]byte)(unsafe.Pointer(&rep))[:]
	n := 0
	for n < len(buf) {
		m, rerr := unix.Read(fd, buf[n:])
		if rerr == unix.EINTR {
			continue
		}
		if rerr != nil {
			return rep, false, errnoErr("read report", asErrno(rerr))
		}
		if m == 0 {
			break
		}
		n += m
	}
	if n == 0 {
		return rep, false, nil
	}
	if n < len(buf) {
		return rep, false, &Error{Kind: Unexpected, Op: "short report"}
	}
	return rep, true, nil
}

func sigprocmask(how uintptr, set, old *SigSet) syscall.Errno {
	_, _, e := syscall.RawSyscall6(syscall.SYS_RT_SIGPROCMASK, how,
		uintptr(unsafe.Pointer(set)), uintptr(unsafe.Pointer(old)), sigsetSize, 0, 0)
	return e
}

func asErrno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}

// maxFDOrNeg is maxFD tolerant of a nil receiver, for the common
// actions == nil call.
func (a *FileActions) maxFDOrNeg() int {
	if a == nil {
		return -1
	}
	return a.maxFD()
}
