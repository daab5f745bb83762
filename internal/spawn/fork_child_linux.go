//go:build linux

package spawn

import (
	"syscall"
	"unsafe"
)

const (
	_SIG_SETMASK = 2
	_AT_FDCWD    = ^uintptr(99) // -100
	_SIGKILL     = 9
	_SIGSTOP     = 19
)

// forkAndExecInChild clones the child and runs the trampoline inside
// it. Modeled on src/syscall/exec_linux.go: between beforeFork and the
// exec (or the failure exit) the child may only issue raw syscalls and
// touch memory already reachable from req. The parent returns
// immediately after clone; the coordinator calls afterFork and reads
// the report pipe.
//
//go:norace
func forkAndExecInChild(req *spawnRequest) (pid uintptr, err1 syscall.Errno) {
	var (
		r1    uintptr
		rgid  uintptr
		ruid  uintptr
		mask  SigSet
		flags = uintptr(syscall.SIGCHLD)
	)
	if req.flags&UseVFork != 0 {
		// CLONE_VFORK without CLONE_VM: the parent stays suspended until
		// the child execs or exits, with ordinary fork memory semantics.
		flags |= syscall.CLONE_VFORK
	}
	pipe := req.pipeFD

	// About to fork. No allocation or non-assembly Go calls past here.
	beforeFork()

	r1, _, err1 = syscall.RawSyscall6(syscall.SYS_CLONE, flags, 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		// Parent path; the coordinator runs afterFork.
		return r1, err1
	}

	// Child.
	afterForkInChild()
	// No Go runtime services beyond this point.

	if req.flags&SetSid != 0 {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_SETSID, 0, 0, 0)
		if err1 != 0 {
			childFail(pipe, stepSetSid, err1)
		}
	}

	// Defaults before mask, so a transiently unblocked signal cannot hit
	// a disposition that is about to be reset.
	if req.flags&SetSigDef != 0 {
		for sig := uintptr(1); sig <= 64; sig++ {
			if sig == _SIGKILL || sig == _SIGSTOP {
				continue
			}
			if req.sigDefault&(1<<(sig-1)) == 0 {
				continue
			}
			_, _, err1 = syscall.RawSyscall6(syscall.SYS_RT_SIGACTION, sig,
				uintptr(unsafe.Pointer(&req.dflAction)), 0, sigsetSize, 0, 0)
			if err1 != 0 {
				childFail(pipe, stepSigDef, err1)
			}
		}
	}

	mask = req.savedMask
	if req.flags&SetSigMask != 0 {
		mask = req.sigMask
	}
	_, _, err1 = syscall.RawSyscall6(syscall.SYS_RT_SIGPROCMASK, _SIG_SETMASK,
		uintptr(unsafe.Pointer(&mask)), 0, sigsetSize, 0, 0)
	if err1 != 0 {
		childFail(pipe, stepSigMask, err1)
	}

	if req.flags&SetPGroup != 0 {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_SETPGID, 0, req.pgroup, 0)
		if err1 != 0 {
			childFail(pipe, stepSetPGroup, err1)
		}
	}

	if req.flags&SetScheduler != 0 {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, 0,
			req.schedPol, uintptr(unsafe.Pointer(&req.schedParam)))
		if err1 != 0 {
			childFail(pipe, stepSched, err1)
		}
	} else if req.flags&SetSchedParam != 0 {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_SCHED_SETPARAM, 0,
			uintptr(unsafe.Pointer(&req.schedParam)), 0)
		if err1 != 0 {
			childFail(pipe, stepSched, err1)
		}
	}

	if req.flags&ResetIDs != 0 {
		rgid, _, _ = syscall.RawSyscall(syscall.SYS_GETGID, 0, 0, 0)
		_, _, err1 = syscall.RawSyscall(syscall.SYS_SETGID, rgid, 0, 0)
		if err1 != 0 {
			childFail(pipe, stepResetIDs, err1)
		}
		ruid, _, _ = syscall.RawSyscall(syscall.SYS_GETUID, 0, 0, 0)
		_, _, err1 = syscall.RawSyscall(syscall.SYS_SETUID, ruid, 0, 0)
		if err1 != 0 {
			childFail(pipe, stepResetIDs, err1)
		}
	}

	// Replay file actions in insertion order. Any failure aborts the
	// replay; there is no rollback, the child terminates.
	for i := 0; i < len(req.actions); i++ {
		act := &req.actions[i]
		switch act.kind {
		case actClose:
			_, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, act.fd, 0, 0)
			if err1 != 0 {
				childFail(pipe, stepClose, err1)
			}
		case actDup2:
			if act.fd == act.newFd {
				// dup2(fd, fd) semantics: keep the descriptor but clear
				// close-on-exec so it survives the exec.
				_, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, act.fd, syscall.F_SETFD, 0)
			} else {
				_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, act.fd, act.newFd, 0)
			}
			if err1 != 0 {
				childFail(pipe, stepDup2, err1)
			}
		case actOpen:
			r1, _, err1 = syscall.RawSyscall6(syscall.SYS_OPENAT, _AT_FDCWD,
				uintptr(unsafe.Pointer(act.path)), act.flags, act.mode, 0, 0)
			if err1 != 0 {
				childFail(pipe, stepOpen, err1)
			}
			if r1 != act.fd {
				_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, r1, act.fd, 0)
				if err1 != 0 {
					childFail(pipe, stepOpen, err1)
				}
				_, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, r1, 0, 0)
				if err1 != 0 {
					childFail(pipe, stepOpen, err1)
				}
			}
		case actChdir:
			_, _, err1 = syscall.RawSyscall(syscall.SYS_CHDIR,
				uintptr(unsafe.Pointer(act.path)), 0, 0)
			if err1 != 0 {
				childFail(pipe, stepChdir, err1)
			}
		case actFchdir:
			_, _, err1 = syscall.RawSyscall(syscall.SYS_FCHDIR, act.fd, 0, 0)
			if err1 != 0 {
				childFail(pipe, stepFchdir, err1)
			}
		}
	}

	_, _, err1 = syscall.RawSyscall(syscall.SYS_EXECVE,
		uintptr(unsafe.Pointer(req.argv0)),
		uintptr(unsafe.Pointer(&req.argv[0])),
		uintptr(unsafe.Pointer(&req.envp[0])))
	childFail(pipe, stepExec, err1)
	return
}

// childFail sends the single failure record on the report pipe and
// terminates the child. Never returns.
//
//go:nosplit
//go:norace
func childFail(pipe uintptr, step childStep, errno syscall.Errno) {
	report := childReport{Errno: int32(errno), Step: step}
	syscall.RawSyscall(syscall.SYS_WRITE, pipe,
		uintptr(unsafe.Pointer(&report)), unsafe.Sizeof(report))
	for {
		syscall.RawSyscall(syscall.SYS_EXIT_GROUP, 127, 0, 0)
	}
}
