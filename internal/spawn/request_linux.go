//go:build linux

package spawn

import "syscall"

// rawAction is a fileAction flattened into the exact operands the child
// needs, with the path converted to a NUL-terminated C string. Nothing
// on the child path may allocate, so all conversion happens here in the
// parent before the fork.
type rawAction struct {
	kind  actionKind
	fd    uintptr
	newFd uintptr
	path  *byte
	flags uintptr
	mode  uintptr
}

// sigactiont matches the kernel struct sigaction for rt_sigaction with
// an 8-byte mask. The zero value is SIG_DFL with no flags, which is all
// the trampoline ever installs.
type sigactiont struct {
	handler  uintptr
	flags    uintptr
	restorer uintptr
	mask     uint64
}

// schedParamT matches the kernel struct sched_param.
type schedParamT struct {
	priority int32
}

// spawnRequest is the transient argument bundle handed to the child.
// It lives on the parent's stack frame for the duration of Spawn; the
// child only reads it and writes nothing the parent observes afterward.
type spawnRequest struct {
	argv0 *byte
	argv  []*byte
	envp  []*byte

	actions []rawAction

	flags      Flags
	pgroup     uintptr
	sigDefault SigSet
	sigMask    SigSet
	schedPol   uintptr
	schedParam schedParamT

	dflAction sigactiont

	// savedMask is the caller's signal mask before the fork window; the
	// child restores it when SetSigMask is unset.
	savedMask SigSet

	// pipeFD is the report pipe write end, parked above every action fd.
	pipeFD uintptr
}

// newSpawnRequest validates and flattens path, actions, attributes and
// the argument vectors into raw child-safe form.
func newSpawnRequest(path string, actions *FileActions, attr *Attr, argv, envp []string) (*spawnRequest, error) {
	argv0, err := syscall.BytePtrFromString(path)
	if err != nil {
		return nil, &Error{Kind: Unexpected, Op: "path", Errno: syscall.EINVAL}
	}
	argvp, err := syscall.SlicePtrFromStrings(argv)
	if err != nil {
		return nil, &Error{Kind: Unexpected, Op: "argv", Errno: syscall.EINVAL}
	}
	envpp, err := syscall.SlicePtrFromStrings(envp)
	if err != nil {
		return nil, &Error{Kind: Unexpected, Op: "envp", Errno: syscall.EINVAL}
	}

	req := &spawnRequest{argv0: argv0, argv: argvp, envp: envpp}

	if actions != nil {
		if actions.released {
			return nil, errReleased
		}
		req.actions = make([]rawAction, 0, len(actions.actions))
		for i := range actions.actions {
			act := &actions.actions[i]
			ra := rawAction{
				kind:  act.kind,
				fd:    uintptr(act.fd),
				newFd: uintptr(act.newFd),
				flags: uintptr(act.flags),
				mode:  uintptr(act.mode),
			}
			if act.kind == actOpen || act.kind == actChdir {
				p, err := syscall.BytePtrFromString(act.path)
				if err != nil {
					return nil, &Error{Kind: Unexpected, Op: "action path", Errno: syscall.EINVAL}
				}
				ra.path = p
			}
			req.actions = append(req.actions, ra)
		}
	}

	if attr != nil {
		req.flags = attr.flags
		req.pgroup = uintptr(attr.pgroup)
		req.sigDefault = attr.sigDefault
		req.sigMask = attr.sigMask
		req.schedPol = uintptr(attr.schedPolicy)
		req.schedParam = schedParamT{priority: int32(attr.schedPriority)}
	}
	return req, nil
}

// childReport is the single failure record the child writes to the
// report pipe before terminating. Success sends nothing; the pipe
// closing on exec is the success signal.
type childReport struct {
	Errno int32
	Step  childStep
}

type childStep int32

const (
	stepSetSid childStep = iota + 1
	stepSigDef
	stepSigMask
	stepSetPGroup
	stepSched
	stepResetIDs
	stepClose
	stepDup2
	stepOpen
	stepChdir
	stepFchdir
	stepExec
)

func (s childStep) String() string {
	switch s {
	case stepSetSid:
		return "setsid"
	case stepSigDef:
		return "sigdefault"
	case stepSigMask:
		return "sigmask"
	case stepSetPGroup:
		return "setpgid"
	case stepSched:
		return "sched"
	case stepResetIDs:
		return "resetids"
	case stepClose:
		return "close"
	case stepDup2:
		return "dup2"
	case stepOpen:
		return "open"
	case stepChdir:
		return "chdir"
	case stepFchdir:
		return "fchdir"
	case stepExec:
		return "exec"
	default:
		return "unknown"
	}
}
