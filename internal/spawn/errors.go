package spawn

import (
	"fmt"
	"syscall"
)

// Kind classifies a spawn failure. The zero value is Unexpected so an
// unmapped platform code is never silently promoted to a known class.
type Kind uint8

const (
	// Unexpected wraps a platform error code with no dedicated class.
	Unexpected Kind = iota
	// SystemResources covers allocation and quota failures (fork limits,
	// fd table exhaustion, out of memory).
	SystemResources
	// InvalidFileDescriptor reports a descriptor outside the usable range
	// or one the child found closed during action replay.
	InvalidFileDescriptor
	// NameTooLong reports a path over the platform ceiling.
	NameTooLong
	// TooBig reports an oversized argv/envp block.
	TooBig
	// PermissionDenied covers EACCES/EPERM on the exec or action path.
	PermissionDenied
	// InputOutput reports an I/O failure while loading the image.
	InputOutput
	// FileSystem reports path-resolution failures such as symlink loops.
	FileSystem
	// FileNotFound reports a missing executable or action path.
	FileNotFound
	// InvalidExe reports a file that is not executable on this platform.
	InvalidExe
	// NotDir reports a non-directory path component.
	NotDir
	// FileBusy reports ETXTBSY on the target executable.
	FileBusy
	// ChildExecFailed reports a Wait on a PID the kernel does not know;
	// the child was already reaped or never existed.
	ChildExecFailed
)

func (k Kind) String() string {
	switch k {
	case SystemResources:
		return "system resources"
	case InvalidFileDescriptor:
		return "invalid file descriptor"
	case NameTooLong:
		return "name too long"
	case TooBig:
		return "argument list too big"
	case PermissionDenied:
		return "permission denied"
	case InputOutput:
		return "input/output error"
	case FileSystem:
		return "file system loop"
	case FileNotFound:
		return "file not found"
	case InvalidExe:
		return "invalid executable"
	case NotDir:
		return "not a directory"
	case FileBusy:
		return "text file busy"
	case ChildExecFailed:
		return "no such child"
	default:
		return "unexpected error"
	}
}

// Error is the typed failure returned by Spawn and Wait. Errno is the
// raw platform code when one was observed, zero otherwise.
type Error struct {
	Kind  Kind
	Op    string
	Errno syscall.Errno
}

func (e *Error) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("spawn: %s: %s (%v)", e.Op, e.Kind, e.Errno)
	}
	return fmt.Sprintf("spawn: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// Is allows errors.Is(err, &Error{Kind: k}) style matching on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Errno == 0 || t.Errno == e.Errno)
}

// classify maps a platform errno from the exec/pre-exec path onto the
// error taxonomy. Codes without a mapping stay Unexpected but keep the
// errno for the caller.
func classify(errno syscall.Errno) Kind {
	switch errno {
	case syscall.EAGAIN, syscall.ENOMEM, syscall.EMFILE, syscall.ENFILE, syscall.ENOSPC:
		return SystemResources
	case syscall.EBADF:
		return InvalidFileDescriptor
	case syscall.E2BIG:
		return TooBig
	case syscall.EACCES, syscall.EPERM:
		return PermissionDenied
	case syscall.EIO:
		return InputOutput
	case syscall.ELOOP:
		return FileSystem
	case syscall.ENAMETOOLONG:
		return NameTooLong
	case syscall.ENOENT:
		return FileNotFound
	case syscall.ENOEXEC:
		return InvalidExe
	case syscall.ENOTDIR:
		return NotDir
	case syscall.ETXTBSY:
		return FileBusy
	default:
		return Unexpected
	}
}

func errnoErr(op string, errno syscall.Errno) *Error {
	return &Error{Kind: classify(errno), Op: op, Errno: errno}
}
