package spawn

import "errors"

// pathMax mirrors the Linux PATH_MAX ceiling; longer paths are rejected
// at list-build time rather than deep inside the child.
const pathMax = 4096

var errReleased = errors.New("spawn: file action list already released")

type actionKind uint8

const (
	actClose actionKind = iota + 1
	actDup2
	actOpen
	actChdir
	actFchdir
)

type fileAction struct {
	kind  actionKind
	fd    int
	newFd int
	path  string
	flags int
	mode  uint32
}

// FileActions is an ordered list of descriptor and working-directory
// operations replayed verbatim in the child before exec. Order is
// significant: later actions may reference descriptors established by
// earlier ones, and the engine never reorders.
//
// A list must not be mutated while a Spawn using it is in flight.
type FileActions struct {
	actions  []fileAction
	released bool
}

func NewFileActions() *FileActions { return &FileActions{} }

// AddClose arranges for fd to be closed in the child.
func (a *FileActions) AddClose(fd int) error {
	if err := a.check(fd); err != nil {
		return err
	}
	a.actions = append(a.actions, fileAction{kind: actClose, fd: fd})
	return nil
}

// AddDup2 arranges for fd to be duplicated onto newFd in the child.
// When fd == newFd the descriptor's close-on-exec flag is cleared
// instead, so the descriptor is inherited across exec.
func (a *FileActions) AddDup2(fd, newFd int) error {
	if err := a.check(fd); err != nil {
		return err
	}
	if newFd < 0 {
		return &Error{Kind: InvalidFileDescriptor, Op: "dup2"}
	}
	a.actions = append(a.actions, fileAction{kind: actDup2, fd: fd, newFd: newFd})
	return nil
}

// AddOpen arranges for path to be opened with flags/mode in the child
// and the resulting descriptor moved onto fd. The path is copied; the
// caller may reuse its storage immediately.
func (a *FileActions) AddOpen(fd int, path string, flags int, mode uint32) error {
	if err := a.check(fd); err != nil {
		return err
	}
	if len(path) >= pathMax {
		return &Error{Kind: NameTooLong, Op: "open"}
	}
	a.actions = append(a.actions, fileAction{kind: actOpen, fd: fd, path: path, flags: flags, mode: mode})
	return nil
}

// AddChdir arranges for the child to change its working directory to path.
func (a *FileActions) AddChdir(path string) error {
	if a.released {
		return errReleased
	}
	if len(path) >= pathMax {
		return &Error{Kind: NameTooLong, Op: "chdir"}
	}
	a.actions = append(a.actions, fileAction{kind: actChdir, path: path})
	return nil
}

// AddFchdir arranges for the child to change its working directory to
// the directory open at fd.
func (a *FileActions) AddFchdir(fd int) error {
	if err := a.check(fd); err != nil {
		return err
	}
	a.actions = append(a.actions, fileAction{kind: actFchdir, fd: fd})
	return nil
}

// Len reports the number of queued actions.
func (a *FileActions) Len() int { return len(a.actions) }

// Release drops the list and every owned path copy. Release is
// idempotent; a released list rejects further Add calls and Spawn.
func (a *FileActions) Release() {
	a.actions = nil
	a.released = true
}

func (a *FileActions) check(fd int) error {
	if a.released {
		return errReleased
	}
	if fd < 0 {
		return &Error{Kind: InvalidFileDescriptor, Op: "action"}
	}
	return nil
}

// maxFD returns the highest descriptor any action touches, or -1 for an
// empty list. The coordinator parks the report pipe above this so
// replay cannot clobber it.
func (a *FileActions) maxFD() int {
	max := -1
	for i := range a.actions {
		if a.actions[i].fd > max {
			max = a.actions[i].fd
		}
		if a.actions[i].newFd > max {
			max = a.actions[i].newFd
		}
	}
	return max
}
