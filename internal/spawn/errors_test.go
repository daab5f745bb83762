package spawn

import (
	"errors"
	"syscall"
	"testing"
)

func TestClassifyTaxonomy(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  Kind
	}{
		{syscall.EAGAIN, SystemResources},
		{syscall.ENOMEM, SystemResources},
		{syscall.EMFILE, SystemResources},
		{syscall.ENFILE, SystemResources},
		{syscall.EBADF, InvalidFileDescriptor},
		{syscall.E2BIG, TooBig},
		{syscall.EACCES, PermissionDenied},
		{syscall.EPERM, PermissionDenied},
		{syscall.EIO, InputOutput},
		{syscall.ELOOP, FileSystem},
		{syscall.ENAMETOOLONG, NameTooLong},
		{syscall.ENOENT, FileNotFound},
		{syscall.ENOEXEC, InvalidExe},
		{syscall.ENOTDIR, NotDir},
		{syscall.ETXTBSY, FileBusy},
		{syscall.EPIPE, Unexpected},
		{syscall.ESRCH, Unexpected},
	}
	for _, c := range cases {
		if got := classify(c.errno); got != c.want {
			t.Errorf("classify(%v) = %v, want %v", c.errno, got, c.want)
		}
	}
}

func TestErrorWrapsErrno(t *testing.T) {
	err := errnoErr("exec", syscall.ENOENT)
	if err.Kind != FileNotFound {
		t.Fatalf("Kind = %v", err.Kind)
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Fatal("errors.Is(err, ENOENT) = false")
	}
	if !errors.Is(err, &Error{Kind: FileNotFound}) {
		t.Fatal("Kind-only match failed")
	}
	if errors.Is(err, &Error{Kind: NotDir}) {
		t.Fatal("mismatched Kind matched")
	}
	if msg := err.Error(); msg == "" {
		t.Fatal("empty error string")
	}
}

func TestErrorWithoutErrno(t *testing.T) {
	err := &Error{Kind: ChildExecFailed, Op: "wait"}
	if err.Unwrap() != nil {
		t.Fatalf("Unwrap = %v, want nil", err.Unwrap())
	}
	if msg := err.Error(); msg == "" {
		t.Fatal("empty error string")
	}
}
