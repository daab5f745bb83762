package spawn

import (
	"errors"
	"strings"
	"testing"
)

func TestFileActionsAppendAndOrder(t *testing.T) {
	fa := NewFileActions()
	if err := fa.AddOpen(3, "/dev/null", 0, 0); err != nil {
		t.Fatalf("AddOpen: %v", err)
	}
	if err := fa.AddDup2(3, 1); err != nil {
		t.Fatalf("AddDup2: %v", err)
	}
	if err := fa.AddClose(3); err != nil {
		t.Fatalf("AddClose: %v", err)
	}
	if err := fa.AddChdir("/tmp"); err != nil {
		t.Fatalf("AddChdir: %v", err)
	}
	if err := fa.AddFchdir(5); err != nil {
		t.Fatalf("AddFchdir: %v", err)
	}
	if fa.Len() != 5 {
		t.Fatalf("Len = %d, want 5", fa.Len())
	}
	kinds := []actionKind{actOpen, actDup2, actClose, actChdir, actFchdir}
	for i, k := range kinds {
		if fa.actions[i].kind != k {
			t.Fatalf("action %d kind = %v, want %v", i, fa.actions[i].kind, k)
		}
	}
}

func TestFileActionsRejectsBadDescriptors(t *testing.T) {
	fa := NewFileActions()
	for name, err := range map[string]error{
		"close":  fa.AddClose(-1),
		"dup2":   fa.AddDup2(1, -2),
		"open":   fa.AddOpen(-7, "/dev/null", 0, 0),
		"fchdir": fa.AddFchdir(-1),
	} {
		var se *Error
		if !errors.As(err, &se) || se.Kind != InvalidFileDescriptor {
			t.Fatalf("%s: got %v, want InvalidFileDescriptor", name, err)
		}
	}
	if fa.Len() != 0 {
		t.Fatalf("invalid adds must not append, Len = %d", fa.Len())
	}
}

func TestFileActionsRejectsLongPaths(t *testing.T) {
	long := strings.Repeat("a", pathMax)
	fa := NewFileActions()
	var se *Error
	if err := fa.AddOpen(1, long, 0, 0); !errors.As(err, &se) || se.Kind != NameTooLong {
		t.Fatalf("AddOpen long path: got %v, want NameTooLong", err)
	}
	if err := fa.AddChdir(long); !errors.As(err, &se) || se.Kind != NameTooLong {
		t.Fatalf("AddChdir long path: got %v, want NameTooLong", err)
	}
}

func TestFileActionsReleaseIdempotent(t *testing.T) {
	fa := NewFileActions()
	if err := fa.AddOpen(1, "/dev/null", 0, 0); err != nil {
		t.Fatalf("AddOpen: %v", err)
	}
	fa.Release()
	fa.Release() // must not panic or double-free
	if fa.Len() != 0 {
		t.Fatalf("Len after release = %d", fa.Len())
	}
	if err := fa.AddClose(1); !errors.Is(err, errReleased) {
		t.Fatalf("Add after release: got %v, want errReleased", err)
	}
}

func TestFileActionsMaxFD(t *testing.T) {
	fa := NewFileActions()
	if got := fa.maxFD(); got != -1 {
		t.Fatalf("empty maxFD = %d, want -1", got)
	}
	_ = fa.AddClose(2)
	_ = fa.AddDup2(3, 9)
	_ = fa.AddOpen(4, "/dev/null", 0, 0)
	if got := fa.maxFD(); got != 9 {
		t.Fatalf("maxFD = %d, want 9", got)
	}
}
