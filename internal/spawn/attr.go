package spawn

import "fmt"

// Flags selects which Attr payload fields the child honors. A payload
// field is read only when its bit is set, mirroring optional-field
// semantics without per-field option types.
type Flags uint16

const (
	// ResetIDs drops effective uid/gid back to the real ids.
	ResetIDs Flags = 1 << iota
	// SetPGroup moves the child into the process group in PGroup
	// (0 means a new group led by the child).
	SetPGroup
	// SetSigDef restores default dispositions for the signals in the
	// default set before the mask is applied.
	SetSigDef
	// SetSigMask installs the attribute signal mask; otherwise the
	// caller's saved mask is restored in the child.
	SetSigMask
	// SetSchedParam applies the scheduling priority.
	SetSchedParam
	// SetScheduler applies the scheduling policy and priority.
	SetScheduler
	// UseVFork suspends the parent until the child execs or exits.
	UseVFork
	// SetSid creates a new session for the child.
	SetSid
)

const knownFlags = ResetIDs | SetPGroup | SetSigDef | SetSigMask |
	SetSchedParam | SetScheduler | UseVFork | SetSid

// Attr is a write-only bag of process attributes applied in the child
// before exec. The zero value applies nothing.
type Attr struct {
	flags         Flags
	pgroup        int
	sigDefault    SigSet
	sigMask       SigSet
	schedPolicy   int
	schedPriority int
}

func NewAttr() *Attr { return &Attr{} }

// SetFlags replaces the flag set. Bits outside the known universe are a
// contract violation and rejected here, not at spawn time.
func (a *Attr) SetFlags(f Flags) error {
	if f&^knownFlags != 0 {
		return fmt.Errorf("spawn: unknown attribute flags %#x", uint16(f&^knownFlags))
	}
	a.flags = f
	return nil
}

func (a *Attr) Flags() Flags { return a.flags }

// SetPGroup records the target process group; honored only with the
// SetPGroup flag.
func (a *Attr) SetPGroup(pgid int) { a.pgroup = pgid }

// SetSigDefault records the set of signals reset to their default
// disposition; honored only with the SetSigDef flag.
func (a *Attr) SetSigDefault(s SigSet) { a.sigDefault = s }

// SetSigMask records the child's signal mask; honored only with the
// SetSigMask flag.
func (a *Attr) SetSigMask(s SigSet) { a.sigMask = s }

// SetSched records scheduling policy and priority; policy is honored
// with SetScheduler, priority alone with SetSchedParam.
func (a *Attr) SetSched(policy, priority int) {
	a.schedPolicy = policy
	a.schedPriority = priority
}
