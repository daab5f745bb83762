//go:build linux

package spawn

import _ "unsafe" // for go:linkname

// The fork window reuses the runtime's own pre/post fork hooks, the
// same ones syscall.forkExec runs. beforeFork stops the world's signal
// delivery for this M and afterFork undoes it; afterForkInChild fixes
// runtime state in the child, after which no Go function that can grow
// the stack or allocate may run until exec.

//go:linkname beforeFork syscall.runtime_BeforeFork
func beforeFork()

//go:linkname afterFork syscall.runtime_AfterFork
func afterFork()

//go:linkname afterForkInChild syscall.runtime_AfterForkInChild
func afterForkInChild()
