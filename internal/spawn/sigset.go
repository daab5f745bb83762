package spawn

import "syscall"

// SigSet is a 64-bit signal set matching the kernel sigset layout used
// by rt_sigprocmask/rt_sigaction with an 8-byte mask.
type SigSet uint64

// sigsetSize is the mask size passed to the rt_ signal syscalls.
const sigsetSize = 8

func (s *SigSet) Add(sig syscall.Signal) {
	if sig < 1 || sig > 64 {
		return
	}
	*s |= 1 << (uint(sig) - 1)
}

func (s *SigSet) Del(sig syscall.Signal) {
	if sig < 1 || sig > 64 {
		return
	}
	*s &^= 1 << (uint(sig) - 1)
}

func (s SigSet) Has(sig syscall.Signal) bool {
	if sig < 1 || sig > 64 {
		return false
	}
	return s&(1<<(uint(sig)-1)) != 0
}

// Fill sets every signal. SIGKILL and SIGSTOP are skipped at apply
// time, not here.
func (s *SigSet) Fill() { *s = ^SigSet(0) }

func (s *SigSet) Clear() { *s = 0 }
