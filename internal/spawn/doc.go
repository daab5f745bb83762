// Package spawn implements a posix_spawn-style process creation engine.
//
// Spawn clones a child, replays an ordered list of file-descriptor
// actions and a set of process attributes inside the child, and then
// execs the target program. Failures anywhere on the child path are
// reported back to the parent over a close-on-exec pipe, so the caller
// either receives a live, post-exec PID or a typed error and no child.
//
// The engine is synchronous and not safe for concurrent Spawn calls
// from multiple goroutines: the fork window relies on process-global
// signal state. There is no cancellation of an in-flight Spawn; the
// caller may only signal the returned PID and Wait on it.
package spawn
