// Package sync persists catalog mutations to the remote content
// repository.
//
// The authoritative state is the collection document at the head of a
// single branch. Because the hosting API offers no transactions, the
// coordinator builds atomicity out of git object writes:
//
//	read ref ─▶ read collection ─▶ (blob for asset) ─▶ mutate in
//	memory ─▶ tree ─▶ commit ─▶ conditional ref update
//
// Nothing is visible at the branch head until the final ref update, so
// the collection document and an uploaded asset either both land or
// neither does. The ref update runs with force=false: if a concurrent
// writer advanced the branch after the coordinator read it, the update
// is rejected and the whole attempt fails with
// ErrConcurrentModification. The caller must then discard its
// optimistic local state, re-fetch the collection, and redo the
// mutation from scratch. No merge is ever attempted.
//
// On success the coordinator returns the collection it committed, and
// the local cache must replace its state with that value rather than
// trust its own optimistic projection.
//
// A second, legacy path (Coordinator.OverwriteItems and friends) does
// a plain sha-guarded single-file PUT. It cannot bundle an asset and
// has a wider race window, but it is enough for documents that are
// always rewritten whole, like feedbacks.json.
package sync
