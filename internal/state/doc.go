// Package state implements the in-process application state store.
//
// A Store holds a flat tree of values keyed by validated Paths, an append-only
// history of every accepted write, and a registry of per-path subscriptions.
//
// Writes are synchronous: Set updates the tree, appends a HistoryEntry, notifies
// change observers and then invokes every active subscriber of exactly that path,
// in registration order, before returning. Top-level writes are serialized so a
// write and its full fan-out complete before the next top-level write starts.
//
// Listeners may write again through the context they receive. Such nested writes
// are dispatched depth-first and are bounded by WithMaxDispatchDepth, or rejected
// outright with WithNestedWrites(NestedReject). A listener that writes with a
// context not derived from the one it was handed is treated as a top-level write:
// it waits for the dispatch slot its own caller holds and fails with
// ErrDispatchTimeout after WithDispatchTimeout.
//
// Reset clears values and history but keeps subscriptions. Dispose releases
// everything and makes later writes and subscriptions fail with ErrStoreDisposed.
package state
