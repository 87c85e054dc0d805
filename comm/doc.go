// Package comm defines the messaging-runtime surface the wraprun layer
// interposes on: the opaque communication-context handle, the runtime's own
// handle comparison primitive, and the inventory of operations whose
// signatures carry context handles.
//
// The package contains no transport. A Runtime implementation is supplied by
// the embedding environment (a binding to a real message-passing library, or
// the in-process fabric in commtest for tests). Programs hosted under wraprun
// never talk to the Runtime directly; they receive an interposed Runtime from
// the Manager that rescopes every world-addressed operation to the process's
// partition.
//
// Handle identity is defined by Runtime.Compare, never by Go equality. Two
// handles may denote the same context while being distinct values, exactly as
// opaque handles behave under the underlying standard.
package comm
