// Package intercept applies the partition substitution rule to every
// operation of the runtime surface that carries communication-context
// handles.
//
// The layer is a transparent pass-through: it rescopes handle arguments and
// forwards everything else verbatim, in issue order, without batching,
// delaying, or merging calls. The operation inventory is one dispatch table
// mapping each operation to the positions of its handle arguments; adding an
// operation is a table entry, not a new forwarding function.
package intercept
