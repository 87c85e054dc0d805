// Package commtest provides an in-process communicator fabric for tests.
//
// A Fabric hosts a fixed number of ranks, one goroutine each, and gives
// every rank its own comm.Runtime. Point-to-point messages go through
// per-rank mailboxes, collectives through a generation-counted exchange,
// and context handles are deliberately distinct values per rank so that
// identity only holds up under Compare, exactly as with a real runtime.
package commtest
