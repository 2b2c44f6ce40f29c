// Package cache implements named, independent key-value instances with
// per-entry TTL expiry and a fixed capacity.
//
// Each instance is owned by a single goroutine that drains a mailbox of
// requests, so operations on one instance are applied strictly in the order
// they arrive and never race. Expiry is lazy: an entry past its TTL is
// dropped the first time a lookup touches it, and until then it still counts
// toward the instance's capacity.
//
// The package also carries a small JSON protocol so instances can live in a
// separate daemon process: Serve answers requests over a net.Listener, and
// Client/Handle speak the same protocol from the other end.
package cache
