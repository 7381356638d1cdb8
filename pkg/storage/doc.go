/*
Package storage provides BoltDB-backed persistence for the backup engine.

Every repository (paths, blobs, events, runs) is a thin layer over one
bucket in a single BoltDB file. Rows are serialized as JSON; numeric
primary keys use BoltDB's NextSequence to get strictly monotonic,
auto-incrementing ids without a separate sequence table.

# Architecture

	┌──────────────────── BOLTDB STORE ──────────────────────┐
	│  Store                                                   │
	│   - File: the path passed to Open/Create/OpenExisting    │
	│   - Buckets: paths, blobs, events, runs                  │
	│   - Pool: bounds concurrent units of work                │
	└───────────────────────────────────────────────────────-─┘

# Connection pool

A unit of work (see pkg/unitofwork) acquires a *Conn from the Store's
Pool before beginning a BoltDB transaction, and releases it when the
unit of work closes. Because BoltDB itself serializes writers, the pool
models a ceiling on concurrently *open* units of work rather than on
concurrent writes; it exists so that a burst of queued jobs degrades by
blocking new units of work in FIFO order rather than by holding
unboundedly many open transactions.

# Repositories

Lookups that aren't by primary key (e.g. find a path by its full
string, find the last changed event for a path) are implemented as
linear bucket scans, the same trade-off the original cluster-state
repositories in this codebase make for secondary lookups: BoltDB has no
secondary indexes, and maintaining hand-rolled ones is not worth the
complexity at the scale this store targets.
*/
package storage
