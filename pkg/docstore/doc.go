// Package docstore defines a generic document store abstraction used for all
// application persistence, plus a MongoDB-backed implementation and an
// in-memory implementation for tests.
//
// The interface is deliberately narrow: collections of ID-addressed
// documents, filtered queries, partial updates, atomic increments and
// ordered multi-document batches. Higher-level stores (usage counters,
// subscriptions) are built on top of it and never touch the driver directly.
package docstore
