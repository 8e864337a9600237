// Package collection provides the bounded, insertion-ordered entity cache used
// for every materialized resource.
//
// A Collection evicts its oldest entry (FIFO by insertion, not LRU) when an
// insert would exceed the configured maximum size. Re-inserting an existing key
// replaces the value and refreshes its position. Traversal helpers run their
// callbacks over a snapshot so callbacks may mutate the collection.
package collection
