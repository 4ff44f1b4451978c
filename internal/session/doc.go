// Package session runs the per-consumer aggregation pipeline.
//
// A Session subscribes to the pool, the settings store and the ambient audio
// state, recomputes policy, merge, trim and conversion whenever any of them
// changes, debounces bursts and delivers deduplicated lists to its Consumer
// while the lifecycle allows it. Each consumer kind plugs in a Strategy.
//
// Ownership: the pipeline goroutine owns delivery and the last-delivered
// cache. Lifecycle fields are guarded by the session mutex. Consumers must
// not call Destroy synchronously from Deliver; returning an error is how a
// consumer reports that it is gone.
package session
