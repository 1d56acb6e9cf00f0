// Package lifecycle implements the asynchronous request-lifecycle core.
// It decouples an inbound request from the worker that produces its result:
// a pending request is a single-resolution slot that the task, the deadline
// timer, and the disconnect path race to resolve, with exactly one winner
// and exactly one transmission per request.
package lifecycle
