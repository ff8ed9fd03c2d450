// Package dispatch owns the publish path from trigger to broker.
//
// Every command publish in Roomcast flows through one Dispatcher: a
// bounded queue drained by a single worker goroutine that exclusively
// owns the broker connection. Serializing the path this way means
// connect and publish never race, no matter how many triggers fire at
// once.
//
// # Job Lifecycle
//
// Dispatch enqueues a Job and returns its ID immediately; the worker
// completes it later. A job moves through exactly one transition out
// of Created:
//
//	Created ──claim──> Sent ──publish error──> Failed
//	   └──connect error──> Failed
//
// The Created exit is a compare-and-swap taken immediately before the
// publish call, so a job can never be published twice. There are no
// retries: a failed job is reported and dropped.
//
// # Backpressure
//
// The queue is bounded. When it is full, Dispatch fails fast with
// ErrQueueFull instead of blocking the caller; the HTTP boundary maps
// that to a client-visible rejection.
//
// # Outcomes
//
// Every completed job, sent or failed, is reported once through the
// outcome callback with its publish latency. The callback is where the
// journal, telemetry, and event stream attach.
package dispatch
