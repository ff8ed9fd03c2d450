package dispatch

import "errors"

// Dispatcher errors.
var (
	// ErrQueueFull indicates the job queue is at capacity. The job was
	// not enqueued; the caller should reject the trigger.
	ErrQueueFull = errors.New("dispatch: queue full")

	// ErrNotRunning indicates Dispatch was called before Start or after
	// Stop.
	ErrNotRunning = errors.New("dispatch: dispatcher not running")

	// ErrAlreadyDispatched indicates a job that has already left the
	// Created state reached the publish step again.
	ErrAlreadyDispatched = errors.New("dispatch: job already dispatched")
)
