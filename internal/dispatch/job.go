package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/roomcast/internal/command"
)

// JobState is the lifecycle state of a dispatched job.
type JobState int32

// Job lifecycle states.
const (
	// JobCreated is the initial state: queued, not yet attempted.
	JobCreated JobState = iota

	// JobSent means the publish attempt was claimed; unless a later
	// failure is recorded, the payload reached the broker.
	JobSent

	// JobFailed means the connect or publish step failed. The job is
	// dropped, never retried.
	JobFailed
)

// String returns the state name used in journal rows and logs.
func (s JobState) String() string {
	switch s {
	case JobCreated:
		return "created"
	case JobSent:
		return "sent"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one queued command publish.
//
// The metadata fields are immutable after creation; only the state
// transitions, and only through the atomic claim/fail steps.
type Job struct {
	// ID uniquely identifies the job across the journal, logs, and
	// telemetry.
	ID uuid.UUID

	// Action, Room and Percent describe the trigger for the journal.
	Action  command.Action
	Room    string
	Percent int

	// Payload is the encoded wire payload.
	Payload string

	// Created is when the job was enqueued.
	Created time.Time

	state atomic.Int32
}

// newJob builds a queued job in the Created state.
func newJob(action command.Action, room string, percent int, payload string) *Job {
	return &Job{
		ID:      uuid.New(),
		Action:  action,
		Room:    room,
		Percent: percent,
		Payload: payload,
		Created: time.Now(),
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() JobState {
	return JobState(j.state.Load())
}

// claim takes the one-shot latch: the Created → Sent transition.
// Only the first call returns true; the publish must not proceed
// after a false return.
func (j *Job) claim() bool {
	return j.state.CompareAndSwap(int32(JobCreated), int32(JobSent))
}

// fail records a failed attempt from either the unclaimed or the
// claimed state. Calling fail on an already failed job is a no-op.
func (j *Job) fail() {
	if !j.state.CompareAndSwap(int32(JobCreated), int32(JobFailed)) {
		j.state.CompareAndSwap(int32(JobSent), int32(JobFailed))
	}
}
