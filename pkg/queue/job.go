package queue

import "context"

// Job is a unit of background work pulled off the queue.
type Job interface {
	// Name identifies the job in logs and registration.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle runs the job against a decoded payload.
	Handle(ctx context.Context, payload interface{}) error
}
