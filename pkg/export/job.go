package export

import "time"

// Status is the lifecycle state of an encoding job.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusEncoding  Status = "encoding"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the job has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// Job is the state of one export. It is created when Encode starts, mutated
// only by the exporter in response to worker events, and handed to progress
// callbacks as a snapshot.
type Job struct {
	ID                 string
	Status             Status
	Progress           float64 // 0-100
	CurrentFrame       int
	TotalFrames        int
	StartTime          time.Time
	EstimatedRemaining time.Duration
	EncoderID          string
	Result             []byte // encoded GIF on success, nil otherwise
	Err                string // failure cause, empty for success and cancellation
}
