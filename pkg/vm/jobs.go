package vm

import (
	"github.com/rs/zerolog"
)

// Job is a pending reaction, e.g. a promise reaction.
type Job func() error

// JobQueue is a FIFO of pending jobs. It is drained only when the embedder
// asks for it, between top-level evaluations.
type JobQueue struct {
	jobs   []Job
	head   int
	logger zerolog.Logger
}

// Enqueue appends job to the queue.
func (q *JobQueue) Enqueue(job Job) {
	q.jobs = append(q.jobs, job)
}

// Len returns the number of pending jobs.
func (q *JobQueue) Len() int { return len(q.jobs) - q.head }

// Drain runs jobs in FIFO order until the queue is empty, including jobs
// enqueued while draining. It stops at the first failing job and returns
// its error; the remaining jobs stay queued.
func (q *JobQueue) Drain() error {
	ran := 0
	for q.head < len(q.jobs) {
		job := q.jobs[q.head]
		q.jobs[q.head] = nil
		q.head++
		if q.head == len(q.jobs) {
			q.jobs = q.jobs[:0]
			q.head = 0
		}
		ran++
		if err := job(); err != nil {
			q.logger.Debug().Int("ran", ran).Err(err).Msg("job failed")
			return err
		}
	}
	if ran > 0 {
		q.logger.Debug().Int("ran", ran).Msg("job queue drained")
	}
	return nil
}
