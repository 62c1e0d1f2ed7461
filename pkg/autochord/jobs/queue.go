package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Queue struct {
	store    Store
	client   Enqueuer
	maxRetry int
}

func NewQueue(store Store, client Enqueuer) *Queue {
	return &Queue{store: store, client: client, maxRetry: 2}
}

// Enqueue records a queued job for the spooled upload at audioPath and
// schedules its analysis. The worker owns audioPath once this succeeds.
func (q *Queue) Enqueue(ctx context.Context, audioPath, filename string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusQueued,
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := NewAnalysisTask(Payload{JobID: job.ID, AudioPath: audioPath, Filename: filename})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(q.maxRetry),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(DefaultTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return job, nil
}

func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	return q.store.Get(ctx, id)
}
