// Package jobs runs analyses in the background on an asynq queue and keeps
// their status in Redis.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeAnalysis = "analysis:process"
	QueueName        = "analysis"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is the status record of one background analysis.
type Job struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Filename   string    `json:"filename"`
	AnalysisID string    `json:"analysisId,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Payload is carried by an analysis task.
type Payload struct {
	JobID     string `json:"jobId"`
	AudioPath string `json:"audioPath"`
	Filename  string `json:"filename"`
}

func NewAnalysisTask(p Payload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAnalysis, data), nil
}

func ParsePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if p.JobID == "" || p.AudioPath == "" {
		return p, fmt.Errorf("incomplete task payload: %+v", p)
	}
	return p, nil
}
