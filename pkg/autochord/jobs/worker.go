package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/himanishpuri/AutoChord/pkg/models"
	"github.com/himanishpuri/AutoChord/pkg/utils"
)

type Analyzer interface {
	Analyze(ctx context.Context, audioPath, filename string) (*models.Analysis, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Worker processes analysis tasks.
type Worker struct {
	analyzer Analyzer
	store    Store
	log      Logger
}

func NewWorker(analyzer Analyzer, store Store, log Logger) *Worker {
	return &Worker{analyzer: analyzer, store: store, log: log}
}

// Register installs the worker on mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeAnalysis, w.ProcessTask)
}

// ProcessTask runs one analysis and records its outcome. The spooled upload
// is removed whatever the outcome, so failures are not retried.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	p, err := ParsePayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	defer func() {
		if err := utils.DeleteFile(p.AudioPath); err != nil {
			w.log.Errorf("Failed to remove spooled upload %s: %v", p.AudioPath, err)
		}
	}()

	job, err := w.store.Get(ctx, p.JobID)
	if err != nil {
		job = &Job{ID: p.JobID, Filename: p.Filename, CreatedAt: time.Now().UTC()}
	}

	w.log.Infof("Starting analysis job %s (%s)", job.ID, p.Filename)
	w.update(ctx, job, StatusRunning, "", "")

	analysis, err := w.analyzer.Analyze(ctx, p.AudioPath, p.Filename)
	if err != nil {
		w.update(ctx, job, StatusFailed, "", err.Error())
		w.log.Errorf("Analysis job %s failed: %v", job.ID, err)
		return fmt.Errorf("analysis job %s: %v: %w", job.ID, err, asynq.SkipRetry)
	}

	w.update(ctx, job, StatusSucceeded, analysis.ID, "")
	w.log.Infof("Analysis job %s completed: %s", job.ID, analysis.ID)
	return nil
}

func (w *Worker) update(ctx context.Context, job *Job, status Status, analysisID, errMsg string) {
	job.Status = status
	job.AnalysisID = analysisID
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
	if err := w.store.Save(ctx, job); err != nil {
		w.log.Errorf("Failed to update job %s: %v", job.ID, err)
	}
}
