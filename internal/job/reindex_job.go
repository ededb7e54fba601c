package job

import (
	"context"

	"github.com/opennote/semindex/internal/indexengine"
	"github.com/opennote/semindex/internal/pkg/apperr"
)

// ReindexJob runs a scheduled incremental reindex, grounded on the teacher's
// internal/job/ai_embedding_job.go. It shares the Engine's own intra-process
// mutex, so a tick that lands during a manual run simply observes Busy.
type ReindexJob struct {
	engine *indexengine.Engine
}

func NewReindexJob(engine *indexengine.Engine) *ReindexJob {
	return &ReindexJob{engine: engine}
}

func (j *ReindexJob) Name() string {
	return "incremental_reindex"
}

func (j *ReindexJob) Run(ctx context.Context) error {
	j.engine.ResetCancel()
	err := j.engine.Update(ctx, indexengine.Options{ReindexAll: false}, nil)
	if apperr.IsBusy(err) {
		return nil
	}
	return err
}
