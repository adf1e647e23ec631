package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"school-admin-core/internal/batch"
	"school-admin-core/internal/config"
	"school-admin-core/internal/excel"
	"school-admin-core/internal/logger"
	"school-admin-core/internal/model"
	"school-admin-core/internal/queue"
	"school-admin-core/internal/storage"
	"school-admin-core/pkg/errors"

	"github.com/rs/zerolog"
)

// RunStore is the part of the repository that tracks batch runs.
type RunStore interface {
	UpdateBatchRunStatus(ctx context.Context, id string, status model.BatchRunStatus, message string) error
	CompleteBatchRun(ctx context.Context, run model.BatchRun) error
}

type BatchSubmitter interface {
	Submit(ctx context.Context, job *batch.Job, onProgress batch.ProgressFunc) (batch.Summary, error)
}

// BatchWorker turns uploaded score sheets into result submissions.
type BatchWorker struct {
	cfg        *config.Config
	runs       RunStore
	storage    storage.Storage
	parser     excel.ParsingStrategy
	submitter  BatchSubmitter
	consumer   *queue.Consumer
	workerPool *WorkerPool
	log        zerolog.Logger
}

func NewBatchWorker(
	cfg *config.Config,
	runs RunStore,
	storage storage.Storage,
	submitter BatchSubmitter,
	redisClient *queue.RedisClient,
) *BatchWorker {
	w := &BatchWorker{
		cfg:        cfg,
		runs:       runs,
		storage:    storage,
		parser:     excel.NewExcelStrategy(),
		submitter:  submitter,
		workerPool: NewWorkerPool(cfg.Workers.Batch.Count),
		log:        logger.Component("batch_worker"),
	}
	if redisClient != nil {
		w.consumer = queue.NewConsumer(redisClient, cfg)
	}
	return w
}

func (w *BatchWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting batch worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeBatchQueue(ctx, w.handleMessage)
}

func (w *BatchWorker) Stop() {
	w.log.Info().Msg("Stopping batch worker")
	w.workerPool.Stop()
}

func (w *BatchWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.SheetJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal sheet job")
		return err
	}
	if job.RunID == "" || job.S3Path == "" {
		return fmt.Errorf("sheet job missing run_id or s3_path")
	}

	w.log.Info().Str("run_id", job.RunID).Str("s3_path", job.S3Path).Msg("Processing sheet job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		_, err := w.ProcessSheet(ctx, job)
		return err
	})
}

// ProcessSheet downloads, parses and submits one score sheet, then records
// the outcome and writes a JSON report next to it.
func (w *BatchWorker) ProcessSheet(ctx context.Context, job model.SheetJob) (model.BatchRun, error) {
	log := w.log.With().Str("run_id", job.RunID).Logger()
	run := model.BatchRun{
		ID:          job.RunID,
		SubjectCode: job.SubjectCode,
		Term:        job.Term,
		Session:     job.Session,
		Source:      model.BatchSourceSheet,
		Status:      model.BatchRunRunning,
	}

	if err := w.runs.UpdateBatchRunStatus(ctx, run.ID, model.BatchRunRunning, ""); err != nil {
		log.Warn().Err(err).Msg("Failed to mark batch run as running")
	}

	rows, err := w.loadRows(ctx, job.S3Path)
	if err != nil {
		log.Error().Err(err).Msg("Score sheet rejected")
		run.Status = model.BatchRunFailed
		run.Message = err.Error()
		w.finish(ctx, log, run)
		return run, err
	}

	target := model.ResultTarget{SubjectCode: job.SubjectCode, Term: job.Term, Session: job.Session}
	summary, err := w.submitter.Submit(ctx, batch.JobFromRows(target, rows), func(p batch.Progress) {
		log.Debug().Int("current", p.Current).Int("total", p.Total).Msg("Batch progress")
	})

	run.Attempted = summary.Attempted
	run.Succeeded = summary.Succeeded
	run.Failed = summary.Failed
	run.Skipped = summary.Skipped
	run.Status = summary.Status()
	run.Message = summary.Message

	switch {
	case ctx.Err() != nil:
		run.Status = model.BatchRunFailed
		run.Message = fmt.Sprintf("Upload cancelled after %d of %d", summary.Attempted, len(rows)-summary.Skipped)
	case err != nil && !errors.Is(err, errors.ErrBatchFailed) && !errors.Is(err, errors.ErrNothingToSubmit):
		run.Status = model.BatchRunFailed
		run.Message = errors.UserMessage(err)
	}

	w.finish(ctx, log, run)
	return run, err
}

func (w *BatchWorker) loadRows(ctx context.Context, key string) ([]model.SheetRow, error) {
	reader, err := w.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read score sheet: %w", err)
	}

	rows, err := w.parser.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := w.parser.Validate(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// finish records the run even when ctx has ended.
func (w *BatchWorker) finish(ctx context.Context, log zerolog.Logger, run model.BatchRun) {
	ctx = context.WithoutCancel(ctx)

	if err := w.runs.CompleteBatchRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record batch run")
	}

	report, err := json.Marshal(run)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode batch report")
		return
	}
	key := storage.ReportKey(w.cfg.Storage.S3.ReportPrefix, run.ID)
	if err := w.storage.Upload(ctx, key, bytes.NewReader(report)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload batch report")
		return
	}

	log.Info().
		Str("status", string(run.Status)).
		Int("succeeded", run.Succeeded).
		Int("failed", run.Failed).
		Str("report", key).
		Msg("Batch run finished")
}
