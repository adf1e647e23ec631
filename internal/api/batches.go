package api

import (
	"context"
	"net/http"
	"strings"

	"school-admin-core/internal/batch"
	"school-admin-core/internal/model"
	"school-admin-core/internal/storage"
	"school-admin-core/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type batchEntry struct {
	UIN string `json:"uin"`
	scoresPayload
}

type batchRequest struct {
	SubjectCode string       `json:"subject_code"`
	Term        string       `json:"term"`
	Session     string       `json:"session"`
	ClassName   string       `json:"class_name"`
	SubjectID   string       `json:"subject_id"`
	Entries     []batchEntry `json:"entries"`
}

func (r batchRequest) target() (model.ResultTarget, error) {
	return newTarget(r.SubjectCode, r.Term, r.Session)
}

func newTarget(subject, term, session string) (model.ResultTarget, error) {
	target := model.ResultTarget{SubjectCode: subject, Session: session}
	if term != "" {
		t, err := model.ParseTerm(term)
		if err != nil {
			return target, errors.ValidationError{Field: "term", Value: term, Message: "must be First, Second or Third"}
		}
		target.Term = t
	}
	return target, nil
}

// SubmitBatch loads the roster, applies the posted scores and uploads every
// filled-in row before responding.
func (h *Handler) SubmitBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	target, err := req.target()
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	var job *batch.Job
	switch {
	case req.ClassName != "":
		job, err = h.batches.LoadByClass(ctx, req.ClassName, target)
	case req.SubjectID != "":
		job, err = h.batches.LoadBySubject(ctx, req.SubjectID, target)
	default:
		err = errors.ValidationError{Field: "class_name", Message: "class_name or subject_id is required"}
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	for _, e := range req.Entries {
		if err := job.SetScores(strings.TrimSpace(e.UIN), e.scores()); err != nil {
			h.writeError(c, err)
			return
		}
	}

	run := model.BatchRun{
		ID:          uuid.NewString(),
		SubjectCode: target.SubjectCode,
		Term:        target.Term,
		Session:     target.Session,
		Source:      model.BatchSourceInline,
		Status:      model.BatchRunRunning,
	}
	if err := h.runs.CreateBatchRun(ctx, run); err != nil {
		h.log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record batch run")
	}

	summary, err := h.batches.Submit(ctx, job, nil)
	run.Attempted = summary.Attempted
	run.Succeeded = summary.Succeeded
	run.Failed = summary.Failed
	run.Skipped = summary.Skipped
	run.Status = summary.Status()
	run.Message = summary.Message
	if err != nil && !errors.Is(err, errors.ErrBatchFailed) {
		run.Status = model.BatchRunFailed
	}
	if err := h.runs.CompleteBatchRun(context.WithoutCancel(ctx), run); err != nil {
		h.log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record batch outcome")
	}

	body := gin.H{"run_id": run.ID, "status": run.Status, "summary": summary}
	switch {
	case errors.Is(err, errors.ErrBatchFailed):
		c.JSON(http.StatusBadGateway, body)
	case err != nil:
		h.writeError(c, err)
	default:
		c.JSON(http.StatusOK, body)
	}
}

// UploadSheet stores a score sheet and queues it for the batch worker.
func (h *Handler) UploadSheet(c *gin.Context) {
	target, err := newTarget(c.PostForm("subject_code"), c.PostForm("term"), c.PostForm("session"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	switch {
	case target.SubjectCode == "":
		h.writeError(c, errors.ErrMissingSubject)
		return
	case target.Session == "":
		h.writeError(c, errors.ErrMissingSession)
		return
	case target.Term == "":
		h.writeError(c, errors.ErrMissingTerm)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A score sheet file is required"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		h.writeError(c, errors.ErrInvalidFileFormat)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	run := model.BatchRun{
		ID:          uuid.NewString(),
		SubjectCode: target.SubjectCode,
		Term:        target.Term,
		Session:     target.Session,
		Source:      model.BatchSourceSheet,
		Status:      model.BatchRunQueued,
	}
	key := storage.SheetKey(run.ID, header.Filename)

	if err := h.storage.Upload(ctx, key, file); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.runs.CreateBatchRun(ctx, run); err != nil {
		h.writeError(c, err)
		return
	}

	job := model.SheetJob{
		RunID:       run.ID,
		S3Path:      key,
		SubjectCode: target.SubjectCode,
		Term:        target.Term,
		Session:     target.Session,
	}
	if err := h.queue.EnqueueSheetJob(ctx, job); err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to enqueue sheet job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue score sheet"})
		return
	}

	h.log.Info().
		Str("run_id", run.ID).
		Str("subject", target.SubjectCode).
		Str("s3_path", key).
		Msg("Score sheet queued")

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Score sheet queued for upload",
		"run_id":  run.ID,
		"job":     job,
	})
}

func (h *Handler) GetBatchRun(c *gin.Context) {
	run, err := h.runs.GetBatchRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
