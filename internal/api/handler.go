package api

import (
	"context"
	"net/http"
	"time"

	"school-admin-core/internal/batch"
	"school-admin-core/internal/config"
	"school-admin-core/internal/logger"
	"school-admin-core/internal/model"
	"school-admin-core/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type SessionService interface {
	Current(ctx context.Context) (model.AcademicSession, error)
	AdvanceTerm(ctx context.Context) (model.AcademicSession, error)
	MigrateToNextSession(ctx context.Context, req model.MigrationRequest) (model.AcademicSession, error)
	UpdateSessionIdentity(ctx context.Context, sessionID int64, upd model.SessionUpdate) (model.AcademicSession, error)
	UpdateSessionDates(ctx context.Context, sessionID int64, termEndsOn, nextTermBeginsOn *time.Time) (model.DatesUpdate, error)
}

type ResultService interface {
	Submit(ctx context.Context, sub model.ResultSubmission) (model.ResultRecord, error)
	List(ctx context.Context) ([]model.ResultRecord, error)
	Delete(ctx context.Context, id string) error
}

type BatchService interface {
	LoadByClass(ctx context.Context, className string, target model.ResultTarget) (*batch.Job, error)
	LoadBySubject(ctx context.Context, subjectID string, target model.ResultTarget) (*batch.Job, error)
	Submit(ctx context.Context, job *batch.Job, onProgress batch.ProgressFunc) (batch.Summary, error)
}

type RunRepository interface {
	ListProgression(ctx context.Context, limit int) ([]model.ProgressionEvent, error)
	CreateBatchRun(ctx context.Context, run model.BatchRun) error
	CompleteBatchRun(ctx context.Context, run model.BatchRun) error
	GetBatchRun(ctx context.Context, id string) (*model.BatchRun, error)
}

type SheetQueue interface {
	EnqueueSheetJob(ctx context.Context, job model.SheetJob) error
	Pending(ctx context.Context) (int64, error)
}

// Services groups everything the handlers call into.
type Services struct {
	Sessions SessionService
	Results  ResultService
	Batches  BatchService
	Runs     RunRepository
	Storage  storage.Storage
	Queue    SheetQueue
}

type Handler struct {
	sessions SessionService
	results  ResultService
	batches  BatchService
	runs     RunRepository
	storage  storage.Storage
	queue    SheetQueue
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(cfg *config.Config, svc Services) *Handler {
	return &Handler{
		sessions: svc.Sessions,
		results:  svc.Results,
		batches:  svc.Batches,
		runs:     svc.Runs,
		storage:  svc.Storage,
		queue:    svc.Queue,
		cfg:      cfg,
		log:      logger.Component("api"),
	}
}

// HealthCheck reports the sheet queue depth; an unreachable queue degrades
// the status without failing the check.
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	}
	pending, err := h.queue.Pending(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read sheet queue depth")
		resp["status"] = "degraded"
	} else {
		resp["queue_depth"] = pending
	}
	c.JSON(http.StatusOK, resp)
}
