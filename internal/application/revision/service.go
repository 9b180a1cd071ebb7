package revision

import (
	"context"

	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// SubmitScriptInput describes a first script upload.
type SubmitScriptInput struct {
	ProjectID  common.ProjectID
	Title      string
	StorageKey string
	UploadedBy common.UserID
}

// SubmitRevisionInput describes a revision upload against a parent version.
type SubmitRevisionInput struct {
	ParentID   common.ID
	StorageKey string
	UploadedBy common.UserID
}

// Submission is the immediate response to an upload: the created script
// record plus the task handle for the pipeline run.
type Submission struct {
	Script *script.Script `json:"script"`
	Task   Task           `json:"task"`
}

// Service is the submission surface of the pipeline.  Uploads record intent
// and enqueue the pipeline; they never wait for it.  The script's status
// field is the sole progress report.
type Service struct {
	store  Store
	queue  Queue
	logger logging.Logger
}

func NewService(store Store, queue Queue, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{store: store, queue: queue, logger: logger.Named("revision")}
}

// SubmitScript records a first upload in PROCESSING and enqueues its
// pipeline run.
func (s *Service) SubmitScript(ctx context.Context, in SubmitScriptInput) (*Submission, error) {
	sc, err := script.New(in.ProjectID, in.Title, in.StorageKey, in.UploadedBy)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, sc)
}

// SubmitRevision records a new version of an existing script in PROCESSING
// and enqueues its pipeline run.  The parent must be READY or REVIEWING.
func (s *Service) SubmitRevision(ctx context.Context, in SubmitRevisionInput) (*Submission, error) {
	parent, err := s.store.GetScript(ctx, in.ParentID)
	if err != nil {
		return nil, err
	}
	sc, err := script.NewRevision(parent, in.StorageKey, in.UploadedBy)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, sc)
}

func (s *Service) submit(ctx context.Context, sc *script.Script) (*Submission, error) {
	if err := s.store.CreateScript(ctx, sc); err != nil {
		return nil, err
	}

	task := NewReconcileTask(sc.ID)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// The record stays queryable; mark it so the failure is visible
		// without digging through logs.
		if markErr := s.store.MarkScriptError(ctx, sc.ID, "failed to enqueue pipeline: "+err.Error()); markErr != nil {
			s.logger.Error("failed to record enqueue failure",
				logging.String("script_id", sc.ID.String()), logging.Err(markErr))
		}
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to enqueue reconciliation")
	}

	s.logger.Info("script submitted",
		logging.String("script_id", sc.ID.String()),
		logging.String("task_id", task.ID.String()),
		logging.Int("revision", sc.RevisionNumber),
	)
	return &Submission{Script: sc, Task: task}, nil
}

// CompleteReview finishes the first-ingest review: the caller has confirmed
// the detected element list and the script moves from REVIEWING to READY.
func (s *Service) CompleteReview(ctx context.Context, id common.ID) (*script.Script, error) {
	sc, err := s.store.GetScript(ctx, id)
	if err != nil {
		return nil, err
	}
	if sc.Status != script.StatusReviewing {
		return nil, errors.New(errors.ErrCodeScriptStatusInvalid,
			"script is not awaiting review").WithDetail(string(sc.Status))
	}
	if err := s.store.UpdateScriptStatus(ctx, id, script.StatusReviewing, script.StatusReady); err != nil {
		return nil, err
	}
	sc.Status = script.StatusReady

	s.logger.Info("review complete", logging.String("script_id", sc.ID.String()))
	return sc, nil
}

// Status returns the script record; its Status field reports pipeline
// progress.
func (s *Service) Status(ctx context.Context, id common.ID) (*script.Script, error) {
	return s.store.GetScript(ctx, id)
}

// PendingMatches lists a script's unresolved revision matches for display.
func (s *Service) PendingMatches(ctx context.Context, id common.ID) ([]*script.RevisionMatch, error) {
	if _, err := s.store.GetScript(ctx, id); err != nil {
		return nil, err
	}
	return s.store.UnresolvedMatches(ctx, id)
}
