package video

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/pkg/byteplus"
	"github.com/reelworks/reelworks-api/internal/pkg/storage"
)

// JobStore is the persistence surface the service and poller need
type JobStore interface {
	CreateWithDebit(ctx context.Context, job *Job) (*credit.LedgerEntry, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, taskID string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, videoKey, thumbnailKey string, durationSec int) error
	MarkFailedWithRefund(ctx context.Context, id uuid.UUID, reason string) error
	ListOutstanding(ctx context.Context) ([]Job, error)
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*Job, error)
	List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Job, int, error)
	IncrementDownloads(ctx context.Context, id, userID uuid.UUID) error
	IncrementShares(ctx context.Context, id, userID uuid.UUID) error
	SoftDelete(ctx context.Context, id, userID uuid.UUID) error
}

// BalanceReader reads a user's credit balance for the precheck
type BalanceReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Generator is the provider surface for task submission and polling
type Generator interface {
	SubmitTask(ctx context.Context, req byteplus.TaskRequest) (string, error)
	GetTask(ctx context.Context, taskID string) (*byteplus.TaskStatus, error)
	Download(ctx context.Context, mediaURL string) (io.ReadCloser, error)
}

// Service handles video generation jobs
type Service struct {
	repo       JobStore
	balances   BalanceReader
	provider   Generator
	store      storage.ObjectStorage
	presignTTL time.Duration
}

// NewService creates a new video service
func NewService(repo JobStore, balances BalanceReader, provider Generator, store storage.ObjectStorage, presignTTL time.Duration) *Service {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Service{
		repo:       repo,
		balances:   balances,
		provider:   provider,
		store:      store,
		presignTTL: presignTTL,
	}
}

// Quote prices a job without creating it
func (s *Service) Quote(settings Settings) int64 {
	return CreditsFor(settings)
}

// Generate debits the cost, creates the job, and submits it to the
// provider. The debit commits before the submit so a crash between
// the two leaves a pending job the poller can sweep and refund; the
// reverse order could generate video that was never paid for.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*JobView, int64, error) {
	settings := req.ToSettings()
	cost := CreditsFor(settings)

	balance, err := s.balances.GetBalance(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if balance < cost {
		return nil, 0, &InsufficientCreditsError{Required: cost, Current: balance}
	}

	job := &Job{
		UserID:      userID,
		Title:       req.Title,
		Prompt:      req.Prompt,
		Settings:    settings,
		CreditsUsed: cost,
	}
	if req.NegativePrompt != "" {
		job.NegativePrompt = &req.NegativePrompt
	}

	entry, err := s.repo.CreateWithDebit(ctx, job)
	if err != nil {
		if errors.Is(err, credit.ErrInsufficientCredits) {
			// lost a race against another debit since the precheck
			current, balErr := s.balances.GetBalance(ctx, userID)
			if balErr != nil {
				current = balance
			}
			return nil, 0, &InsufficientCreditsError{Required: cost, Current: current}
		}
		return nil, 0, err
	}

	prompt := job.Prompt
	if settings.Style != "" {
		prompt += ", " + settings.Style + " style"
	}

	taskID, err := s.provider.SubmitTask(ctx, byteplus.TaskRequest{
		Prompt:      prompt,
		Resolution:  settings.Resolution,
		Duration:    settings.Duration,
		Ratio:       settings.AspectRatio(),
		CameraFixed: settings.CameraFixed,
	})
	if err != nil {
		log.Warn().Err(err).Str("video_id", job.ID.String()).Msg("Provider submit failed")
		if failErr := s.repo.MarkFailedWithRefund(ctx, job.ID, "submission failed"); failErr != nil {
			log.Error().Err(failErr).Str("video_id", job.ID.String()).Msg("Failed to refund after submit failure")
		}
		return nil, 0, ErrProvider
	}

	if err := s.repo.MarkProcessing(ctx, job.ID, taskID); err != nil {
		// the job stays pending; the poller will pick it up
		log.Error().Err(err).Str("video_id", job.ID.String()).Msg("Failed to mark job processing")
	} else {
		job.Status = StatusProcessing
		job.ProviderTaskID = &taskID
	}

	log.Info().
		Str("video_id", job.ID.String()).
		Str("user_id", userID.String()).
		Str("task_id", taskID).
		Int64("credits", cost).
		Msg("Generation job submitted")

	return &JobView{Job: job}, entry.BalanceAfter, nil
}

// Get returns a job with presigned media URLs when completed
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*JobView, error) {
	job, err := s.repo.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, job), nil
}

// List returns a page of the user's jobs
func (s *Service) List(ctx context.Context, userID uuid.UUID, status Status, search string, page, perPage int) ([]JobView, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	jobs, total, err := s.repo.List(ctx, userID, ListFilter{
		Status: status,
		Search: search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, 0, err
	}

	views := make([]JobView, len(jobs))
	for i := range jobs {
		views[i] = *s.decorate(ctx, &jobs[i])
	}
	return views, total, nil
}

// RecordDownload bumps the counter and returns a fresh download URL
func (s *Service) RecordDownload(ctx context.Context, userID, id uuid.UUID) (string, error) {
	if err := s.repo.IncrementDownloads(ctx, id, userID); err != nil {
		return "", err
	}

	job, err := s.repo.GetOwned(ctx, id, userID)
	if err != nil {
		return "", err
	}
	if job.VideoKey == nil {
		return "", ErrNotReady
	}

	return s.store.PresignGet(ctx, *job.VideoKey, s.presignTTL)
}

// RecordShare bumps the share counter on a completed job
func (s *Service) RecordShare(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.IncrementShares(ctx, id, userID)
}

// Delete soft-deletes a terminal job
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id, userID)
}

func (s *Service) decorate(ctx context.Context, job *Job) *JobView {
	view := &JobView{Job: job}
	if job.Status != StatusCompleted {
		return view
	}

	if job.VideoKey != nil {
		if u, err := s.store.PresignGet(ctx, *job.VideoKey, s.presignTTL); err == nil {
			view.VideoURL = u
		} else {
			log.Warn().Err(err).Str("video_id", job.ID.String()).Msg("Failed to presign video url")
		}
	}
	if job.ThumbnailKey != nil {
		if u, err := s.store.PresignGet(ctx, *job.ThumbnailKey, s.presignTTL); err == nil {
			view.ThumbnailURL = u
		}
	}
	return view
}
