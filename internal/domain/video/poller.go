package video

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/pkg/byteplus"
	"github.com/reelworks/reelworks-api/internal/pkg/storage"
)

// Poller is the single observer of provider task completion. Handlers
// never query the provider; they read whatever state the poller last
// committed, so every job resolves exactly once even with concurrent
// readers.
type Poller struct {
	repo         JobStore
	provider     Generator
	store        storage.ObjectStorage
	interval     time.Duration
	timeout      time.Duration
	pendingGrace time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// PollerConfig tunes the reconciliation loop
type PollerConfig struct {
	Interval     time.Duration // time between sweeps
	Timeout      time.Duration // max job age before forced failure
	PendingGrace time.Duration // how long a job may sit pending without a task id
}

// NewPoller creates a new job poller
func NewPoller(repo JobStore, provider Generator, store storage.ObjectStorage, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Hour
	}
	if cfg.PendingGrace <= 0 {
		cfg.PendingGrace = 10 * time.Minute
	}

	return &Poller{
		repo:         repo,
		provider:     provider,
		store:        store,
		interval:     cfg.Interval,
		timeout:      cfg.Timeout,
		pendingGrace: cfg.PendingGrace,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the reconciliation loop in a background goroutine
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		log.Info().
			Dur("interval", p.interval).
			Dur("timeout", p.timeout).
			Msg("Video poller started")

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), p.interval)
				p.ReconcileOutstanding(ctx)
				cancel()
			case <-p.stopCh:
				log.Info().Msg("Video poller stopped")
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for the current sweep to finish
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// ReconcileOutstanding sweeps every non-terminal job once. Errors on
// one job never block the others.
func (p *Poller) ReconcileOutstanding(ctx context.Context) {
	jobs, err := p.repo.ListOutstanding(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list outstanding jobs")
		return
	}

	for i := range jobs {
		p.reconcileJob(ctx, &jobs[i])
	}
}

func (p *Poller) reconcileJob(ctx context.Context, job *Job) {
	age := time.Since(job.CreatedAt)

	// pending with no task id: the submitter crashed between the
	// debit and the provider call. Give it the grace window, then
	// refund.
	if job.ProviderTaskID == nil {
		if age > p.pendingGrace {
			p.fail(ctx, job, "submission never completed")
		}
		return
	}

	if age > p.timeout {
		p.fail(ctx, job, "generation timed out")
		return
	}

	// Only an explicit failed status or the timeout may fail a job.
	// A query error says nothing about the task itself: a 401 or 429
	// here hits every job in the sweep at once, and failing them would
	// refund generations that are still running.
	status, err := p.provider.GetTask(ctx, *job.ProviderTaskID)
	if err != nil {
		log.Warn().Err(err).Str("video_id", job.ID.String()).Msg("Task status query failed, will retry")
		return
	}

	switch status.Status {
	case byteplus.TaskSucceeded:
		p.complete(ctx, job, status)
	case byteplus.TaskFailed:
		reason := status.ErrorMessage
		if reason == "" {
			reason = "generation failed"
		}
		p.fail(ctx, job, reason)
	default:
		// queued or running, nothing to do yet
	}
}

// complete copies the provider's media into our storage, then flips
// the job. A completed job always has both a video and a thumbnail
// key, so any missing piece leaves the job in processing for the next
// sweep. The keys are deterministic, so a sweep that dies after the
// upload but before the update just rewrites the same objects next
// time.
func (p *Poller) complete(ctx context.Context, job *Job, status *byteplus.TaskStatus) {
	if status.VideoURL == "" {
		p.fail(ctx, job, "provider returned no video url")
		return
	}
	if status.LastFrameURL == "" {
		// tasks are submitted with return_last_frame, so the frame
		// usually lags the video by at most one sweep
		log.Warn().Str("video_id", job.ID.String()).Msg("Provider returned no last frame, will retry")
		return
	}

	videoKey := storage.VideoKey(job.UserID.String(), job.ID.String())
	if err := p.copyMedia(ctx, status.VideoURL, videoKey, "video/mp4"); err != nil {
		log.Warn().Err(err).Str("video_id", job.ID.String()).Msg("Video upload failed, will retry")
		return
	}

	thumbKey := storage.ThumbnailKey(job.UserID.String(), job.ID.String())
	if err := p.copyMedia(ctx, status.LastFrameURL, thumbKey, "image/png"); err != nil {
		log.Warn().Err(err).Str("video_id", job.ID.String()).Msg("Thumbnail upload failed, will retry")
		return
	}

	if err := p.repo.MarkCompleted(ctx, job.ID, videoKey, thumbKey, status.Duration); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("video_id", job.ID.String()).Msg("Failed to mark job completed")
		}
		return
	}

	log.Info().
		Str("video_id", job.ID.String()).
		Str("user_id", job.UserID.String()).
		Msg("Job completed")
}

func (p *Poller) copyMedia(ctx context.Context, mediaURL, key, contentType string) error {
	body, err := p.provider.Download(ctx, mediaURL)
	if err != nil {
		return err
	}
	defer body.Close()

	return p.store.Put(ctx, key, body, contentType)
}

func (p *Poller) fail(ctx context.Context, job *Job, reason string) {
	if err := p.repo.MarkFailedWithRefund(ctx, job.ID, reason); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("video_id", job.ID.String()).Msg("Failed to fail job")
		}
		return
	}

	log.Info().
		Str("video_id", job.ID.String()).
		Str("reason", reason).
		Msg("Job failed")
}
