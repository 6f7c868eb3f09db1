package video

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
)

// Repository handles video job persistence
type Repository struct {
	db      *sqlx.DB
	credits *credit.Repository
}

// NewRepository creates a new video repository
func NewRepository(db *sqlx.DB, credits *credit.Repository) *Repository {
	return &Repository{db: db, credits: credits}
}

const jobColumns = `id, user_id, title, prompt, negative_prompt, settings, status, credits_used, provider_task_id, video_key, thumbnail_key, duration_seconds, error_message, is_public, download_count, share_count, completed_at, deleted_at, created_at, updated_at`

// CreateWithDebit inserts the job and debits its cost in one
// transaction. The debit references the job it paid for, and an
// insufficient balance rolls the insert back.
func (r *Repository) CreateWithDebit(ctx context.Context, job *Job) (*credit.LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin job transaction")
		return nil, ErrInternal
	}
	defer tx.Rollback()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = StatusPending

	query := `
		INSERT INTO videos (id, user_id, title, prompt, negative_prompt, settings, status, credits_used)
		VALUES (:id, :user_id, :title, :prompt, :negative_prompt, :settings, :status, :credits_used)
		RETURNING created_at, updated_at`

	rows, err := tx.NamedQuery(query, job)
	if err != nil {
		log.Error().Err(err).Str("user_id", job.UserID.String()).Msg("Failed to insert video job")
		return nil, ErrInternal
	}
	if rows.Next() {
		if err := rows.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
			rows.Close()
			log.Error().Err(err).Msg("Failed to scan job timestamps")
			return nil, ErrInternal
		}
	}
	rows.Close()

	entry, err := r.credits.ApplyTx(ctx, tx, credit.Change{
		UserID:      job.UserID,
		Type:        credit.EntryUsage,
		Amount:      -job.CreditsUsed,
		Ref:         credit.VideoRef(job.ID),
		Description: "video generation",
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Failed to commit job transaction")
		return nil, ErrInternal
	}

	return entry, nil
}

// MarkProcessing records the provider task id after a successful submit
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID, taskID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE videos
		SET status = $2, provider_task_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, StatusProcessing, taskID, StatusPending)
	if err != nil {
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to mark job processing")
		return ErrInternal
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted stores the media keys and finalizes the job. Both
// keys are required: a job is never completed without its video and
// thumbnail in storage. Jobs already terminal are left alone so a
// duplicate poll is harmless.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, videoKey, thumbnailKey string, durationSec int) error {
	if videoKey == "" || thumbnailKey == "" {
		return ErrNotReady
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE videos
		SET status = $2, video_key = $3, thumbnail_key = $4,
		    duration_seconds = NULLIF($5, 0),
		    error_message = NULL, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ($6, $7)`,
		id, StatusCompleted, videoKey, thumbnailKey, durationSec, StatusPending, StatusProcessing)
	if err != nil {
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to mark job completed")
		return ErrInternal
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailedWithRefund fails the job and refunds its cost in one
// transaction. The status guard makes the refund happen at most once
// no matter how many observers report the same failure.
func (r *Repository) MarkFailedWithRefund(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin refund transaction")
		return ErrInternal
	}
	defer tx.Rollback()

	var job Job
	err = tx.GetContext(ctx, &job, `
		SELECT `+jobColumns+` FROM videos WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to lock job for refund")
		return ErrInternal
	}

	if job.Status.IsTerminal() {
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE videos
		SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)`,
		id, StatusFailed, reason, StatusPending, StatusProcessing)
	if err != nil {
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to mark job failed")
		return ErrInternal
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	_, err = r.credits.ApplyTx(ctx, tx, credit.Change{
		UserID:      job.UserID,
		Type:        credit.EntryRefund,
		Amount:      job.CreditsUsed,
		Ref:         credit.VideoRef(job.ID),
		Description: "refund: " + reason,
	})
	if err != nil {
		return ErrInternal
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Failed to commit refund transaction")
		return ErrInternal
	}

	log.Info().
		Str("video_id", id.String()).
		Str("user_id", job.UserID.String()).
		Int64("credits", job.CreditsUsed).
		Str("reason", reason).
		Msg("Job failed, credits refunded")

	return nil
}

// ListOutstanding returns all non-terminal jobs for the poller
func (r *Repository) ListOutstanding(ctx context.Context) ([]Job, error) {
	jobs := []Job{}
	query := `SELECT ` + jobColumns + ` FROM videos
		WHERE status IN ($1, $2) AND deleted_at IS NULL
		ORDER BY created_at`

	err := r.db.SelectContext(ctx, &jobs, query, StatusPending, StatusProcessing)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list outstanding jobs")
		return nil, ErrInternal
	}
	return jobs, nil
}

// GetOwned fetches a job scoped to its owner
func (r *Repository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*Job, error) {
	var job Job
	query := `SELECT ` + jobColumns + ` FROM videos
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &job, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to get job")
		return nil, ErrInternal
	}
	return &job, nil
}

// ListFilter narrows a job listing
type ListFilter struct {
	Status Status
	Search string
	Limit  int
	Offset int
}

// List returns a page of a user's jobs, newest first
func (r *Repository) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Job, int, error) {
	where := `WHERE user_id = $1 AND deleted_at IS NULL`
	args := []interface{}{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		where += ` AND status = $2`
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (title ILIKE $` + n + ` OR prompt ILIKE $` + n + `)`
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM videos `+where, args...); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to count jobs")
		return nil, 0, ErrInternal
	}

	jobs := []Job{}
	n := len(args)
	query := `SELECT ` + jobColumns + ` FROM videos ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, f.Limit, f.Offset)

	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to list jobs")
		return nil, 0, ErrInternal
	}

	return jobs, total, nil
}

// IncrementDownloads bumps the download counter on a completed job
func (r *Repository) IncrementDownloads(ctx context.Context, id, userID uuid.UUID) error {
	return r.incrementCounter(ctx, "download_count", id, userID)
}

// IncrementShares bumps the share counter on a completed job
func (r *Repository) IncrementShares(ctx context.Context, id, userID uuid.UUID) error {
	return r.incrementCounter(ctx, "share_count", id, userID)
}

func (r *Repository) incrementCounter(ctx context.Context, column string, id, userID uuid.UUID) error {
	// column is one of two compile-time constants, never user input
	res, err := r.db.ExecContext(ctx, `
		UPDATE videos SET `+column+` = `+column+` + 1, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $3 AND deleted_at IS NULL`,
		id, userID, StatusCompleted)
	if err != nil {
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to increment " + column)
		return ErrInternal
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete moves a terminal job to the deleted status and hides it
// from listings. In-flight jobs cannot be deleted because the poller
// still owns them.
func (r *Repository) SoftDelete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE videos SET status = $5, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL AND status IN ($3, $4)`,
		id, userID, StatusCompleted, StatusFailed, StatusDeleted)
	if err != nil {
		log.Error().Err(err).Str("video_id", id.String()).Msg("Failed to delete job")
		return ErrInternal
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
