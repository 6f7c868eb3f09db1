package video

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of a generation job. Pending means debited and submitted
// (or about to be); processing means the provider accepted the task.
// Completed, failed, and deleted are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDeleted    Status = "deleted"
)

// IsTerminal reports whether a job can no longer change state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDeleted
}

// Settings are the render parameters chosen at submission, stored
// as JSONB so the job is reproducible
type Settings struct {
	Resolution  string `json:"resolution,omitempty"`  // hd | fhd | 4k
	Duration    int    `json:"duration,omitempty"`    // seconds
	Orientation string `json:"orientation,omitempty"` // landscape | portrait | square
	Style       string `json:"style,omitempty"`
	Ratio       string `json:"ratio,omitempty"` // overrides the orientation mapping when set
	CameraFixed bool   `json:"camera_fixed,omitempty"`
}

// Value implements driver.Valuer for JSONB storage
func (s Settings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB storage
func (s *Settings) Scan(value interface{}) error {
	if value == nil {
		*s = Settings{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("settings: expected []byte")
	}
	return json.Unmarshal(b, s)
}

// AspectRatio resolves the provider aspect ratio, preferring an
// explicit ratio over the orientation mapping
func (s Settings) AspectRatio() string {
	if s.Ratio != "" {
		return s.Ratio
	}
	switch s.Orientation {
	case "portrait":
		return "9:16"
	case "square":
		return "1:1"
	case "landscape":
		return "16:9"
	default:
		return ""
	}
}

// Job is one video generation request and its lifecycle
type Job struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Title          string     `db:"title" json:"title"`
	Prompt         string     `db:"prompt" json:"prompt"`
	NegativePrompt *string    `db:"negative_prompt" json:"negative_prompt,omitempty"`
	Settings       Settings   `db:"settings" json:"settings"`
	Status         Status     `db:"status" json:"status"`
	CreditsUsed    int64      `db:"credits_used" json:"credits_used"`
	ProviderTaskID *string    `db:"provider_task_id" json:"-"`
	VideoKey       *string    `db:"video_key" json:"-"`
	ThumbnailKey   *string    `db:"thumbnail_key" json:"-"`
	DurationSec    *int       `db:"duration_seconds" json:"duration_seconds,omitempty"`
	ErrorMessage   *string    `db:"error_message" json:"error_message,omitempty"`
	IsPublic       bool       `db:"is_public" json:"is_public"`
	DownloadCount  int64      `db:"download_count" json:"download_count"`
	ShareCount     int64      `db:"share_count" json:"share_count"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	DeletedAt      *time.Time `db:"deleted_at" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
