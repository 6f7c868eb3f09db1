package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the minimal interface for media storage backends.
// Rendered videos and thumbnails are written once under deterministic keys
// and read back exclusively through time-limited presigned URLs.
type ObjectStorage interface {
	// Put stores an object under the given key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Delete removes an object by key. Returns nil if the object doesn't exist.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// PresignGet returns a time-limited signed URL for direct client reads.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// VideoKey returns the canonical object key for a rendered video.
func VideoKey(userID, jobID string) string {
	return "videos/" + userID + "/" + jobID + ".mp4"
}

// ThumbnailKey returns the canonical object key for a job thumbnail.
func ThumbnailKey(userID, jobID string) string {
	return "thumbnails/" + userID + "/" + jobID + ".png"
}
