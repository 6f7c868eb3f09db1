package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/pkg/byteplus"
)

// fakeStore is an in-memory JobStore and BalanceReader
type fakeStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*Job
	balance int64
}

func newFakeStore(balance int64) *fakeStore {
	return &fakeStore{jobs: map[uuid.UUID]*Job{}, balance: balance}
}

func (f *fakeStore) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeStore) CreateWithDebit(ctx context.Context, job *Job) (*credit.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.balance < job.CreditsUsed {
		return nil, credit.ErrInsufficientCredits
	}
	f.balance -= job.CreditsUsed

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = StatusPending
	job.CreatedAt = time.Now()

	stored := *job
	f.jobs[job.ID] = &stored

	return &credit.LedgerEntry{
		UserID:       job.UserID,
		Type:         credit.EntryUsage,
		Amount:       -job.CreditsUsed,
		BalanceAfter: f.balance,
	}, nil
}

func (f *fakeStore) MarkProcessing(ctx context.Context, id uuid.UUID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status != StatusPending {
		return ErrNotFound
	}
	job.Status = StatusProcessing
	job.ProviderTaskID = &taskID
	return nil
}

func (f *fakeStore) MarkCompleted(ctx context.Context, id uuid.UUID, videoKey, thumbnailKey string, durationSec int) error {
	if videoKey == "" || thumbnailKey == "" {
		return ErrNotReady
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return ErrNotFound
	}
	job.Status = StatusCompleted
	job.VideoKey = &videoKey
	job.ThumbnailKey = &thumbnailKey
	if durationSec > 0 {
		job.DurationSec = &durationSec
	}
	now := time.Now()
	job.CompletedAt = &now
	return nil
}

func (f *fakeStore) MarkFailedWithRefund(ctx context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	job.Status = StatusFailed
	job.ErrorMessage = &reason
	f.balance += job.CreditsUsed
	return nil
}

func (f *fakeStore) ListOutstanding(ctx context.Context) ([]Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Job
	for _, job := range f.jobs {
		if !job.Status.IsTerminal() && job.DeletedAt == nil {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOwned(ctx context.Context, id, userID uuid.UUID) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.UserID != userID || job.DeletedAt != nil {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Job, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Job
	for _, job := range f.jobs {
		if job.UserID != userID || job.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(job.Title, filter.Search) && !strings.Contains(job.Prompt, filter.Search) {
			continue
		}
		out = append(out, *job)
	}
	return out, len(out), nil
}

func (f *fakeStore) IncrementDownloads(ctx context.Context, id, userID uuid.UUID) error {
	return f.increment(id, userID, func(j *Job) { j.DownloadCount++ })
}

func (f *fakeStore) IncrementShares(ctx context.Context, id, userID uuid.UUID) error {
	return f.increment(id, userID, func(j *Job) { j.ShareCount++ })
}

func (f *fakeStore) increment(id, userID uuid.UUID, bump func(*Job)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.UserID != userID || job.Status != StatusCompleted || job.DeletedAt != nil {
		return ErrNotFound
	}
	bump(job)
	return nil
}

func (f *fakeStore) SoftDelete(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok || job.UserID != userID || job.DeletedAt != nil || !job.Status.IsTerminal() {
		return ErrNotFound
	}
	now := time.Now()
	job.Status = StatusDeleted
	job.DeletedAt = &now
	return nil
}

func (f *fakeStore) get(id uuid.UUID) *Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}

// fakeGenerator is an in-memory Generator
type fakeGenerator struct {
	submitErr error
	statusErr error
	submitted []byteplus.TaskRequest
	statuses  map[string]*byteplus.TaskStatus
	media     map[string]string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		statuses: map[string]*byteplus.TaskStatus{},
		media:    map[string]string{},
	}
}

func (f *fakeGenerator) SubmitTask(ctx context.Context, req byteplus.TaskRequest) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return fmt.Sprintf("task-%d", len(f.submitted)), nil
}

func (f *fakeGenerator) GetTask(ctx context.Context, taskID string) (*byteplus.TaskStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	status, ok := f.statuses[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown task", byteplus.ErrRejected)
	}
	return status, nil
}

func (f *fakeGenerator) Download(ctx context.Context, mediaURL string) (io.ReadCloser, error) {
	content, ok := f.media[mediaURL]
	if !ok {
		return nil, fmt.Errorf("%w: media gone", byteplus.ErrUnavailable)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// fakeObjectStore is an in-memory ObjectStorage
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = buf.Bytes()
	return nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://cdn.test/" + key, nil
}
