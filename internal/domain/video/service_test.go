package video

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService(balance int64) (*Service, *fakeStore, *fakeGenerator, *fakeObjectStore) {
	store := newFakeStore(balance)
	gen := newFakeGenerator()
	objects := newFakeObjectStore()
	svc := NewService(store, store, gen, objects, time.Hour)
	return svc, store, gen, objects
}

func TestGenerateSubmitsAndDebits(t *testing.T) {
	svc, store, gen, _ := newTestService(10)
	userID := uuid.New()

	view, remaining, err := svc.Generate(context.Background(), userID, GenerateRequest{
		Title:  "Surfing cat",
		Prompt: "a cat surfing a wave",
		Settings: SettingsRequest{
			Resolution:  "fhd",
			Duration:    20,
			Orientation: "portrait",
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// fhd at 20s costs 2 * 2 blocks
	if view.CreditsUsed != 4 {
		t.Errorf("cost = %d, want 4", view.CreditsUsed)
	}
	if remaining != 6 {
		t.Errorf("remaining = %d, want 6", remaining)
	}
	if view.Status != StatusProcessing {
		t.Errorf("status = %q, want processing", view.Status)
	}

	if len(gen.submitted) != 1 {
		t.Fatalf("submitted tasks = %d, want 1", len(gen.submitted))
	}
	req := gen.submitted[0]
	if req.Prompt != "a cat surfing a wave" {
		t.Errorf("prompt = %q", req.Prompt)
	}
	if req.Resolution != "fhd" || req.Duration != 20 || req.Ratio != "9:16" {
		t.Errorf("render params = %+v", req)
	}

	stored := store.get(view.ID)
	if stored == nil || stored.ProviderTaskID == nil {
		t.Fatal("job not persisted with task id")
	}
}

func TestGenerateInsufficientCredits(t *testing.T) {
	svc, store, gen, _ := newTestService(3)

	_, _, err := svc.Generate(context.Background(), uuid.New(), GenerateRequest{
		Title:    "Expensive shot",
		Prompt:   "an expensive shot",
		Settings: SettingsRequest{Resolution: "4k"},
	})

	var insufficientErr *InsufficientCreditsError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("err = %v, want InsufficientCreditsError", err)
	}
	if insufficientErr.Required != 4 || insufficientErr.Current != 3 {
		t.Errorf("details = %+v, want required 4 current 3", insufficientErr)
	}
	if len(gen.submitted) != 0 {
		t.Error("task submitted despite insufficient credits")
	}
	if store.balance != 3 {
		t.Errorf("balance = %d, want untouched 3", store.balance)
	}
}

func TestGenerateSubmitFailureRefunds(t *testing.T) {
	svc, store, gen, _ := newTestService(5)
	gen.submitErr = errors.New("provider down")

	_, _, err := svc.Generate(context.Background(), uuid.New(), GenerateRequest{
		Prompt: "a doomed request",
	})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}

	if store.balance != 5 {
		t.Errorf("balance = %d after refund, want 5", store.balance)
	}

	// the job must be terminal so the poller never touches it
	for _, job := range store.jobs {
		if job.Status != StatusFailed {
			t.Errorf("job status = %q, want failed", job.Status)
		}
	}
}

func TestGetDecoratesCompletedJobs(t *testing.T) {
	svc, store, _, _ := newTestService(5)
	userID := uuid.New()

	view, _, err := svc.Generate(context.Background(), userID, GenerateRequest{Title: "Sunset", Prompt: "sunset timelapse"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := store.MarkCompleted(context.Background(), view.ID, "videos/u/j.mp4", "thumbnails/u/j.png", 10); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, err := svc.Get(context.Background(), userID, view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VideoURL != "https://cdn.test/videos/u/j.mp4" {
		t.Errorf("video url = %q", got.VideoURL)
	}
	if got.ThumbnailURL != "https://cdn.test/thumbnails/u/j.png" {
		t.Errorf("thumbnail url = %q", got.ThumbnailURL)
	}
}

func TestGetHidesInFlightURLs(t *testing.T) {
	svc, _, _, _ := newTestService(5)
	userID := uuid.New()

	view, _, err := svc.Generate(context.Background(), userID, GenerateRequest{Title: "Rendering", Prompt: "still rendering"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := svc.Get(context.Background(), userID, view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VideoURL != "" || got.ThumbnailURL != "" {
		t.Error("in-flight job exposes media urls")
	}
}

func TestGetIsOwnerScoped(t *testing.T) {
	svc, _, _, _ := newTestService(5)

	view, _, err := svc.Generate(context.Background(), uuid.New(), GenerateRequest{Title: "Private", Prompt: "private clip"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := svc.Get(context.Background(), uuid.New(), view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign get err = %v, want ErrNotFound", err)
	}
}

func TestRecordDownload(t *testing.T) {
	svc, store, _, _ := newTestService(5)
	userID := uuid.New()

	view, _, err := svc.Generate(context.Background(), userID, GenerateRequest{Title: "Download me", Prompt: "downloadable"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// not completed yet
	if _, err := svc.RecordDownload(context.Background(), userID, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("download before completion err = %v, want ErrNotFound", err)
	}

	if err := store.MarkCompleted(context.Background(), view.ID, "videos/u/j.mp4", "thumbnails/u/j.png", 10); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	url, err := svc.RecordDownload(context.Background(), userID, view.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/videos/") {
		t.Errorf("download url = %q", url)
	}
	if store.get(view.ID).DownloadCount != 1 {
		t.Errorf("downloads = %d, want 1", store.get(view.ID).DownloadCount)
	}
}

func TestDeleteOnlyTerminalJobs(t *testing.T) {
	svc, store, _, _ := newTestService(5)
	userID := uuid.New()

	view, _, err := svc.Generate(context.Background(), userID, GenerateRequest{Title: "Delete me", Prompt: "deletable"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := svc.Delete(context.Background(), userID, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete in-flight err = %v, want ErrNotFound", err)
	}

	if err := store.MarkFailedWithRefund(context.Background(), view.ID, "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := svc.Delete(context.Background(), userID, view.ID); err != nil {
		t.Fatalf("delete terminal: %v", err)
	}

	if _, err := svc.Get(context.Background(), userID, view.ID); !errors.Is(err, ErrNotFound) {
		t.Error("deleted job still visible")
	}
}

func TestListFiltersByStatusAndSearch(t *testing.T) {
	svc, store, _, _ := newTestService(10)
	userID := uuid.New()

	first, _, err := svc.Generate(context.Background(), userID, GenerateRequest{Title: "City", Prompt: "city at night"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := svc.Generate(context.Background(), userID, GenerateRequest{Title: "Forest", Prompt: "forest in fog"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := store.MarkCompleted(context.Background(), first.ID, "videos/u/j.mp4", "thumbnails/u/j.png", 10); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	completed, total, err := svc.List(context.Background(), userID, StatusCompleted, "", 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(completed) != 1 {
		t.Fatalf("completed list total = %d len = %d, want 1/1", total, len(completed))
	}
	if completed[0].ID != first.ID {
		t.Error("wrong job in completed filter")
	}

	matches, total, err := svc.List(context.Background(), userID, "", "forest", 1, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || matches[0].Prompt != "forest in fog" {
		t.Errorf("search returned %d results", total)
	}
}
