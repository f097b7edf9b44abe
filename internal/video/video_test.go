package video

import (
	"context"
	"testing"
)

func TestApplyResult(t *testing.T) {
	v := &Video{Status: StatusProcessing, ThumbnailURL: "existing-thumb.jpg", Width: 720, Height: 1280}

	v.ApplyResult(Result{
		VideoURL: "https://cdn.example.com/v.mp4",
		Duration: 5.2,
	})

	if v.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", v.Status)
	}
	if v.ResultVideoURL != "https://cdn.example.com/v.mp4" {
		t.Errorf("unexpected result URL %q", v.ResultVideoURL)
	}
	if v.Duration != 5.2 {
		t.Errorf("expected duration 5.2, got %f", v.Duration)
	}
	// Empty thumbnail in the result keeps the existing one; nothing is fabricated.
	if v.ThumbnailURL != "existing-thumb.jpg" {
		t.Errorf("expected thumbnail preserved, got %q", v.ThumbnailURL)
	}
	// Zero dimensions keep the existing values.
	if v.Width != 720 || v.Height != 1280 {
		t.Errorf("expected dimensions preserved, got %dx%d", v.Width, v.Height)
	}
}

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	v := &Video{UserID: 7, Title: "my photo", Status: StatusPending}
	if err := repo.Create(ctx, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	found, err := repo.FindByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Title != "my photo" {
		t.Errorf("expected title preserved, got %q", found.Title)
	}

	found.Title = "mutated"
	again, _ := repo.FindByID(ctx, v.ID)
	if again.Title != "my photo" {
		t.Error("expected stored video to be isolated from reads")
	}
}

func TestMemoryRepository_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, 99); err != ErrVideoNotFound {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
	if err := repo.Update(ctx, &Video{ID: 99}); err != ErrVideoNotFound {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
	if err := repo.SetStatus(ctx, 99, StatusFailed); err != ErrVideoNotFound {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestMemoryRepository_SetStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	v := &Video{UserID: 1, Status: StatusPending}
	if err := repo.Create(ctx, v); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetStatus(ctx, v.ID, StatusProcessing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, _ := repo.FindByID(ctx, v.ID)
	if found.Status != StatusProcessing {
		t.Errorf("expected processing, got %s", found.Status)
	}
}
