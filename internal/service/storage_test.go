package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeBytes(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// The thumbnail tree nests inside the upload tree by default; the walk must
// not count those files twice.
func TestStorageService_Usage_ExcludesNestedThumbnails(t *testing.T) {
	uploadDir := t.TempDir()
	thumbnailDir := filepath.Join(uploadDir, "thumbnails")

	writeBytes(t, filepath.Join(uploadDir, "a.jpg"), 1000)
	writeBytes(t, filepath.Join(uploadDir, "b.jpg"), 500)
	writeBytes(t, filepath.Join(thumbnailDir, "a.jpg"), 100)

	svc := NewStorageService(uploadDir, thumbnailDir, 10000, 0.9)
	usage := svc.Usage(context.Background())

	if usage.OriginalsBytes != 1500 || usage.OriginalsCount != 2 {
		t.Errorf("originals = %d bytes / %d files, want 1500 / 2", usage.OriginalsBytes, usage.OriginalsCount)
	}
	if usage.ThumbnailsBytes != 100 || usage.ThumbnailsCount != 1 {
		t.Errorf("thumbnails = %d bytes / %d files, want 100 / 1", usage.ThumbnailsBytes, usage.ThumbnailsCount)
	}
	if usage.TotalBytes != 1600 {
		t.Errorf("total = %d, want 1600", usage.TotalBytes)
	}
	if usage.QuotaBytes != 10000 {
		t.Errorf("quota = %d, want 10000", usage.QuotaBytes)
	}
	if usage.UsedFraction != 0.16 {
		t.Errorf("used fraction = %v, want 0.16", usage.UsedFraction)
	}
	if usage.AvailableBytes != 8400 {
		t.Errorf("available = %d, want 8400", usage.AvailableBytes)
	}
}

func TestStorageService_Usage_MissingTreesReportZero(t *testing.T) {
	root := t.TempDir()
	svc := NewStorageService(filepath.Join(root, "nope"), filepath.Join(root, "also-nope"), 1000, 0.9)

	usage := svc.Usage(context.Background())
	if usage.TotalBytes != 0 || usage.OriginalsCount != 0 || usage.ThumbnailsCount != 0 {
		t.Errorf("usage on missing trees = %+v, want zeros", usage)
	}
}

func TestStorageService_CanStore(t *testing.T) {
	uploadDir := t.TempDir()
	thumbnailDir := filepath.Join(uploadDir, "thumbnails")
	writeBytes(t, filepath.Join(uploadDir, "a.jpg"), 900)

	svc := NewStorageService(uploadDir, thumbnailDir, 1000, 0.9)
	ctx := context.Background()

	if !svc.CanStore(ctx, 100) {
		t.Error("expected an exact fit to be allowed")
	}
	if svc.CanStore(ctx, 101) {
		t.Error("expected an overflow to be rejected")
	}

	unlimited := NewStorageService(uploadDir, thumbnailDir, 0, 0.9)
	if !unlimited.CanStore(ctx, 1<<40) {
		t.Error("expected zero quota to mean unlimited")
	}
}

func TestStorageService_IsWarning(t *testing.T) {
	uploadDir := t.TempDir()
	thumbnailDir := filepath.Join(uploadDir, "thumbnails")
	writeBytes(t, filepath.Join(uploadDir, "a.jpg"), 950)

	ctx := context.Background()
	if !NewStorageService(uploadDir, thumbnailDir, 1000, 0.9).IsWarning(ctx) {
		t.Error("expected 95% usage to cross the 90% threshold")
	}
	if NewStorageService(uploadDir, thumbnailDir, 10000, 0.9).IsWarning(ctx) {
		t.Error("expected 9.5% usage to stay below the threshold")
	}
}
