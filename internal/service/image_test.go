package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/jmoiron/sqlx"

	"framesync/internal/cache"
	"framesync/internal/database"
	"framesync/internal/model"
	"framesync/internal/repository"
)

// pngBytes encodes a solid-color PNG of the given size.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

type imageServiceFixture struct {
	svc          *ImageService
	db           *sqlx.DB
	display      *cache.MemoryDisplayState
	uploadDir    string
	thumbnailDir string
}

func newImageServiceFixture(t *testing.T, quotaBytes, maxUploadBytes int64) *imageServiceFixture {
	t.Helper()

	root := t.TempDir()
	uploadDir := filepath.Join(root, "uploads")
	thumbnailDir := filepath.Join(root, "thumbnails")

	db, err := database.Connect(filepath.Join(root, "test.db"), 2)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	display := cache.NewMemoryDisplayState()
	storage := NewStorageService(uploadDir, thumbnailDir, quotaBytes, 0.9)
	svc := NewImageService(db,
		repository.NewImageRepository(db),
		repository.NewUserRepository(db),
		storage,
		display,
		ImageServiceConfig{
			UploadDir:         uploadDir,
			ThumbnailDir:      thumbnailDir,
			AllowedExtensions: []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"},
			MaxUploadBytes:    maxUploadBytes,
			ThumbnailWidth:    200,
			ThumbnailHeight:   200,
			ThumbnailQuality:  85,
			BulkItemCap:       3,
		})

	return &imageServiceFixture{
		svc:          svc,
		db:           db,
		display:      display,
		uploadDir:    uploadDir,
		thumbnailDir: thumbnailDir,
	}
}

func (f *imageServiceFixture) fileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	return len(entries)
}

func (f *imageServiceFixture) seedDevice(t *testing.T, deviceID string) {
	t.Helper()
	device := &model.Device{DeviceID: deviceID, Name: deviceID}
	if _, err := repository.NewDeviceRepository(f.db).Upsert(context.Background(), device); err != nil {
		t.Fatalf("failed to seed device: %v", err)
	}
}

func TestImageService_Ingest_RegistersImage(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)
	ctx := context.Background()

	f.seedDevice(t, "frame-1")
	data := pngBytes(t, 640, 480)

	img, err := f.svc.Ingest(ctx, data, "sunset.png", "10.0.0.1", []string{"frame-1"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if img.Width != 640 || img.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", img.Width, img.Height)
	}
	if img.FileSize != int64(len(data)) {
		t.Errorf("file_size = %d, want %d", img.FileSize, len(data))
	}
	if img.MimeType != "image/png" {
		t.Errorf("mime_type = %q, want image/png", img.MimeType)
	}

	stored, err := os.ReadFile(filepath.Join(f.uploadDir, img.Filename))
	if err != nil {
		t.Fatalf("expected stored original, got: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Error("stored bytes differ from uploaded bytes")
	}

	// Thumbnail fits the 200x200 box while keeping the aspect ratio.
	thumb, err := imaging.Open(filepath.Join(f.thumbnailDir, img.Filename))
	if err != nil {
		t.Fatalf("expected thumbnail, got: %v", err)
	}
	b := thumb.Bounds()
	if b.Dx() > 200 || b.Dy() > 200 {
		t.Errorf("thumbnail = %dx%d, want at most 200x200", b.Dx(), b.Dy())
	}
	if b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("thumbnail = %dx%d, want 200x150 for a 4:3 source", b.Dx(), b.Dy())
	}

	devices, err := f.svc.GetDevices(ctx, img.Filename)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(devices) != 1 || devices[0] != "frame-1" {
		t.Errorf("devices = %v, want [frame-1]", devices)
	}

	// First-time uploader is registered with the IP as placeholder name.
	uploader, err := repository.NewUserRepository(f.db).GetByIP(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("expected uploader row, got: %v", err)
	}
	if uploader.Name != "10.0.0.1" {
		t.Errorf("uploader name = %q, want the IP placeholder", uploader.Name)
	}
}

func TestImageService_Ingest_RejectsDisallowedExtension(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)

	_, err := f.svc.Ingest(context.Background(), []byte("x"), "notes.txt", "10.0.0.1", nil)
	if !errors.Is(err, model.ErrInvalidFileType) {
		t.Fatalf("error = %v, want ErrInvalidFileType", err)
	}
	if n := f.fileCount(t, f.uploadDir); n != 0 {
		t.Errorf("upload dir has %d files after rejection, want 0", n)
	}
}

func TestImageService_Ingest_RejectsOversizedUpload(t *testing.T) {
	f := newImageServiceFixture(t, 0, 64)

	_, err := f.svc.Ingest(context.Background(), pngBytes(t, 32, 32), "big.png", "10.0.0.1", nil)
	if !errors.Is(err, model.ErrFileTooLarge) {
		t.Fatalf("error = %v, want ErrFileTooLarge", err)
	}
	if n := f.fileCount(t, f.uploadDir); n != 0 {
		t.Errorf("upload dir has %d files after rejection, want 0", n)
	}
}

// A quota rejection must happen before anything touches disk.
func TestImageService_Ingest_RejectsWhenQuotaFull(t *testing.T) {
	f := newImageServiceFixture(t, 10, 0)

	if err := os.MkdirAll(f.uploadDir, 0755); err != nil {
		t.Fatalf("failed to create upload dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.uploadDir, "pad.png"), make([]byte, 10), 0644); err != nil {
		t.Fatalf("failed to pre-fill quota: %v", err)
	}

	_, err := f.svc.Ingest(context.Background(), pngBytes(t, 8, 8), "more.png", "10.0.0.1", nil)
	if !errors.Is(err, model.ErrQuotaExceeded) {
		t.Fatalf("error = %v, want ErrQuotaExceeded", err)
	}
	if n := f.fileCount(t, f.uploadDir); n != 1 {
		t.Errorf("upload dir has %d files after rejection, want only the pre-existing one", n)
	}

	var rows int
	if err := f.db.Get(&rows, `SELECT COUNT(*) FROM images`); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if rows != 0 {
		t.Errorf("catalogue rows = %d, want 0", rows)
	}
}

// Undecodable bytes behind a valid extension leave neither a file nor a row.
func TestImageService_Ingest_RemovesUndecodableUpload(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)

	_, err := f.svc.Ingest(context.Background(), []byte("definitely not a jpeg"), "fake.jpg", "10.0.0.1", nil)
	if !errors.Is(err, model.ErrInvalidImage) {
		t.Fatalf("error = %v, want ErrInvalidImage", err)
	}
	if n := f.fileCount(t, f.uploadDir); n != 0 {
		t.Errorf("upload dir has %d files after rejection, want 0", n)
	}

	var rows int
	if err := f.db.Get(&rows, `SELECT COUNT(*) FROM images`); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if rows != 0 {
		t.Errorf("catalogue rows = %d, want 0", rows)
	}
}

func TestImageService_Delete_RemovesRowFilesAndDisplayState(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)
	ctx := context.Background()

	img, err := f.svc.Ingest(ctx, pngBytes(t, 32, 32), "gone.png", "10.0.0.1", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := f.display.SetCurrent(ctx, "frame-1", img.Filename); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if err := f.svc.Delete(ctx, img.Filename); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := os.Stat(filepath.Join(f.uploadDir, img.Filename)); !os.IsNotExist(err) {
		t.Error("expected original file to be removed")
	}
	if _, err := os.Stat(filepath.Join(f.thumbnailDir, img.Filename)); !os.IsNotExist(err) {
		t.Error("expected thumbnail to be removed")
	}

	if _, _, err := f.svc.Open(ctx, img.Filename); !errors.Is(err, model.ErrImageNotFound) {
		t.Fatalf("error = %v, want ErrImageNotFound", err)
	}

	_, found, err := f.display.Current(ctx, "frame-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if found {
		t.Error("expected display state pointing at the image to be cleared")
	}
}

func TestImageService_Delete_NotFound(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)

	err := f.svc.Delete(context.Background(), "missing.png")
	if !errors.Is(err, model.ErrImageNotFound) {
		t.Fatalf("error = %v, want ErrImageNotFound", err)
	}
}

func TestImageService_BulkDelete_PartialFailure(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)
	ctx := context.Background()

	img, err := f.svc.Ingest(ctx, pngBytes(t, 16, 16), "keepable.png", "10.0.0.1", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	result, err := f.svc.BulkDelete(ctx, []string{img.Filename, "missing.png"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Succeeded != 1 || result.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 1/1", result.Succeeded, result.Failed)
	}
	if len(result.Items) != 2 {
		t.Fatalf("item count = %d, want 2", len(result.Items))
	}
	if !result.Items[0].OK || result.Items[0].Error != "" {
		t.Errorf("items[0] = %+v, want success", result.Items[0])
	}
	if result.Items[1].OK || result.Items[1].Error == "" {
		t.Errorf("items[1] = %+v, want tagged failure", result.Items[1])
	}
}

func TestImageService_BulkDelete_ItemCap(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0) // cap is 3 in the fixture

	_, err := f.svc.BulkDelete(context.Background(), []string{"a", "b", "c", "d"})
	if !errors.Is(err, model.ErrTooManyItems) {
		t.Fatalf("error = %v, want ErrTooManyItems", err)
	}
}

func TestImageService_OpenRoundTrip(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)
	ctx := context.Background()

	data := pngBytes(t, 48, 48)
	img, err := f.svc.Ingest(ctx, data, "roundtrip.png", "10.0.0.1", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	served, meta, err := f.svc.Open(ctx, img.Filename)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !bytes.Equal(served, data) {
		t.Error("served bytes differ from uploaded bytes")
	}
	if meta.Filename != img.Filename {
		t.Errorf("filename = %q, want %q", meta.Filename, img.Filename)
	}
}

func TestImageService_OpenThumbnail_FallsBackAndRegenerates(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)
	ctx := context.Background()

	data := pngBytes(t, 400, 400)
	img, err := f.svc.Ingest(ctx, data, "thumbless.png", "10.0.0.1", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	thumbPath := filepath.Join(f.thumbnailDir, img.Filename)
	if err := os.Remove(thumbPath); err != nil {
		t.Fatalf("failed to remove thumbnail: %v", err)
	}

	served, err := f.svc.OpenThumbnail(ctx, img.Filename)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !bytes.Equal(served, data) {
		t.Error("expected fallback to serve the original bytes")
	}

	// The miss regenerates the thumbnail for the next read.
	if _, err := os.Stat(thumbPath); err != nil {
		t.Errorf("expected regenerated thumbnail, got: %v", err)
	}
}

func TestImageService_ReplaceDevices_UnknownDevice(t *testing.T) {
	f := newImageServiceFixture(t, 0, 0)
	ctx := context.Background()

	img, err := f.svc.Ingest(ctx, pngBytes(t, 16, 16), "assigned.png", "10.0.0.1", nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	err = f.svc.ReplaceDevices(ctx, img.Filename, []string{"ghost"})
	if !errors.Is(err, model.ErrDeviceNotFound) {
		t.Fatalf("error = %v, want ErrDeviceNotFound", err)
	}
}
