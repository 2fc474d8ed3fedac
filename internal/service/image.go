package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jmoiron/sqlx"

	"framesync/internal/cache"
	"framesync/internal/model"
	"framesync/internal/repository"
)

// ImageService is the content ingestion pipeline plus the write side of the
// catalogue: upload validation, EXIF extraction, thumbnail derivation,
// registration, deletion and bulk operations.
type ImageService struct {
	db      *sqlx.DB
	images  repository.ImageRepository
	users   repository.UserRepository
	storage *StorageService
	display cache.DisplayState

	uploadDir    string
	thumbnailDir string

	allowedExts    map[string]bool
	maxUploadBytes int64
	thumbWidth     int
	thumbHeight    int
	thumbQuality   int
	bulkItemCap    int
}

// ImageServiceConfig carries the configuration surface of the pipeline.
type ImageServiceConfig struct {
	UploadDir         string
	ThumbnailDir      string
	AllowedExtensions []string
	MaxUploadBytes    int64
	ThumbnailWidth    int
	ThumbnailHeight   int
	ThumbnailQuality  int
	BulkItemCap       int
}

func NewImageService(
	db *sqlx.DB,
	images repository.ImageRepository,
	users repository.UserRepository,
	storage *StorageService,
	display cache.DisplayState,
	cfg ImageServiceConfig,
) *ImageService {
	exts := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts[strings.ToLower(ext)] = true
	}
	if cfg.BulkItemCap <= 0 {
		cfg.BulkItemCap = 100
	}
	if cfg.ThumbnailQuality <= 0 {
		cfg.ThumbnailQuality = 85
	}

	return &ImageService{
		db:             db,
		images:         images,
		users:          users,
		storage:        storage,
		display:        display,
		uploadDir:      cfg.UploadDir,
		thumbnailDir:   cfg.ThumbnailDir,
		allowedExts:    exts,
		maxUploadBytes: cfg.MaxUploadBytes,
		thumbWidth:     cfg.ThumbnailWidth,
		thumbHeight:    cfg.ThumbnailHeight,
		thumbQuality:   cfg.ThumbnailQuality,
		bulkItemCap:    cfg.BulkItemCap,
	}
}

// mimeTypes maps allowed extensions to their content types.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
}

// Ingest validates an upload, persists it, derives metadata and registers
// the catalogue entry. Steps are hard gates in order except EXIF and
// thumbnail derivation, which are best-effort and only ever log.
func (s *ImageService) Ingest(ctx context.Context, data []byte, originalName, uploaderIP string, deviceIDs []string) (*model.Image, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !s.allowedExts[ext] {
		return nil, model.ErrInvalidFileType
	}

	size := int64(len(data))
	if s.maxUploadBytes > 0 && size > s.maxUploadBytes {
		return nil, model.ErrFileTooLarge
	}

	// Quota gate runs before anything touches disk.
	if !s.storage.CanStore(ctx, size) {
		return nil, model.ErrQuotaExceeded
	}

	filename := storedName(originalName, time.Now())
	path := filepath.Join(s.uploadDir, filename)

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to persist upload: %w", err)
	}

	// Full structural decode of the persisted bytes. An undecodable file is
	// removed again; no catalogue row may ever point at one.
	decoded, err := imaging.Open(path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Printf("[Ingest] failed to remove invalid upload %s: %v", path, rmErr)
		}
		return nil, model.ErrInvalidImage
	}
	bounds := decoded.Bounds()

	exifData := extractExif(data)
	exifJSON := "{}"
	if exifData.Auxiliary != nil {
		if b, err := json.Marshal(exifData.Auxiliary); err == nil {
			exifJSON = string(b)
		}
	}

	if err := s.writeThumbnail(decoded, filename); err != nil {
		log.Printf("[Ingest] thumbnail for %s failed: %v", filename, err)
	}

	img := &model.Image{
		Filename:     filename,
		UploaderIP:   uploaderIP,
		FileSize:     size,
		MimeType:     mimeTypes[ext],
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		UploadTime:   time.Now().UTC(),
		DateTaken:    exifData.DateTaken,
		CameraMake:   exifData.CameraMake,
		CameraModel:  exifData.CameraModel,
		GPSLatitude:  exifData.GPSLatitude,
		GPSLongitude: exifData.GPSLongitude,
		GPSAltitude:  exifData.GPSAltitude,
		Orientation:  exifData.Orientation,
		ExifJSON:     exifJSON,
	}

	if err := s.ensureUploader(ctx, uploaderIP); err != nil {
		log.Printf("[Ingest] orphaned file on disk: %s", path)
		return nil, err
	}

	// Row plus assignment set commit as one unit. A failure here leaves the
	// file orphaned on disk; that is an accepted operational gap, so the
	// path is logged for operator cleanup.
	err = repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.images.Create(ctx, tx, img); err != nil {
			return err
		}
		if len(deviceIDs) > 0 {
			return s.images.ReplaceDevices(ctx, tx, img.Filename, deviceIDs)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Ingest] orphaned file on disk: %s", path)
		return nil, err
	}

	log.Printf("[Ingest] registered %s (%dx%d, %d bytes, %d devices)",
		filename, img.Width, img.Height, size, len(deviceIDs))
	return img, nil
}

// Delete removes the catalogue row (assignments cascade) and then the
// original and thumbnail files. File removal is best-effort: the row is the
// source of truth and an already-missing file is not an error.
func (s *ImageService) Delete(ctx context.Context, filename string) error {
	filename = filepath.Base(filename)

	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		existed, err := s.images.Delete(ctx, tx, filename)
		if err != nil {
			return err
		}
		if !existed {
			return model.ErrImageNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, path := range []string{
		filepath.Join(s.uploadDir, filename),
		filepath.Join(s.thumbnailDir, filename),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[Ingest] failed to remove %s: %v", path, err)
		}
	}

	if err := s.display.ClearImage(ctx, filename); err != nil {
		log.Printf("[Ingest] failed to clear display state for %s: %v", filename, err)
	}

	return nil
}

// ReplaceDevices atomically replaces an image's assignment set.
func (s *ImageService) ReplaceDevices(ctx context.Context, filename string, deviceIDs []string) error {
	return repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.images.ReplaceDevices(ctx, tx, filepath.Base(filename), deviceIDs)
	})
}

// BulkDelete deletes up to the bulk cap of images, one transaction per
// item. Per-item failures are collected, never raised.
func (s *ImageService) BulkDelete(ctx context.Context, filenames []string) (*model.BulkResult, error) {
	if len(filenames) > s.bulkItemCap {
		return nil, model.ErrTooManyItems
	}

	result := &model.BulkResult{}
	for _, filename := range filenames {
		item := model.BulkItemResult{Filename: filename}
		if err := s.Delete(ctx, filename); err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.OK = true
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}

// BulkReplaceDevices replaces assignment sets for up to the bulk cap of
// images. Each item commits or rolls back on its own; the batch is not
// atomic across items.
func (s *ImageService) BulkReplaceDevices(ctx context.Context, items []model.BulkDeviceUpdate) (*model.BulkResult, error) {
	if len(items) > s.bulkItemCap {
		return nil, model.ErrTooManyItems
	}

	result := &model.BulkResult{}
	for _, update := range items {
		item := model.BulkItemResult{Filename: update.Filename}
		if err := s.ReplaceDevices(ctx, update.Filename, update.DeviceIDs); err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.OK = true
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}

// Open returns the stored original bytes for a catalogued image.
func (s *ImageService) Open(ctx context.Context, filename string) ([]byte, *model.Image, error) {
	filename = filepath.Base(filename)

	img, err := s.images.GetByFilename(ctx, filename)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.uploadDir, filename))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, img, nil
}

// OpenThumbnail returns the thumbnail bytes, falling back to the original
// when no thumbnail exists and regenerating it lazily for the next read.
func (s *ImageService) OpenThumbnail(ctx context.Context, filename string) ([]byte, error) {
	filename = filepath.Base(filename)

	if _, err := s.images.GetByFilename(ctx, filename); err != nil {
		return nil, err
	}

	thumbPath := filepath.Join(s.thumbnailDir, filename)
	if data, err := os.ReadFile(thumbPath); err == nil {
		return data, nil
	}

	original, err := os.ReadFile(filepath.Join(s.uploadDir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	if decoded, err := imaging.Decode(bytes.NewReader(original)); err == nil {
		if err := s.writeThumbnail(decoded, filename); err != nil {
			log.Printf("[Ingest] lazy thumbnail for %s failed: %v", filename, err)
		}
	}

	return original, nil
}

// Path returns the on-disk location of a catalogued original.
func (s *ImageService) Path(ctx context.Context, filename string) (string, error) {
	filename = filepath.Base(filename)
	if _, err := s.images.GetByFilename(ctx, filename); err != nil {
		return "", err
	}
	return filepath.Join(s.uploadDir, filename), nil
}

// List returns the catalogue in the requested order.
func (s *ImageService) List(ctx context.Context, sortBy string) ([]model.Image, error) {
	if sortBy != model.SortByDateTaken {
		sortBy = model.SortByUploadTime
	}
	return s.images.List(ctx, sortBy)
}

// GetDevices returns an image's assigned device ids in assignment order.
func (s *ImageService) GetDevices(ctx context.Context, filename string) ([]string, error) {
	return s.images.GetDevices(ctx, filepath.Base(filename))
}

// ensureUploader guarantees the uploader row exists before registration;
// first-time uploaders get their IP as a placeholder name.
func (s *ImageService) ensureUploader(ctx context.Context, ip string) error {
	_, err := s.users.GetByIP(ctx, ip)
	if err == nil {
		return nil
	}
	if err != model.ErrUserNotFound {
		return err
	}
	_, err = s.users.Upsert(ctx, ip, ip)
	return err
}

// writeThumbnail flattens transparency onto white, fits the image within
// the configured box preserving aspect ratio, and encodes JPEG at fixed
// quality under the same filename in the thumbnail tree.
func (s *ImageService) writeThumbnail(src image.Image, filename string) error {
	bounds := src.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	flattened := imaging.OverlayCenter(background, src, 1.0)

	thumb := imaging.Fit(flattened, s.thumbWidth, s.thumbHeight, imaging.Lanczos)

	if err := os.MkdirAll(s.thumbnailDir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	f, err := os.Create(filepath.Join(s.thumbnailDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer f.Close()

	// Thumbnails are always JPEG regardless of the source extension.
	if err := imaging.Encode(f, thumb, imaging.JPEG, imaging.JPEGQuality(s.thumbQuality)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// storedName derives the collision-free stored filename: sanitized base
// name plus the ingestion timestamp plus the original extension.
func storedName(originalName string, now time.Time) string {
	base := filepath.Base(originalName)
	ext := strings.ToLower(filepath.Ext(base))
	name := strings.TrimSuffix(base, filepath.Ext(base))

	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._-")
	if name == "" {
		name = "image"
	}

	return fmt.Sprintf("%s_%s%s", name, now.Format("20060102_150405"), ext)
}
