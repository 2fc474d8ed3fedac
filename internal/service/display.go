package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"framesync/internal/cache"
	"framesync/internal/model"
	"framesync/internal/render"
	"framesync/internal/repository"
)

// DisplayService pushes catalogued images to physical devices. It verifies
// the image before invoking the renderer and records the result in the
// per-device display state so the rotation selector can avoid repeats.
type DisplayService struct {
	devices  repository.DeviceRepository
	images   repository.ImageRepository
	display  cache.DisplayState
	renderer render.Renderer

	uploadDir string
}

func NewDisplayService(
	devices repository.DeviceRepository,
	images repository.ImageRepository,
	display cache.DisplayState,
	renderer render.Renderer,
	uploadDir string,
) *DisplayService {
	return &DisplayService{
		devices:   devices,
		images:    images,
		display:   display,
		renderer:  renderer,
		uploadDir: uploadDir,
	}
}

// Show renders one image on one device. The image must be catalogued and
// present on disk; a renderer failure or timeout surfaces as
// ErrDisplayFailed and leaves the recorded display state untouched.
func (s *DisplayService) Show(ctx context.Context, deviceID, filename string) error {
	filename = filepath.Base(filename)

	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return err
	}
	if _, err := s.images.GetByFilename(ctx, filename); err != nil {
		return err
	}

	path := filepath.Join(s.uploadDir, filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("image file missing: %w", err)
	}

	if err := s.renderer.Render(ctx, path); err != nil {
		log.Printf("[Display] render %s on %s: %v", filename, deviceID, err)
		return model.ErrDisplayFailed
	}

	if err := s.display.SetCurrent(ctx, deviceID, filename); err != nil {
		log.Printf("[Display] record state for %s: %v", deviceID, err)
	}
	if err := s.devices.TouchLastSeen(ctx, deviceID); err != nil {
		log.Printf("[Display] touch last_seen for %s: %v", deviceID, err)
	}

	log.Printf("[Display] %s now showing %s", deviceID, filename)
	return nil
}

// Current returns the filename a device last successfully displayed,
// or empty when nothing is recorded.
func (s *DisplayService) Current(ctx context.Context, deviceID string) (string, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return "", err
	}
	filename, found, err := s.display.Current(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return filename, nil
}
