package service

import (
	"context"
	"log"
	"math/rand"
	"strings"

	"framesync/internal/cache"
	"framesync/internal/model"
	"framesync/internal/repository"
)

// SelectorService answers "what may this device show" and "what should it
// show next". The permitted set is always the device's assignments; the
// rotation picker avoids the currently displayed image so consecutive
// picks differ whenever more than one image is permitted.
type SelectorService struct {
	devices repository.DeviceRepository
	images  repository.ImageRepository
	display cache.DisplayState
}

func NewSelectorService(devices repository.DeviceRepository, images repository.ImageRepository, display cache.DisplayState) *SelectorService {
	return &SelectorService{devices: devices, images: images, display: display}
}

// ListForDevice returns the device's permitted images, optionally narrowed
// by filters. Polling for content doubles as a liveness signal, so
// last_seen_at is refreshed here.
func (s *SelectorService) ListForDevice(ctx context.Context, deviceID string, filters model.ImageFilters) ([]model.Image, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}
	if err := s.devices.TouchLastSeen(ctx, deviceID); err != nil {
		log.Printf("[Selector] touch last_seen for %s: %v", deviceID, err)
	}

	images, err := s.images.GetForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	return applyFilters(images, filters), nil
}

// PickNext chooses the device's next rotation image. With an empty
// permitted set it returns ErrNoContent; with a single image it returns
// that image even if currently displayed. A next-image fetch is a
// liveness signal, so last_seen_at is refreshed here too.
func (s *SelectorService) PickNext(ctx context.Context, deviceID string) (*model.Image, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}
	if err := s.devices.TouchLastSeen(ctx, deviceID); err != nil {
		log.Printf("[Selector] touch last_seen for %s: %v", deviceID, err)
	}

	allowed, err := s.images.GetForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return nil, model.ErrNoContent
	}
	if len(allowed) == 1 {
		return &allowed[0], nil
	}

	current, found, err := s.display.Current(ctx, deviceID)
	if err != nil {
		log.Printf("[Selector] display state for %s: %v", deviceID, err)
		found = false
	}

	candidates := allowed
	if found {
		filtered := make([]model.Image, 0, len(allowed))
		for _, img := range allowed {
			if img.Filename != current {
				filtered = append(filtered, img)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	pick := candidates[rand.Intn(len(candidates))]
	return &pick, nil
}

// Heartbeat records device liveness without returning content.
func (s *SelectorService) Heartbeat(ctx context.Context, deviceID string) error {
	return s.devices.TouchLastSeen(ctx, deviceID)
}

// applyFilters narrows the permitted set in memory. All criteria are
// conjunctive; zero-valued criteria do not restrict.
func applyFilters(images []model.Image, f model.ImageFilters) []model.Image {
	if f.Search == "" && f.UploadedFrom.IsZero() && f.UploadedTo.IsZero() && f.UploaderIP == "" {
		return images
	}

	search := strings.ToLower(f.Search)
	out := make([]model.Image, 0, len(images))
	for _, img := range images {
		if search != "" && !strings.Contains(strings.ToLower(img.Filename), search) {
			continue
		}
		if f.UploaderIP != "" && img.UploaderIP != f.UploaderIP {
			continue
		}
		if !f.UploadedFrom.IsZero() && img.UploadTime.Before(f.UploadedFrom) {
			continue
		}
		if !f.UploadedTo.IsZero() && img.UploadTime.After(f.UploadedTo) {
			continue
		}
		out = append(out, img)
	}
	return out
}
