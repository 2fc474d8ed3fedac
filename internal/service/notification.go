package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"framesync/internal/model"
	"framesync/internal/repository"
)

// NotificationService manages the per-device command queue. Devices drain
// their queue during polling and acknowledge each entry after acting on it;
// entries that are never acknowledged are reaped by the periodic sweep.
type NotificationService struct {
	notifications repository.NotificationRepository
	devices       repository.DeviceRepository
	maxAge        time.Duration
}

func NewNotificationService(notifications repository.NotificationRepository, devices repository.DeviceRepository, maxAge time.Duration) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		devices:       devices,
		maxAge:        maxAge,
	}
}

// Enqueue appends a command for a device. The target device must exist.
func (s *NotificationService) Enqueue(ctx context.Context, deviceID, action string, imageFilename *string) (*model.Notification, error) {
	if action == "" {
		action = model.ActionRefresh
	}

	n := &model.Notification{
		ID:            uuid.New().String(),
		DeviceID:      deviceID,
		Action:        action,
		ImageFilename: imageFilename,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Drain returns a device's pending notifications oldest-first. Entries stay
// queued until individually acknowledged, so an interrupted poll loses
// nothing.
func (s *NotificationService) Drain(ctx context.Context, deviceID string) ([]model.Notification, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.notifications.ListPending(ctx, deviceID)
}

// Acknowledge removes one processed notification.
func (s *NotificationService) Acknowledge(ctx context.Context, id string) error {
	existed, err := s.notifications.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return model.ErrNotificationNotFound
	}
	return nil
}

// Sweep reaps notifications older than the retention window and returns
// how many were removed.
func (s *NotificationService) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.notifications.DeleteOlderThan(ctx, s.maxAge)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("[Notification] swept %d expired notifications", removed)
	}
	return removed, nil
}
