package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"framesync/internal/model"
)

// Function-field mocks for the repository interfaces. Each test overrides
// only the calls it cares about; unset lookups default to not-found.

type mockDeviceRepository struct {
	upsertFn        func(ctx context.Context, device *model.Device) (bool, error)
	getByIDFn       func(ctx context.Context, deviceID string) (*model.Device, error)
	listFn          func(ctx context.Context) ([]model.Device, error)
	deleteFn        func(ctx context.Context, deviceID string) (bool, error)
	touchLastSeenFn func(ctx context.Context, deviceID string) error

	touchCalls []string
}

func (m *mockDeviceRepository) Upsert(ctx context.Context, device *model.Device) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, device)
	}
	return true, nil
}

func (m *mockDeviceRepository) GetByID(ctx context.Context, deviceID string) (*model.Device, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, deviceID)
	}
	return nil, model.ErrDeviceNotFound
}

func (m *mockDeviceRepository) List(ctx context.Context) ([]model.Device, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockDeviceRepository) Delete(ctx context.Context, deviceID string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, deviceID)
	}
	return false, nil
}

func (m *mockDeviceRepository) TouchLastSeen(ctx context.Context, deviceID string) error {
	m.touchCalls = append(m.touchCalls, deviceID)
	if m.touchLastSeenFn != nil {
		return m.touchLastSeenFn(ctx, deviceID)
	}
	return nil
}

type mockImageRepository struct {
	createFn         func(ctx context.Context, tx *sqlx.Tx, img *model.Image) error
	getByFilenameFn  func(ctx context.Context, filename string) (*model.Image, error)
	listFn           func(ctx context.Context, sortBy string) ([]model.Image, error)
	deleteFn         func(ctx context.Context, tx *sqlx.Tx, filename string) (bool, error)
	replaceDevicesFn func(ctx context.Context, tx *sqlx.Tx, filename string, deviceIDs []string) error
	assignDeviceFn   func(ctx context.Context, filename, deviceID string) error
	unassignDeviceFn func(ctx context.Context, filename, deviceID string) (bool, error)
	getDevicesFn     func(ctx context.Context, filename string) ([]string, error)
	getForDeviceFn   func(ctx context.Context, deviceID string) ([]model.Image, error)
}

func (m *mockImageRepository) Create(ctx context.Context, tx *sqlx.Tx, img *model.Image) error {
	if m.createFn != nil {
		return m.createFn(ctx, tx, img)
	}
	return nil
}

func (m *mockImageRepository) GetByFilename(ctx context.Context, filename string) (*model.Image, error) {
	if m.getByFilenameFn != nil {
		return m.getByFilenameFn(ctx, filename)
	}
	return nil, model.ErrImageNotFound
}

func (m *mockImageRepository) List(ctx context.Context, sortBy string) ([]model.Image, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sortBy)
	}
	return nil, nil
}

func (m *mockImageRepository) Delete(ctx context.Context, tx *sqlx.Tx, filename string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tx, filename)
	}
	return false, nil
}

func (m *mockImageRepository) ReplaceDevices(ctx context.Context, tx *sqlx.Tx, filename string, deviceIDs []string) error {
	if m.replaceDevicesFn != nil {
		return m.replaceDevicesFn(ctx, tx, filename, deviceIDs)
	}
	return nil
}

func (m *mockImageRepository) AssignDevice(ctx context.Context, filename, deviceID string) error {
	if m.assignDeviceFn != nil {
		return m.assignDeviceFn(ctx, filename, deviceID)
	}
	return nil
}

func (m *mockImageRepository) UnassignDevice(ctx context.Context, filename, deviceID string) (bool, error) {
	if m.unassignDeviceFn != nil {
		return m.unassignDeviceFn(ctx, filename, deviceID)
	}
	return false, nil
}

func (m *mockImageRepository) GetDevices(ctx context.Context, filename string) ([]string, error) {
	if m.getDevicesFn != nil {
		return m.getDevicesFn(ctx, filename)
	}
	return nil, nil
}

func (m *mockImageRepository) GetForDevice(ctx context.Context, deviceID string) ([]model.Image, error) {
	if m.getForDeviceFn != nil {
		return m.getForDeviceFn(ctx, deviceID)
	}
	return nil, nil
}

type mockNotificationRepository struct {
	createFn          func(ctx context.Context, n *model.Notification) error
	listPendingFn     func(ctx context.Context, deviceID string) ([]model.Notification, error)
	deleteFn          func(ctx context.Context, id string) (bool, error)
	deleteOlderThanFn func(ctx context.Context, maxAge time.Duration) (int64, error)

	created []*model.Notification
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	m.created = append(m.created, n)
	if m.createFn != nil {
		return m.createFn(ctx, n)
	}
	return nil
}

func (m *mockNotificationRepository) ListPending(ctx context.Context, deviceID string) ([]model.Notification, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx, deviceID)
	}
	return nil, nil
}

func (m *mockNotificationRepository) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

func (m *mockNotificationRepository) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	if m.deleteOlderThanFn != nil {
		return m.deleteOlderThanFn(ctx, maxAge)
	}
	return 0, nil
}

// knownDevice wires getByIDFn to accept exactly one device id.
func knownDevice(deviceID string) func(ctx context.Context, id string) (*model.Device, error) {
	return func(_ context.Context, id string) (*model.Device, error) {
		if id == deviceID {
			return &model.Device{DeviceID: deviceID, Name: deviceID, DeviceType: model.DefaultDeviceType}, nil
		}
		return nil, model.ErrDeviceNotFound
	}
}
