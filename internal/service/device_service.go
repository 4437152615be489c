package service

import (
	"context"
	"errors"
	"time"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"
	"riverwatch/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrDeviceNotFound = errors.New("设备不存在")

// --- DTOs ---

type CreateDeviceRequest struct {
	DeviceNo  string          `json:"device_no" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Type      string          `json:"type" binding:"required,oneof=camera water_gauge flow_meter"`
	AreaID    *uuid.UUID      `json:"area_id"`
	Longitude decimal.Decimal `json:"longitude"`
	Latitude  decimal.Decimal `json:"latitude"`
}

type UpdateDeviceRequest struct {
	Name   *string    `json:"name"`
	Status *string    `json:"status" binding:"omitempty,oneof=online offline fault"`
	AreaID *uuid.UUID `json:"area_id"`
}

// DeviceReadingRequest is a telemetry push from a field device
type DeviceReadingRequest struct {
	WaterLevel *decimal.Decimal `json:"water_level"`
	FlowRate   *decimal.Decimal `json:"flow_rate"`
}

type ListDevicesQuery struct {
	Type   string
	Status string
	AreaID *uuid.UUID
	Page   int
	Limit  int
}

// DeviceService manages monitoring devices and their telemetry
type DeviceService interface {
	Create(ctx context.Context, actor authority.Identity, req CreateDeviceRequest) (*model.Device, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Device, error)
	List(ctx context.Context, q ListDevicesQuery) ([]model.Device, int64, error)
	Update(ctx context.Context, actor authority.Identity, id uuid.UUID, req UpdateDeviceRequest) (*model.Device, error)
	Delete(ctx context.Context, actor authority.Identity, id uuid.UUID) error
	RecordReading(ctx context.Context, id uuid.UUID, req DeviceReadingRequest) (*model.Device, error)
}

type deviceService struct {
	devices repository.DeviceRepository
	audits  repository.AuditRepository
	txm     repository.TransactionManager
	hub     *websocket.Hub
}

func NewDeviceService(
	devices repository.DeviceRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	hub *websocket.Hub,
) DeviceService {
	return &deviceService{devices: devices, audits: audits, txm: txm, hub: hub}
}

func (s *deviceService) Create(ctx context.Context, actor authority.Identity, req CreateDeviceRequest) (*model.Device, error) {
	device := &model.Device{
		DeviceNo:  req.DeviceNo,
		Name:      req.Name,
		Type:      req.Type,
		Status:    model.DeviceStatusOffline,
		AreaID:    req.AreaID,
		Longitude: req.Longitude,
		Latitude:  req.Latitude,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.devices.Create(txCtx, device); createErr != nil {
			return createErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "create_device", device))
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (s *deviceService) Get(ctx context.Context, id uuid.UUID) (*model.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}

func (s *deviceService) List(ctx context.Context, q ListDevicesQuery) ([]model.Device, int64, error) {
	return s.devices.List(ctx, repository.DeviceFilter{
		Type:   q.Type,
		Status: q.Status,
		AreaID: q.AreaID,
		Page:   q.Page,
		Limit:  q.Limit,
	})
}

func (s *deviceService) Update(ctx context.Context, actor authority.Identity, id uuid.UUID, req UpdateDeviceRequest) (*model.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, ErrDeviceNotFound
	}

	if req.Name != nil {
		device.Name = *req.Name
	}
	if req.Status != nil {
		device.Status = *req.Status
	}
	if req.AreaID != nil {
		device.AreaID = req.AreaID
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.devices.Update(txCtx, device); updErr != nil {
			return updErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "update_device", device))
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (s *deviceService) Delete(ctx context.Context, actor authority.Identity, id uuid.UUID) error {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return ErrDeviceNotFound
	}
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.devices.Delete(txCtx, device.ID); delErr != nil {
			return delErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "delete_device", device))
	})
}

// RecordReading ingests a telemetry push, marks the device online and
// broadcasts the fresh reading to dashboards. No audit row: telemetry is
// machine traffic, not an operator action.
func (s *deviceService) RecordReading(ctx context.Context, id uuid.UUID, req DeviceReadingRequest) (*model.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, ErrDeviceNotFound
	}

	now := time.Now()
	if req.WaterLevel != nil {
		device.WaterLevel = *req.WaterLevel
	}
	if req.FlowRate != nil {
		device.FlowRate = *req.FlowRate
	}
	device.Status = model.DeviceStatusOnline
	device.LastSeenAt = &now

	if err := s.devices.Update(ctx, device); err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent("device_reading", device)
	return device, nil
}

func (s *deviceService) entry(actor authority.Identity, action string, device *model.Device) *model.OperationLog {
	return &model.OperationLog{
		UserID:     &actor.UserID,
		Username:   actor.Username,
		Module:     model.ModuleDevice,
		Action:     action,
		TargetType: "device",
		TargetID:   device.ID.String(),
		TargetName: device.DeviceNo,
		Status:     model.LogStatusSuccess,
	}
}
