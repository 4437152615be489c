package service

import (
	"context"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type ListNotificationsQuery struct {
	Type       string
	UnreadOnly bool
	Page       int
	Limit      int
}

type NotificationIDsRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// NotificationSummary is the badge payload for the dashboard header.
type NotificationSummary struct {
	Unread int64            `json:"unread"`
	ByType map[string]int64 `json:"by_type"`
}

// NotificationService manages per-user messages. Everything is scoped to
// the caller; users can never touch another user's notifications.
type NotificationService interface {
	List(ctx context.Context, actor authority.Identity, q ListNotificationsQuery) ([]model.Notification, int64, error)
	UnreadCount(ctx context.Context, actor authority.Identity) (int64, error)
	Summary(ctx context.Context, actor authority.Identity) (*NotificationSummary, error)
	MarkRead(ctx context.Context, actor authority.Identity, ids []uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, actor authority.Identity) (int64, error)
	DeleteBatch(ctx context.Context, actor authority.Identity, ids []uuid.UUID) (int64, error)
}

type notificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) NotificationService {
	return &notificationService{notifications: notifications}
}

func (s *notificationService) List(ctx context.Context, actor authority.Identity, q ListNotificationsQuery) ([]model.Notification, int64, error) {
	return s.notifications.ListForUser(ctx, actor.UserID, repository.NotificationFilter{
		Type:       q.Type,
		UnreadOnly: q.UnreadOnly,
		Page:       q.Page,
		Limit:      q.Limit,
	})
}

func (s *notificationService) UnreadCount(ctx context.Context, actor authority.Identity) (int64, error) {
	return s.notifications.UnreadCount(ctx, actor.UserID)
}

func (s *notificationService) Summary(ctx context.Context, actor authority.Identity) (*NotificationSummary, error) {
	unread, err := s.notifications.UnreadCount(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	byType, err := s.notifications.CountByType(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &NotificationSummary{Unread: unread, ByType: byType}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor authority.Identity, ids []uuid.UUID) (int64, error) {
	if err := authority.ValidateBatch(ids); err != nil {
		return 0, err
	}
	return s.notifications.MarkRead(ctx, actor.UserID, ids)
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor authority.Identity) (int64, error) {
	return s.notifications.MarkAllRead(ctx, actor.UserID)
}

func (s *notificationService) DeleteBatch(ctx context.Context, actor authority.Identity, ids []uuid.UUID) (int64, error) {
	if err := authority.ValidateBatch(ids); err != nil {
		return 0, err
	}
	return s.notifications.DeleteBatch(ctx, actor.UserID, ids)
}
