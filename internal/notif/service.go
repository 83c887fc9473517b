package notif

import (
	"context"
	"fmt"

	"schoolchat/internal/common"
	"schoolchat/internal/config"
	"schoolchat/internal/dbmysql"
)

// NotificationService is the in-app notification publisher of the messaging
// engine. Publish satisfies common.NotificationPublisher: fire-and-forget
// fan-out, one stored row per recipient.
type NotificationService struct {
	manager *NotificationManager
	repo    Repository
}

func NewNotificationService(cfg *config.Config, repo Repository) *NotificationService {
	workers := cfg.Notification.Workers
	if workers <= 0 {
		workers = 1
	}
	manager := NewNotificationManager(workers)

	manager.Subscribe(NewDatabaseNotificationObserver(repo))

	return &NotificationService{
		manager: manager,
		repo:    repo,
	}
}

// Publish delivers an in-app notification to every recipient. Errors are the
// observers' problem; callers never wait on delivery.
func (s *NotificationService) Publish(title, body string, recipientIDs []string) {
	for _, recipient := range recipientIDs {
		event := common.NotificationEvent{
			Type:     common.MessageType,
			UserID:   recipient,
			Header:   title,
			Content:  body,
			Priority: 4,
		}
		s.manager.NotifyAsync(event)
	}
}

// GetUserNotifications returns the stored in-app notifications for a user,
// newest first.
func (s *NotificationService) GetUserNotifications(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]*common.NotificationResponse, error) {
	notifications, err := s.repo.ByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	responses := make([]*common.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = toResponse(n)
	}
	return responses, nil
}

// MarkAsRead marks one of the user's notifications read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *NotificationService) Shutdown() {
	s.manager.Shutdown()
}

func toResponse(n *dbmysql.Notification) *common.NotificationResponse {
	return &common.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Header:    n.Header,
		Content:   n.Content,
		Status:    n.Status,
		Priority:  n.Priority,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
