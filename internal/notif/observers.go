package notif

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

// Repository is the persistence surface the publisher needs; implemented by
// dbmysql.NotificationRepository.
type Repository interface {
	Create(ctx context.Context, notification *dbmysql.Notification) error
	ByUserID(ctx context.Context, userID string, limit, offset int) ([]*dbmysql.Notification, error)
	UpdateStatus(ctx context.Context, id, status string) error
	MarkAsRead(ctx context.Context, id, userID string) error
}

// DatabaseNotificationObserver stores every published event as an in-app
// notification row.
type DatabaseNotificationObserver struct {
	repo Repository
}

func NewDatabaseNotificationObserver(repo Repository) *DatabaseNotificationObserver {
	return &DatabaseNotificationObserver{
		repo: repo,
	}
}

func (d *DatabaseNotificationObserver) Name() string {
	return "database_observer"
}

func (d *DatabaseNotificationObserver) Update(event common.NotificationEvent) error {
	ctx := context.Background()
	now := time.Now()
	notification := &dbmysql.Notification{
		ID:            uuid.NewString(),
		UserID:        event.UserID,
		Type:          string(event.Type),
		Header:        event.Header,
		Content:       event.Content,
		Priority:      event.Priority,
		Status:        string(common.StatusPending),
		TriggerUserID: event.TriggerUserID,
		SentAt:        &now,
	}

	if err := d.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	// Rows start pending and are promoted to sent once the write lands.
	if err := d.repo.UpdateStatus(ctx, notification.ID, string(common.StatusSent)); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}
