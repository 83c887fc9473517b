package di

import (
	"time"

	"gorm.io/gorm"

	"schoolchat/internal/chat/handler"
	"schoolchat/internal/chat/service"
	"schoolchat/internal/config"
	"schoolchat/internal/notif"
	"schoolchat/internal/presence"
)

// Application bundles everything cmd/chat-svc needs to run.
type Application struct {
	Config        *config.Config
	DB            *gorm.DB
	Handler       *handler.ChatHandler
	Sweeper       *service.DeliverySweeper
	Notifications *notif.NotificationService
	Presence      *presence.Tracker
}

func providePresenceTracker(cfg *config.Config) *presence.Tracker {
	return presence.NewTracker(time.Duration(cfg.Messaging.TypingTTLMillis) * time.Millisecond)
}
