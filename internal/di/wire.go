//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"schoolchat/internal/chat/handler"
	"schoolchat/internal/chat/repository"
	"schoolchat/internal/chat/service"
	"schoolchat/internal/common"
	"schoolchat/internal/config"
	"schoolchat/internal/dbmysql"
	"schoolchat/internal/directory"
	"schoolchat/internal/notif"
)

// InitChatApplication wires the messaging engine together. Wire generates
// the real body in wire_gen.go.
func InitChatApplication(cfg *config.Config, db *gorm.DB) (*Application, error) {
	wire.Build(
		repository.NewChatRepository,
		service.NewConversationLocks,
		service.NewConversationService,
		service.NewMessageService,
		service.NewDeliverySweeper,
		directory.NewDirectory,
		dbmysql.NewNotificationRepository,
		wire.Bind(new(notif.Repository), new(*dbmysql.NotificationRepository)),
		notif.NewNotificationService,
		wire.Bind(new(common.NotificationPublisher), new(*notif.NotificationService)),
		providePresenceTracker,
		handler.NewChatHandler,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
