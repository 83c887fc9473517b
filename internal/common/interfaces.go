package common

import (
	"context"
)

// Directory resolves user ids to display profiles. The user directory itself
// (registration, profiles, avatars) lives outside the messaging core; this is
// the only view of it the core needs.
type Directory interface {
	ResolveUser(ctx context.Context, userID string) (*UserProfile, error)
}

// NotificationPublisher delivers an in-app notification to a set of
// recipients. Fire-and-forget: the core never consumes a result.
type NotificationPublisher interface {
	Publish(title, body string, recipientIDs []string)
}

type Observer interface {
	Update(event NotificationEvent) error
	Name() string
}
