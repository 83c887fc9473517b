// Package directory adapts the school's user directory to the narrow lookup
// the messaging engine needs: id in, display name and avatar out.
package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

type dbDirectory struct {
	db *gorm.DB
}

// NewDirectory returns a read-only Directory backed by the users table.
func NewDirectory(db *gorm.DB) common.Directory {
	return &dbDirectory{db: db}
}

func (d *dbDirectory) ResolveUser(ctx context.Context, userID string) (*common.UserProfile, error) {
	var user dbmysql.User
	err := d.db.WithContext(ctx).
		Where("id = ? AND status = ?", userID, "active").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return &common.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
	}, nil
}
