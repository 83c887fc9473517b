package common

import (
	"fmt"
	"strings"
	"time"
)

func ValidateUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return nil
}

// ValidateParticipants checks the two ids that make up a direct conversation.
func ValidateParticipants(userA, userB string) error {
	if err := ValidateUserID(userA); err != nil {
		return err
	}
	if err := ValidateUserID(userB); err != nil {
		return err
	}
	if userA == userB {
		return fmt.Errorf("%w: a conversation needs two distinct participants", ErrValidation)
	}
	return nil
}

func ValidateEmoji(emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return fmt.Errorf("%w: emoji is required", ErrValidation)
	}
	return nil
}

// ValidateScheduleTime rejects schedule targets that are not in the future.
func ValidateScheduleTime(at, now time.Time) error {
	if !at.After(now) {
		return fmt.Errorf("%w: scheduled send time must be in the future", ErrValidation)
	}
	return nil
}
