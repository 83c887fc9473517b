package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"schoolchat/internal/chat/repository"
	"schoolchat/internal/common"
)

// DeliverySweeper promotes due scheduled messages to delivered state and
// applies the same conversation bookkeeping an ordinary send would. It runs
// on a recurring timer; there is no push path for scheduled delivery.
type DeliverySweeper struct {
	repo      repository.ChatRepository
	publisher common.NotificationPublisher
	locks     *ConversationLocks
}

func NewDeliverySweeper(
	repo repository.ChatRepository,
	publisher common.NotificationPublisher,
	locks *ConversationLocks,
) *DeliverySweeper {
	return &DeliverySweeper{
		repo:      repo,
		publisher: publisher,
		locks:     locks,
	}
}

// Sweep delivers every message whose scheduled time has passed and returns
// how many it delivered. Safe to call repeatedly with the same instant:
// already-delivered messages are skipped. A bad record is logged and skipped
// so it cannot halt delivery of the rest.
func (s *DeliverySweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.DueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, msg := range due {
		if err := s.deliver(ctx, msg.ID, now); err != nil {
			log.Printf("sweep: delivery of message %s failed: %v", msg.ID, err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// deliver promotes one scheduled message under its conversation lock. Due
// messages arrive in scheduled-time order, so when several deliver into the
// same conversation the last one processed owns the summary, matching what a
// full recompute would pick.
func (s *DeliverySweeper) deliver(ctx context.Context, messageID string, now time.Time) error {
	// The conversation id on the listed record is immutable, so it is safe
	// to pick the lock from the pre-lock read.
	peek, err := s.repo.MessageByID(ctx, messageID)
	if err != nil {
		return err
	}

	lock := s.locks.Get(peek.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.repo.MessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.IsSent {
		// A concurrent sweep already delivered it.
		return nil
	}

	msg.IsSent = true
	msg.Timestamp = now
	msg.ScheduledAt = nil
	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return err
	}

	conv, err := s.repo.ConversationByID(ctx, msg.ConversationID)
	if err != nil {
		return err
	}

	applyDeliveryBookkeeping(conv, msg)
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return err
	}

	if s.publisher != nil {
		recipients := make([]string, 0, len(conv.Participants))
		for _, p := range conv.Participants {
			if p != msg.SenderID {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) > 0 {
			title := fmt.Sprintf("Message from %s", msg.SenderName)
			s.publisher.Publish(title, summaryPreview(msg), recipients)
		}
	}

	return nil
}

// Run drives Sweep on a ticker until the context is cancelled.
func (s *DeliverySweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("delivery sweeper running every %s", interval)
	for {
		select {
		case <-ticker.C:
			if n, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
				log.Printf("sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("sweep delivered %d scheduled message(s)", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
