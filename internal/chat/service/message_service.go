package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"schoolchat/internal/chat/repository"
	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

// MessageService owns the message lifecycle: send, scheduled send, edit,
// per-user and for-everyone delete, reaction toggling and viewer-scoped
// visibility filtering.
type MessageService interface {
	Send(ctx context.Context, conversationID, senderID, content string, attachments []string, replyToID string) (*dbmysql.Message, error)
	Schedule(ctx context.Context, conversationID, senderID, content string, attachments []string, replyToID string, sendAt time.Time) (*dbmysql.Message, error)
	VisibleMessages(ctx context.Context, conversationID, viewerID string) ([]*dbmysql.Message, error)
	Edit(ctx context.Context, messageID, newContent string) (*dbmysql.Message, error)
	Delete(ctx context.Context, messageID, requesterID string, forEveryone bool) error
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) (*dbmysql.Message, error)
}

// replySnippetRunes caps the denormalized reply preview.
const replySnippetRunes = 120

type messageService struct {
	repo      repository.ChatRepository
	directory common.Directory
	publisher common.NotificationPublisher
	locks     *ConversationLocks
}

func NewMessageService(
	repo repository.ChatRepository,
	directory common.Directory,
	publisher common.NotificationPublisher,
	locks *ConversationLocks,
) MessageService {
	return &messageService{
		repo:      repo,
		directory: directory,
		publisher: publisher,
		locks:     locks,
	}
}

// Send creates a delivered message and performs the conversation-side
// bookkeeping: summary fields, unread counters and recipient notifications.
func (s *messageService) Send(ctx context.Context, conversationID, senderID, content string, attachments []string, replyToID string) (*dbmysql.Message, error) {
	lock := s.locks.Get(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, sender, err := s.prepareSend(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &dbmysql.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     sender.DisplayName,
		SenderAvatar:   sender.Avatar,
		Content:        content,
		Attachments:    attachments,
		Timestamp:      time.Now().UTC(),
		IsSent:         true,
		ReadBy:         []string{senderID},
	}
	if err := s.resolveReplyTo(ctx, msg, replyToID); err != nil {
		return nil, err
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// This message is by construction the newest, so the summary moves to
	// it directly instead of via a full recompute.
	applyDeliveryBookkeeping(conv, msg)
	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.notifyRecipients(conv, msg)

	return msg, nil
}

// Schedule creates a not-yet-delivered message. No summary, unread or
// notification effects happen now; the delivery sweeper applies them once
// the target instant passes.
func (s *messageService) Schedule(ctx context.Context, conversationID, senderID, content string, attachments []string, replyToID string, sendAt time.Time) (*dbmysql.Message, error) {
	now := time.Now().UTC()
	if err := common.ValidateScheduleTime(sendAt, now); err != nil {
		return nil, err
	}

	lock := s.locks.Get(conversationID)
	lock.Lock()
	defer lock.Unlock()

	_, sender, err := s.prepareSend(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	scheduledAt := sendAt.UTC()
	msg := &dbmysql.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     sender.DisplayName,
		SenderAvatar:   sender.Avatar,
		Content:        content,
		Attachments:    attachments,
		Timestamp:      now,
		IsSent:         false,
		ScheduledAt:    &scheduledAt,
		ReadBy:         []string{senderID},
	}
	if err := s.resolveReplyTo(ctx, msg, replyToID); err != nil {
		return nil, err
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// VisibleMessages is the only read path recipients use. A message is visible
// when it is delivered or authored by the viewer, and the viewer has not
// hidden it; scheduled drafts therefore show only to their author.
func (s *messageService) VisibleMessages(ctx context.Context, conversationID, viewerID string) ([]*dbmysql.Message, error) {
	if err := common.ValidateUserID(viewerID); err != nil {
		return nil, err
	}
	if _, err := s.repo.ConversationByID(ctx, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.repo.MessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	visible := make([]*dbmysql.Message, 0, len(messages))
	for _, msg := range messages {
		if !msg.IsSent && msg.SenderID != viewerID {
			continue
		}
		if msg.DeletedForUser(viewerID) {
			continue
		}
		visible = append(visible, msg)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Timestamp.Before(visible[j].Timestamp)
	})
	return visible, nil
}

// Edit replaces a message's content and recomputes the conversation summary.
// Recompute rather than direct overwrite: the edited message may or may not
// be the newest one.
func (s *messageService) Edit(ctx context.Context, messageID, newContent string) (*dbmysql.Message, error) {
	msg, unlock, err := s.lockMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	msg.Content = newContent
	msg.IsEdited = true
	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	conv, err := s.repo.ConversationByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := recomputeSummaryLocked(ctx, s.repo, conv); err != nil {
		return nil, err
	}
	return msg, nil
}

// Delete hides or tombstones a message. For-everyone is a sender-only action
// that blanks the record for all viewers; for-me only adds the requester to
// the message's hidden set and never touches the summary.
func (s *messageService) Delete(ctx context.Context, messageID, requesterID string, forEveryone bool) error {
	if err := common.ValidateUserID(requesterID); err != nil {
		return err
	}

	msg, unlock, err := s.lockMessage(ctx, messageID)
	if err != nil {
		return err
	}
	defer unlock()

	if !forEveryone {
		if msg.DeletedForUser(requesterID) {
			return nil
		}
		msg.DeletedFor = append(msg.DeletedFor, requesterID)
		return s.repo.SaveMessage(ctx, msg)
	}

	if msg.SenderID != requesterID {
		return fmt.Errorf("%w: only the sender can delete a message for everyone", common.ErrPermissionDenied)
	}

	msg.IsDeleted = true
	msg.Content = deletedContentText
	msg.Attachments = nil
	msg.Reactions = nil
	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return err
	}

	conv, err := s.repo.ConversationByID(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	return recomputeSummaryLocked(ctx, s.repo, conv)
}

// ToggleReaction flips the user's reaction. Reactions are keyed by user id,
// so setting a new emoji structurally replaces any previous one.
func (s *messageService) ToggleReaction(ctx context.Context, messageID, userID, emoji string) (*dbmysql.Message, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := common.ValidateEmoji(emoji); err != nil {
		return nil, err
	}

	msg, unlock, err := s.lockMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if msg.Reactions == nil {
		msg.Reactions = make(map[string]string)
	}
	if msg.Reactions[userID] == emoji {
		delete(msg.Reactions, userID)
	} else {
		msg.Reactions[userID] = emoji
	}

	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// lockMessage resolves a message id to its conversation, takes that
// conversation's lock and re-reads the message under it, so the caller
// mutates a current snapshot.
func (s *messageService) lockMessage(ctx context.Context, messageID string) (*dbmysql.Message, func(), error) {
	peek, err := s.repo.MessageByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}

	lock := s.locks.Get(peek.ConversationID)
	lock.Lock()

	msg, err := s.repo.MessageByID(ctx, messageID)
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	return msg, lock.Unlock, nil
}

// prepareSend checks the shared send/schedule preconditions: the conversation
// exists, the sender resolves in the directory and is a participant.
func (s *messageService) prepareSend(ctx context.Context, conversationID, senderID string) (*dbmysql.Conversation, *common.UserProfile, error) {
	if err := common.ValidateUserID(senderID); err != nil {
		return nil, nil, err
	}

	conv, err := s.repo.ConversationByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	sender, err := s.directory.ResolveUser(ctx, senderID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sender %s", common.ErrNotFound, senderID)
	}

	if !conv.HasParticipant(senderID) {
		return nil, nil, fmt.Errorf("%w: sender %s is not a participant of conversation %s",
			common.ErrPermissionDenied, senderID, conversationID)
	}

	return conv, sender, nil
}

// resolveReplyTo denormalizes a reply target into the message at creation
// time. Purely informational; the snippet survives later edits or deletes of
// the target.
func (s *messageService) resolveReplyTo(ctx context.Context, msg *dbmysql.Message, replyToID string) error {
	if replyToID == "" {
		return nil
	}

	target, err := s.repo.MessageByID(ctx, replyToID)
	if err != nil {
		return err
	}

	snippet := target.Content
	// Truncate on rune boundaries so a multi-byte emoji at the cut point
	// cannot leave invalid UTF-8 in the stored snippet.
	if runes := []rune(snippet); len(runes) > replySnippetRunes {
		snippet = string(runes[:replySnippetRunes])
	}
	msg.ReplyToID = target.ID
	msg.ReplyToSender = target.SenderName
	msg.ReplyToSnippet = snippet
	return nil
}

func (s *messageService) notifyRecipients(conv *dbmysql.Conversation, msg *dbmysql.Message) {
	if s.publisher == nil {
		return
	}

	recipients := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p != msg.SenderID {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}

	title := fmt.Sprintf("Message from %s", msg.SenderName)
	s.publisher.Publish(title, summaryPreview(msg), recipients)
}
