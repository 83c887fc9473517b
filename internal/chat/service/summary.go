package service

import (
	"context"

	"schoolchat/internal/chat/repository"
	"schoolchat/internal/dbmysql"
)

const (
	conversationStartedText = "Conversation started."
	deletedSummaryText      = "Message deleted"
	deletedContentText      = "This message was deleted."
	editedPrefix            = "(Edited) "
	attachmentPlaceholder   = "Sent an attachment"
	genericPlaceholder      = "New message"
)

// summaryPreview renders the one-line conversation summary for a message.
func summaryPreview(msg *dbmysql.Message) string {
	if msg.IsDeleted {
		return deletedSummaryText
	}

	text := msg.Content
	if text == "" {
		if len(msg.Attachments) > 0 {
			text = attachmentPlaceholder
		} else {
			text = genericPlaceholder
		}
	}

	if msg.IsEdited {
		text = editedPrefix + text
	}
	return text
}

// applyDeliveryBookkeeping performs the conversation-side effects of a
// delivery: summary fields move to msg when it is the newest known message,
// and every participant other than the sender gains one unread. Caller holds
// the conversation lock and saves the record afterwards.
func applyDeliveryBookkeeping(conv *dbmysql.Conversation, msg *dbmysql.Message) {
	if !msg.Timestamp.Before(conv.LastMessageAt) {
		conv.LastMessage = summaryPreview(msg)
		conv.LastMessageSenderID = msg.SenderID
		conv.LastMessageAt = msg.Timestamp
	}

	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int)
	}
	for _, p := range conv.Participants {
		if p == msg.SenderID {
			continue
		}
		conv.UnreadCounts[p]++
	}
}

// recomputeSummaryLocked rescans a conversation's sent messages and rebuilds
// the summary from the newest one. Needed after edit and for-everyone delete:
// the touched message may or may not be the latest, and a rescan cannot go
// stale. Caller holds the conversation lock.
func recomputeSummaryLocked(ctx context.Context, repo repository.ChatRepository, conv *dbmysql.Conversation) error {
	messages, err := repo.MessagesByConversation(ctx, conv.ID)
	if err != nil {
		return err
	}

	var newest *dbmysql.Message
	for _, msg := range messages {
		if !msg.IsSent {
			continue
		}
		if newest == nil || msg.Timestamp.After(newest.Timestamp) {
			newest = msg
		}
	}

	if newest == nil {
		// No sent messages left. Keep the timestamp so the conversation
		// holds its place in the recency ordering.
		conv.LastMessage = conversationStartedText
		conv.LastMessageSenderID = ""
	} else {
		conv.LastMessage = summaryPreview(newest)
		conv.LastMessageSenderID = newest.SenderID
		conv.LastMessageAt = newest.Timestamp
	}

	return repo.SaveConversation(ctx, conv)
}
