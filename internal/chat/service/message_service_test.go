package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"schoolchat/internal/chat/service/mocks"
	"schoolchat/internal/common"
	"schoolchat/internal/dbmysql"
)

type messageFixture struct {
	svc       MessageService
	repo      *fakeChatRepo
	directory *mocks.MockDirectory
	publisher *mocks.MockNotificationPublisher
	conv      *dbmysql.Conversation
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	repo := newFakeChatRepo()
	directory := mocks.NewMockDirectory(ctrl)
	publisher := mocks.NewMockNotificationPublisher(ctrl)
	locks := NewConversationLocks()

	conv := &dbmysql.Conversation{
		ID:            "conv-1",
		Participants:  []string{"student-1", "teacher-1"},
		LastMessage:   "Conversation started.",
		LastMessageAt: time.Now().Add(-time.Hour),
		UnreadCounts:  map[string]int{"student-1": 0, "teacher-1": 0},
	}
	require.NoError(t, repo.CreateConversation(context.Background(), conv))

	return &messageFixture{
		svc:       NewMessageService(repo, directory, publisher, locks),
		repo:      repo,
		directory: directory,
		publisher: publisher,
		conv:      conv,
	}
}

func (f *messageFixture) expectSender(id, name string) {
	f.directory.EXPECT().
		ResolveUser(gomock.Any(), id).
		Return(&common.UserProfile{ID: id, DisplayName: name}, nil).
		AnyTimes()
}

func TestSend(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("student-1", "Priya")
	f.publisher.EXPECT().Publish("Message from Priya", "hey there", []string{"teacher-1"})

	msg, err := f.svc.Send(context.Background(), "conv-1", "student-1", "hey there", nil, "")
	require.NoError(t, err)

	assert.True(t, msg.IsSent)
	assert.Nil(t, msg.ScheduledAt)
	assert.Equal(t, "Priya", msg.SenderName)
	assert.Equal(t, []string{"student-1"}, msg.ReadBy)

	stored, err := f.repo.MessageByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hey there", stored.Content)

	conv, err := f.repo.ConversationByID(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "hey there", conv.LastMessage)
	assert.Equal(t, "student-1", conv.LastMessageSenderID)
	assert.True(t, conv.LastMessageAt.Equal(msg.Timestamp))
	assert.Equal(t, 0, conv.UnreadCounts["student-1"])
	assert.Equal(t, 1, conv.UnreadCounts["teacher-1"])
}

func TestSend_Errors(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()

	f.directory.EXPECT().
		ResolveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*common.UserProfile, error) {
			if id == "ghost" {
				return nil, common.ErrNotFound
			}
			return &common.UserProfile{ID: id, DisplayName: id}, nil
		}).
		AnyTimes()

	_, err := f.svc.Send(ctx, "conv-missing", "student-1", "hi", nil, "")
	assert.True(t, common.IsNotFound(err))

	_, err = f.svc.Send(ctx, "conv-1", "ghost", "hi", nil, "")
	assert.True(t, common.IsNotFound(err))

	_, err = f.svc.Send(ctx, "conv-1", "outsider", "hi", nil, "")
	assert.True(t, common.IsPermissionDenied(err))

	_, err = f.svc.Send(ctx, "conv-1", "", "hi", nil, "")
	assert.True(t, common.IsValidation(err))
}

func TestSend_ReplySnippet(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("student-1", "Priya")
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	long := strings.Repeat("a", 200)
	target, err := f.svc.Send(ctx, "conv-1", "teacher-1", long, nil, "")
	require.NoError(t, err)

	reply, err := f.svc.Send(ctx, "conv-1", "student-1", "got it", nil, target.ID)
	require.NoError(t, err)

	assert.Equal(t, target.ID, reply.ReplyToID)
	assert.Equal(t, "Mr. Rao", reply.ReplyToSender)
	assert.Len(t, reply.ReplyToSnippet, 120)
}

func TestSend_ReplySnippetKeepsRunesIntact(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("student-1", "Priya")
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	// 119 ASCII characters followed by emoji puts a multi-byte rune right at
	// the truncation point.
	target, err := f.svc.Send(ctx, "conv-1", "teacher-1",
		strings.Repeat("a", 119)+"🙂🙂🙂", nil, "")
	require.NoError(t, err)

	reply, err := f.svc.Send(ctx, "conv-1", "student-1", "nice", nil, target.ID)
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(reply.ReplyToSnippet))
	assert.Equal(t, 120, utf8.RuneCountInString(reply.ReplyToSnippet))
	assert.True(t, strings.HasSuffix(reply.ReplyToSnippet, "🙂"))
}

func TestSchedule(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("student-1", "Priya")

	ctx := context.Background()
	sendAt := time.Now().Add(time.Hour)
	msg, err := f.svc.Schedule(ctx, "conv-1", "student-1", "see you tomorrow", nil, "", sendAt)
	require.NoError(t, err)

	assert.False(t, msg.IsSent)
	require.NotNil(t, msg.ScheduledAt)
	assert.True(t, msg.ScheduledAt.Equal(sendAt))

	// Scheduling has no conversation-side effects until delivery.
	conv, err := f.repo.ConversationByID(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "Conversation started.", conv.LastMessage)
	assert.Equal(t, 0, conv.UnreadCounts["teacher-1"])
}

func TestSchedule_PastTime(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.svc.Schedule(context.Background(), "conv-1", "student-1",
		"too late", nil, "", time.Now().Add(-time.Minute))
	assert.True(t, common.IsValidation(err))
}

func TestSchedule_ReplySnippet(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("student-1", "Priya")
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	target, err := f.svc.Send(ctx, "conv-1", "teacher-1", "exam moved to Monday", nil, "")
	require.NoError(t, err)

	// A scheduled reply carries the same denormalized reply context a direct
	// send would.
	draft, err := f.svc.Schedule(ctx, "conv-1", "student-1", "noted, thanks", nil,
		target.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, target.ID, draft.ReplyToID)
	assert.Equal(t, "Mr. Rao", draft.ReplyToSender)
	assert.Equal(t, "exam moved to Monday", draft.ReplyToSnippet)

	_, err = f.svc.Schedule(ctx, "conv-1", "student-1", "dangling", nil,
		"msg-missing", time.Now().Add(time.Hour))
	assert.True(t, common.IsNotFound(err))
}

func TestVisibleMessages(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("student-1", "Priya")
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	first, err := f.svc.Send(ctx, "conv-1", "teacher-1", "homework is due Friday", nil, "")
	require.NoError(t, err)
	second, err := f.svc.Send(ctx, "conv-1", "student-1", "understood", nil, "")
	require.NoError(t, err)
	draft, err := f.svc.Schedule(ctx, "conv-1", "student-1", "reminder", nil, "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	// The author sees their scheduled draft in timestamp order.
	visible, err := f.svc.VisibleMessages(ctx, "conv-1", "student-1")
	require.NoError(t, err)
	require.Len(t, visible, 3)
	assert.Equal(t, first.ID, visible[0].ID)
	assert.Equal(t, second.ID, visible[1].ID)
	assert.Equal(t, draft.ID, visible[2].ID)

	// The other participant does not see it before delivery.
	visible, err = f.svc.VisibleMessages(ctx, "conv-1", "teacher-1")
	require.NoError(t, err)
	require.Len(t, visible, 2)

	// Delete-for-me hides the message for that user only.
	require.NoError(t, f.svc.Delete(ctx, first.ID, "student-1", false))

	visible, err = f.svc.VisibleMessages(ctx, "conv-1", "student-1")
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, second.ID, visible[0].ID)

	visible, err = f.svc.VisibleMessages(ctx, "conv-1", "teacher-1")
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, first.ID, visible[0].ID)
}

func TestDelete_ForMeIdempotent(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	msg, err := f.svc.Send(ctx, "conv-1", "teacher-1", "hello", nil, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, msg.ID, "student-1", false))
	require.NoError(t, f.svc.Delete(ctx, msg.ID, "student-1", false))

	stored, err := f.repo.MessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1"}, stored.DeletedFor)
	assert.False(t, stored.IsDeleted)
}

func TestDelete_ForEveryone(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	msg, err := f.svc.Send(ctx, "conv-1", "teacher-1", "please disregard", []string{"att-1"}, "")
	require.NoError(t, err)
	_, err = f.svc.ToggleReaction(ctx, msg.ID, "student-1", "👍")
	require.NoError(t, err)

	// Only the sender may delete for everyone.
	err = f.svc.Delete(ctx, msg.ID, "student-1", true)
	assert.True(t, common.IsPermissionDenied(err))

	require.NoError(t, f.svc.Delete(ctx, msg.ID, "teacher-1", true))

	stored, err := f.repo.MessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, "This message was deleted.", stored.Content)
	assert.Empty(t, stored.Attachments)
	assert.Empty(t, stored.Reactions)

	// The tombstone stays visible to everyone and drives the summary.
	visible, err := f.svc.VisibleMessages(ctx, "conv-1", "student-1")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.True(t, visible[0].IsDeleted)

	conv, err := f.repo.ConversationByID(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "Message deleted", conv.LastMessage)
}

func TestEdit(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	msg, err := f.svc.Send(ctx, "conv-1", "teacher-1", "homework due Thursday", nil, "")
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, msg.ID, "homework due Friday")
	require.NoError(t, err)
	assert.Equal(t, "homework due Friday", edited.Content)
	assert.True(t, edited.IsEdited)

	conv, err := f.repo.ConversationByID(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "(Edited) homework due Friday", conv.LastMessage)
}

func TestEdit_OlderMessageKeepsSummary(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	older, err := f.svc.Send(ctx, "conv-1", "teacher-1", "first", nil, "")
	require.NoError(t, err)
	// Push the second message clearly past the first.
	older.Timestamp = time.Now().Add(-time.Minute)
	require.NoError(t, f.repo.SaveMessage(ctx, older))
	_, err = f.svc.Send(ctx, "conv-1", "teacher-1", "second", nil, "")
	require.NoError(t, err)

	_, err = f.svc.Edit(ctx, older.ID, "first, revised")
	require.NoError(t, err)

	conv, err := f.repo.ConversationByID(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "second", conv.LastMessage)
}

func TestEdit_MissingMessage(t *testing.T) {
	f := newMessageFixture(t)

	_, err := f.svc.Edit(context.Background(), "msg-missing", "anything")
	assert.True(t, common.IsNotFound(err))
}

func TestToggleReaction(t *testing.T) {
	f := newMessageFixture(t)
	f.expectSender("teacher-1", "Mr. Rao")
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	ctx := context.Background()
	msg, err := f.svc.Send(ctx, "conv-1", "teacher-1", "good work", nil, "")
	require.NoError(t, err)

	// Add.
	updated, err := f.svc.ToggleReaction(ctx, msg.ID, "student-1", "👍")
	require.NoError(t, err)
	assert.Equal(t, "👍", updated.Reactions["student-1"])

	// Switching emoji replaces the previous one; one reaction per user.
	updated, err = f.svc.ToggleReaction(ctx, msg.ID, "student-1", "❤️")
	require.NoError(t, err)
	assert.Equal(t, "❤️", updated.Reactions["student-1"])
	assert.Len(t, updated.Reactions, 1)

	// Same emoji again removes it.
	updated, err = f.svc.ToggleReaction(ctx, msg.ID, "student-1", "❤️")
	require.NoError(t, err)
	assert.Empty(t, updated.Reactions)

	_, err = f.svc.ToggleReaction(ctx, msg.ID, "student-1", "")
	assert.True(t, common.IsValidation(err))
}
