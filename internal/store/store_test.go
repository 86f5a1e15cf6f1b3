package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"billboard-realtime/internal/model"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestStore_ConversationParticipants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	board, err := s.CreateBillboard(ctx, "owner-1", "N1 Century City gantry", "Cape Town")
	require.NoError(t, err)

	conv, created, err := s.GetOrCreateConversation(ctx, "advertiser-1", []string{"owner-1", "owner-1", ""}, &board.ID, "Availability")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, conv.Participants, 2)

	again, created, err := s.GetOrCreateConversation(ctx, "owner-1", []string{"advertiser-1"}, &board.ID, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	ok, err := s.IsParticipant(ctx, "advertiser-1", conv.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsParticipant(ctx, "stranger", conv.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.IsParticipant(ctx, "advertiser-1", "conv-404")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.ParticipantIDs(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"advertiser-1", "owner-1"}, ids)

	_, err = s.GetConversation(ctx, "stranger", conv.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
	_, err = s.GetConversation(ctx, "owner-1", "conv-404")
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := s.ListConversations(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)
}

func TestStore_ConversationNeedsTwoParticipants(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.GetOrCreateConversation(context.Background(), "u1", []string{"u1"}, nil, "")
	assert.True(t, errors.Is(err, ErrInvalid))

	missing := "billboard-404"
	_, _, err = s.GetOrCreateConversation(context.Background(), "u1", []string{"u2"}, &missing, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Messages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv, _, err := s.GetOrCreateConversation(ctx, "u1", []string{"u2"}, nil, "")
	require.NoError(t, err)

	msg1, err := s.AppendMessage(ctx, conv.ID, "u1", " hello ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg1.Content)
	msg2, err := s.AppendMessage(ctx, conv.ID, "u2", "hi")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, conv.ID, "u3", "intruder")
	assert.True(t, errors.Is(err, ErrForbidden))
	_, err = s.AppendMessage(ctx, conv.ID, "u1", "   ")
	assert.True(t, errors.Is(err, ErrInvalid))

	all, err := s.ListMessages(ctx, "u2", conv.ID, MessageCursor{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, msg1.ID, all[0].ID)

	after, err := s.ListMessages(ctx, "u2", conv.ID, MessageCursor{CreatedAt: msg1.CreatedAt}, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, msg2.ID, after[0].ID)

	_, err = s.ListMessages(ctx, "u3", conv.ID, MessageCursor{}, 10)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestStore_MarkMessageRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv, _, err := s.GetOrCreateConversation(ctx, "u1", []string{"u2"}, nil, "")
	require.NoError(t, err)
	msg, err := s.AppendMessage(ctx, conv.ID, "u1", "hello")
	require.NoError(t, err)

	_, _, err = s.MarkMessageRead(ctx, msg.ID, "u1")
	assert.True(t, errors.Is(err, ErrInvalid))
	_, _, err = s.MarkMessageRead(ctx, msg.ID, "u3")
	assert.True(t, errors.Is(err, ErrForbidden))
	_, _, err = s.MarkMessageRead(ctx, "missing", "u2")
	assert.True(t, errors.Is(err, ErrNotFound))

	convID, readAt, err := s.MarkMessageRead(ctx, msg.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, convID)

	_, again, err := s.MarkMessageRead(ctx, msg.ID, "u2")
	require.NoError(t, err)
	assert.True(t, readAt.Equal(again))
}

func TestStore_MarkMessageReadPerParticipant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv, _, err := s.GetOrCreateConversation(ctx, "u1", []string{"u2", "u3"}, nil, "Group booking")
	require.NoError(t, err)
	msg, err := s.AppendMessage(ctx, conv.ID, "u1", "Three faces available from June")
	require.NoError(t, err)

	_, firstAt, err := s.MarkMessageRead(ctx, msg.ID, "u2")
	require.NoError(t, err)
	_, secondAt, err := s.MarkMessageRead(ctx, msg.ID, "u3")
	require.NoError(t, err)
	assert.True(t, secondAt.After(firstAt))

	_, repeatAt, err := s.MarkMessageRead(ctx, msg.ID, "u3")
	require.NoError(t, err)
	assert.True(t, secondAt.Equal(repeatAt))

	reads, err := s.MessageReads(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, reads, 2)
	assert.Equal(t, "u2", reads[0].UserID)
	assert.True(t, firstAt.Equal(reads[0].ReadAt))
	assert.Equal(t, "u3", reads[1].UserID)
	assert.True(t, secondAt.Equal(reads[1].ReadAt))

	msgs, err := s.ListMessages(ctx, "u1", conv.ID, MessageCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].Reads, 2)
}

func TestStore_ListMessagesCursorKeepsTies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	conv, _, err := s.GetOrCreateConversation(ctx, "u1", []string{"u2"}, nil, "")
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	for i := 0; i < 5; i++ {
		_, err := s.AppendMessage(ctx, conv.ID, "u1", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	var seen []string
	cursor := MessageCursor{}
	for page := 0; page < 5; page++ {
		msgs, err := s.ListMessages(ctx, "u2", conv.ID, cursor, 2)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			seen = append(seen, m.ID)
		}
		cursor = CursorAfter(msgs[len(msgs)-1])
	}
	assert.Len(t, seen, 5)
	assert.Len(t, lo.Uniq(seen), 5)
}

func TestStore_Notifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateNotification(ctx, model.Notification{UserID: "u1"})
	assert.True(t, errors.Is(err, ErrInvalid))

	first, err := s.CreateNotification(ctx, model.Notification{UserID: "u1", Type: model.NotificationMessage, Title: "New message"})
	require.NoError(t, err)
	_, err = s.CreateNotification(ctx, model.Notification{UserID: "u1", Type: model.NotificationSystem, Title: "Welcome"})
	require.NoError(t, err)

	count, err := s.UnreadNotificationCount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, s.MarkNotificationRead(ctx, "u1", first.ID))
	assert.True(t, errors.Is(s.MarkNotificationRead(ctx, "u2", first.ID), ErrNotFound))

	unread, err := s.ListNotifications(ctx, "u1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Welcome", unread[0].Title)

	all, err := s.ListNotifications(ctx, "u1", false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_BillboardStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b, err := s.CreateBillboard(ctx, "owner-1", "M1 Sandton digital", "Johannesburg")
	require.NoError(t, err)
	assert.Equal(t, model.BillboardPending, b.Status)

	updated, previous, err := s.UpdateBillboardStatus(ctx, b.ID, model.BillboardApproved)
	require.NoError(t, err)
	assert.Equal(t, model.BillboardPending, previous)
	assert.Equal(t, model.BillboardApproved, updated.Status)

	reloaded, err := s.GetBillboard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillboardApproved, reloaded.Status)

	_, _, err = s.UpdateBillboardStatus(ctx, b.ID, "demolished")
	assert.True(t, errors.Is(err, ErrInvalid))
	_, _, err = s.UpdateBillboardStatus(ctx, "missing", model.BillboardActive)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}
