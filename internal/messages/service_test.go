package messages

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messagely/server/internal/apperr"
	"github.com/messagely/server/internal/model"
)

// fakeUserRepo is an in-memory UserRepo. batchCalls counts
// SummariesByUsernames invocations so aggregation tests can assert the
// batched (non-N+1) lookup shape.
type fakeUserRepo struct {
	users      map[string]model.User
	batchCalls int
}

func newFakeUserRepo(users ...model.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[string]model.User)}
	for _, u := range users {
		f.users[u.Username] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return model.User{}, apperr.ErrDuplicateUsername
	}
	f.users[user.Username] = user
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	user, ok := f.users[username]
	if !ok {
		return model.User{}, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
	}
	return user, nil
}

func (f *fakeUserRepo) CredentialByUsername(ctx context.Context, username string) (model.User, error) {
	return f.GetByUsername(ctx, username)
}

func (f *fakeUserRepo) TouchLogin(ctx context.Context, username string) (model.User, error) {
	return f.GetByUsername(ctx, username)
}

func (f *fakeUserRepo) List(ctx context.Context) ([]model.UserSummary, error) {
	var out []model.UserSummary
	for _, u := range f.users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserRepo) SummariesByUsernames(ctx context.Context, usernames []string) (map[string]model.UserSummary, error) {
	f.batchCalls++
	out := make(map[string]model.UserSummary, len(usernames))
	for _, name := range usernames {
		if u, ok := f.users[name]; ok {
			out[name] = u.Summary()
		}
	}
	return out, nil
}

// fakeMessageRepo is an in-memory MessageRepo with serial ids and a
// conditional read_at transition matching the store's semantics.
type fakeMessageRepo struct {
	msgs   map[int64]model.Message
	nextID int64
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: make(map[int64]model.Message), nextID: 1}
}

func (f *fakeMessageRepo) Create(ctx context.Context, from, to, body string) (model.Message, error) {
	msg := model.Message{
		ID:           f.nextID,
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       time.Now(),
	}
	f.msgs[msg.ID] = msg
	f.nextID++
	return msg, nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id int64) (model.Message, error) {
	msg, ok := f.msgs[id]
	if !ok {
		return model.Message{}, fmt.Errorf("message %d: %w", id, apperr.ErrNotFound)
	}
	return msg, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, id int64) (model.Message, error) {
	msg, ok := f.msgs[id]
	if !ok {
		return model.Message{}, fmt.Errorf("message %d: %w", id, apperr.ErrNotFound)
	}
	if msg.ReadAt == nil {
		now := time.Now()
		msg.ReadAt = &now
		f.msgs[id] = msg
	}
	return msg, nil
}

func (f *fakeMessageRepo) ListFrom(ctx context.Context, username string) ([]model.Message, error) {
	var out []model.Message
	for id := int64(1); id < f.nextID; id++ {
		if msg, ok := f.msgs[id]; ok && msg.FromUsername == username {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListTo(ctx context.Context, username string) ([]model.Message, error) {
	var out []model.Message
	for id := int64(1); id < f.nextID; id++ {
		if msg, ok := f.msgs[id]; ok && msg.ToUsername == username {
			out = append(out, msg)
		}
	}
	return out, nil
}

func testUser(username, first, last, phone string) model.User {
	return model.User{Username: username, FirstName: first, LastName: last, Phone: phone}
}

func newTestService() (*MessageService, *fakeMessageRepo, *fakeUserRepo) {
	users := newFakeUserRepo(
		testUser("alice", "Alice", "Anderson", "+15550001"),
		testUser("bob", "Bob", "Brown", "+15550002"),
		testUser("carol", "Carol", "Clark", "+15550003"),
	)
	msgs := newFakeMessageRepo()
	return NewMessageService(msgs, users), msgs, users
}

func TestSend(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, "alice", msg.FromUsername)
	assert.Equal(t, "bob", msg.ToUsername)
	assert.Equal(t, "hi", msg.Body)
	assert.False(t, msg.SentAt.IsZero())
	assert.Nil(t, msg.ReadAt)
}

func TestSend_ToSelf(t *testing.T) {
	svc, _, _ := newTestService()

	msg, err := svc.Send(context.Background(), "alice", "alice", "note to self")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.ToUsername)
}

func TestSend_UnknownRecipient(t *testing.T) {
	svc, msgs, _ := newTestService()

	_, err := svc.Send(context.Background(), "alice", "nobody", "hi")
	assert.ErrorIs(t, err, apperr.ErrRecipientNotFound)
	assert.Empty(t, msgs.msgs, "no message row on failure")
}

func TestSend_EmptyBody(t *testing.T) {
	svc, msgs, _ := newTestService()

	for _, body := range []string{"", "   "} {
		_, err := svc.Send(context.Background(), "alice", "bob", body)
		assert.ErrorIs(t, err, apperr.ErrValidation, "body %q", body)
	}
	assert.Empty(t, msgs.msgs)
}

func TestGet_Visibility(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	for _, caller := range []string{"alice", "bob"} {
		view, err := svc.Get(ctx, caller, msg.ID)
		require.NoError(t, err, "caller %s", caller)
		assert.Equal(t, "alice", view.FromUser.Username)
		assert.Equal(t, "Alice", view.FromUser.FirstName)
		assert.Equal(t, "bob", view.ToUser.Username)
		assert.Equal(t, "Brown", view.ToUser.LastName)
		assert.Nil(t, view.ReadAt)
	}

	_, err = svc.Get(ctx, "carol", msg.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Get(context.Background(), "alice", 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMarkRead_RecipientOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "sender may not mark read")

	_, err = svc.MarkRead(ctx, "carol", msg.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	view, err := svc.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReadAt)
}

func TestMarkRead_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	first, err := svc.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	time.Sleep(10 * time.Millisecond)

	second, err := svc.MarkRead(ctx, "bob", msg.ID)
	require.NoError(t, err, "re-marking is a no-op success")
	require.NotNil(t, second.ReadAt)
	assert.Equal(t, *first.ReadAt, *second.ReadAt, "timestamp unchanged after first mark")
}

func TestMarkRead_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.MarkRead(context.Background(), "bob", 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListSent(t *testing.T) {
	svc, _, users := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "alice", "carol", "two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "alice", "bob", "three")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "bob", "alice", "not mine")
	require.NoError(t, err)

	users.batchCalls = 0
	sent, err := svc.ListSent(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, sent, 3)

	assert.Equal(t, 1, users.batchCalls, "counterparts resolved in one batched lookup")

	assert.Equal(t, "one", sent[0].Body)
	assert.Equal(t, "bob", sent[0].ToUser.Username)
	assert.Equal(t, "Bob", sent[0].ToUser.FirstName)
	assert.Equal(t, "carol", sent[1].ToUser.Username)
	assert.Equal(t, "bob", sent[2].ToUser.Username)
}

func TestListReceived(t *testing.T) {
	svc, _, users := newTestService()
	ctx := context.Background()

	_, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "carol", "bob", "hey")
	require.NoError(t, err)

	users.batchCalls = 0
	received, err := svc.ListReceived(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, received, 2)

	assert.Equal(t, 1, users.batchCalls)

	assert.Equal(t, "alice", received[0].FromUser.Username)
	assert.Equal(t, "+15550001", received[0].FromUser.Phone)
	assert.Equal(t, "carol", received[1].FromUser.Username)
}

func TestListSentAndReceivedAgree(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	msg, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	sent, err := svc.ListSent(ctx, "alice")
	require.NoError(t, err)
	received, err := svc.ListReceived(ctx, "bob")
	require.NoError(t, err)

	require.Len(t, sent, 1)
	require.Len(t, received, 1)
	assert.Equal(t, msg.ID, sent[0].ID)
	assert.Equal(t, msg.ID, received[0].ID)
	assert.Equal(t, "bob", sent[0].ToUser.Username)
	assert.Equal(t, "alice", received[0].FromUser.Username)
	assert.Equal(t, sent[0].SentAt, received[0].SentAt)
}

func TestList_Empty(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sent, err := svc.ListSent(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, sent)

	received, err := svc.ListReceived(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, received)
}
