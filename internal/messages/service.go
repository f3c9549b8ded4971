package messages

import (
	"context"
	"fmt"
	"strings"

	"github.com/messagely/server/internal/apperr"
	"github.com/messagely/server/internal/model"
	"github.com/messagely/server/internal/repo"
)

// MessageService composes the message store with the authorization guard.
// Every operation takes the caller username resolved by the router's auth
// middleware; the service never reads ambient request state.
type MessageService struct {
	msgRepo  repo.MessageRepo
	userRepo repo.UserRepo
}

// NewMessageService creates a new message service
func NewMessageService(msgRepo repo.MessageRepo, userRepo repo.UserRepo) *MessageService {
	return &MessageService{
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

// Send creates a message from the caller to the recipient. Sending to
// oneself is allowed. The insert's foreign-key constraint is the race-free
// recipient guard; the Exists pre-check only short-circuits the common case.
func (s *MessageService) Send(ctx context.Context, caller, to, body string) (model.Message, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(body) == "" {
		return model.Message{}, fmt.Errorf("to_username and body are required: %w", apperr.ErrValidation)
	}

	exists, err := s.userRepo.Exists(ctx, to)
	if err != nil {
		return model.Message{}, err
	}
	if !exists {
		return model.Message{}, fmt.Errorf("recipient %q: %w", to, apperr.ErrRecipientNotFound)
	}

	return s.msgRepo.Create(ctx, caller, to, body)
}

// Get loads a message and returns it with both counterparts resolved.
// The guard runs after the load and before any content leaves the service;
// a third party gets apperr.ErrUnauthorized carrying no message content.
func (s *MessageService) Get(ctx context.Context, caller string, id int64) (model.MessageView, error) {
	msg, err := s.msgRepo.GetByID(ctx, id)
	if err != nil {
		return model.MessageView{}, err
	}
	if !CanView(caller, msg) {
		return model.MessageView{}, fmt.Errorf("message %d: %w", id, apperr.ErrUnauthorized)
	}
	return s.resolveView(ctx, msg)
}

// MarkRead marks a message read on behalf of the caller. Only the recipient
// may mark; re-marking an already-read message succeeds without changing
// the original timestamp.
func (s *MessageService) MarkRead(ctx context.Context, caller string, id int64) (model.MessageView, error) {
	msg, err := s.msgRepo.GetByID(ctx, id)
	if err != nil {
		return model.MessageView{}, err
	}
	if !CanMarkRead(caller, msg) {
		return model.MessageView{}, fmt.Errorf("message %d: %w", id, apperr.ErrUnauthorized)
	}

	msg, err = s.msgRepo.MarkRead(ctx, id)
	if err != nil {
		return model.MessageView{}, err
	}
	return s.resolveView(ctx, msg)
}

// ListSent returns the caller's outbox with each recipient resolved to a
// summary. Two queries total: the messages, then one batched lookup of the
// distinct counterparts.
func (s *MessageService) ListSent(ctx context.Context, username string) ([]model.SentMessage, error) {
	msgs, err := s.msgRepo.ListFrom(ctx, username)
	if err != nil {
		return nil, err
	}

	summaries, err := s.counterparts(ctx, msgs, func(m model.Message) string { return m.ToUsername })
	if err != nil {
		return nil, err
	}

	out := make([]model.SentMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, model.SentMessage{
			ID:     m.ID,
			Body:   m.Body,
			SentAt: m.SentAt,
			ReadAt: m.ReadAt,
			ToUser: summaries[m.ToUsername],
		})
	}
	return out, nil
}

// ListReceived returns the caller's inbox with each sender resolved to a
// summary. Symmetric to ListSent.
func (s *MessageService) ListReceived(ctx context.Context, username string) ([]model.ReceivedMessage, error) {
	msgs, err := s.msgRepo.ListTo(ctx, username)
	if err != nil {
		return nil, err
	}

	summaries, err := s.counterparts(ctx, msgs, func(m model.Message) string { return m.FromUsername })
	if err != nil {
		return nil, err
	}

	out := make([]model.ReceivedMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, model.ReceivedMessage{
			ID:       m.ID,
			Body:     m.Body,
			SentAt:   m.SentAt,
			ReadAt:   m.ReadAt,
			FromUser: summaries[m.FromUsername],
		})
	}
	return out, nil
}

// counterparts batch-resolves the distinct counterpart usernames of a
// message list in one query.
func (s *MessageService) counterparts(ctx context.Context, msgs []model.Message, key func(model.Message) string) (map[string]model.UserSummary, error) {
	seen := make(map[string]struct{}, len(msgs))
	distinct := make([]string, 0, len(msgs))
	for _, m := range msgs {
		name := key(m)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		distinct = append(distinct, name)
	}
	return s.userRepo.SummariesByUsernames(ctx, distinct)
}

// resolveView attaches sender and recipient summaries to a message.
func (s *MessageService) resolveView(ctx context.Context, msg model.Message) (model.MessageView, error) {
	summaries, err := s.userRepo.SummariesByUsernames(ctx, []string{msg.FromUsername, msg.ToUsername})
	if err != nil {
		return model.MessageView{}, err
	}
	from, ok := summaries[msg.FromUsername]
	if !ok {
		return model.MessageView{}, fmt.Errorf("sender %q: %w", msg.FromUsername, apperr.ErrNotFound)
	}
	to, ok := summaries[msg.ToUsername]
	if !ok {
		return model.MessageView{}, fmt.Errorf("recipient %q: %w", msg.ToUsername, apperr.ErrNotFound)
	}
	return model.MessageView{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: from,
		ToUser:   to,
	}, nil
}
