package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/messagely/server/internal/apperr"
	"github.com/messagely/server/internal/model"
)

// MessageRepo defines the interface for message repository operations
type MessageRepo interface {
	Create(ctx context.Context, from, to, body string) (model.Message, error)
	GetByID(ctx context.Context, id int64) (model.Message, error)
	MarkRead(ctx context.Context, id int64) (model.Message, error)
	ListFrom(ctx context.Context, username string) ([]model.Message, error)
	ListTo(ctx context.Context, username string) ([]model.Message, error)
}

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo instance
func NewMessageRepo(db *sql.DB) MessageRepo {
	return &messageRepo{db: db}
}

// Create inserts a new message with sent_at = now and read_at null. The
// foreign-key constraint on to_username is the race-free recipient guard;
// a violation maps to apperr.ErrRecipientNotFound.
func (r *messageRepo) Create(ctx context.Context, from, to, body string) (model.Message, error) {
	query := `
		INSERT INTO messages (from_username, to_username, body)
		VALUES ($1, $2, $3)
		RETURNING id, sent_at
	`
	msg := model.Message{
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
	}
	err := r.db.QueryRowContext(ctx, query, from, to, body).Scan(&msg.ID, &msg.SentAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Message{}, fmt.Errorf("recipient %q: %w", to, apperr.ErrRecipientNotFound)
		}
		return model.Message{}, storeErr("create message", err)
	}
	return msg, nil
}

// GetByID retrieves a raw message row by id.
func (r *messageRepo) GetByID(ctx context.Context, id int64) (model.Message, error) {
	query := `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages
		WHERE id = $1
	`
	var msg model.Message
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.FromUsername,
		&msg.ToUsername,
		&msg.Body,
		&msg.SentAt,
		&msg.ReadAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Message{}, fmt.Errorf("message %d: %w", id, apperr.ErrNotFound)
		}
		return model.Message{}, storeErr("query message", err)
	}
	return msg, nil
}

// MarkRead sets read_at once. The conditional update makes the transition
// linearizable per id: the first mark wins and re-marking an already-read
// message leaves the original timestamp untouched.
func (r *messageRepo) MarkRead(ctx context.Context, id int64) (model.Message, error) {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = now()
		WHERE id = $1 AND read_at IS NULL
	`, id); err != nil {
		return model.Message{}, storeErr("mark read", err)
	}
	// Zero rows affected means either missing or already read; GetByID
	// distinguishes the two.
	return r.GetByID(ctx, id)
}

// ListFrom returns all messages sent by the user, oldest first.
func (r *messageRepo) ListFrom(ctx context.Context, username string) ([]model.Message, error) {
	return r.list(ctx, `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages
		WHERE from_username = $1
		ORDER BY id
	`, username)
}

// ListTo returns all messages received by the user, oldest first.
func (r *messageRepo) ListTo(ctx context.Context, username string) ([]model.Message, error) {
	return r.list(ctx, `
		SELECT id, from_username, to_username, body, sent_at, read_at
		FROM messages
		WHERE to_username = $1
		ORDER BY id
	`, username)
}

func (r *messageRepo) list(ctx context.Context, query, username string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.FromUsername,
			&msg.ToUsername,
			&msg.Body,
			&msg.SentAt,
			&msg.ReadAt,
		); err != nil {
			return nil, storeErr("scan message", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list messages", err)
	}
	return msgs, nil
}
