package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/v3spiary/dreadnought/internal/pkg/chat/domain"
	repository "github.com/v3spiary/dreadnought/internal/pkg/chat/persistence/repository/port"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c chat.Conversation, firstMessage *chat.Message) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO chatbot.conversation (owner_id, name, is_pinned, deleted, created_at, updated_at)
		VALUES ($1::uuid, $2, FALSE, FALSE, $3, $3)
		RETURNING id::text
	`, c.OwnerID, c.Name, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return nil, err
	}

	if firstMessage != nil {
		m := *firstMessage
		m.ChatID = c.ID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO chatbot.message (chat_id, sender_id, content, message_type, created_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5)
			RETURNING id::text
		`, m.ChatID, m.Sender, m.Content, m.MsgType, m.CreatedAt).Scan(&m.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, chatID string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var c chat.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name, is_pinned, deleted, created_at, updated_at
		FROM chatbot.conversation
		WHERE id = $1::uuid AND NOT deleted
	`, chatID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.IsPinned, &c.Deleted, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgChatRepository) IsOwner(ctx context.Context, chatID string, userID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chatbot.conversation
			WHERE id = $1::uuid AND owner_id = $2::uuid AND NOT deleted
		)
	`, chatID, userID).Scan(&exists)
	return exists, err
}

func (r *PgChatRepository) ListConversations(ctx context.Context, ownerID string) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, owner_id::text, name, is_pinned, deleted, created_at, updated_at
		FROM chatbot.conversation
		WHERE owner_id = $1::uuid AND NOT deleted
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.IsPinned, &c.Deleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *PgChatRepository) RenameConversation(ctx context.Context, chatID string, name string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chatbot.conversation
		SET name = $2, updated_at = NOW()
		WHERE id = $1::uuid AND NOT deleted
	`, chatID, name)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) TogglePin(ctx context.Context, chatID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var pinned bool
	err := r.pool.QueryRow(ctx, `
		UPDATE chatbot.conversation
		SET is_pinned = NOT is_pinned, updated_at = NOW()
		WHERE id = $1::uuid AND NOT deleted
		RETURNING is_pinned
	`, chatID).Scan(&pinned)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, repository.ErrNotFound
	}
	return pinned, err
}

func (r *PgChatRepository) SoftDeleteConversation(ctx context.Context, chatID string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chatbot.conversation
		SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1::uuid AND NOT deleted
	`, chatID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) SaveUserMessage(ctx context.Context, m chat.Message) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	// Lock the conversation row to serialize concurrent writers on this chat.
	var locked string
	err = tx.QueryRow(ctx, `
		SELECT id::text FROM chatbot.conversation
		WHERE id = $1::uuid AND NOT deleted
		FOR UPDATE
	`, m.ChatID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chatbot.message (chat_id, sender_id, content, message_type, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		RETURNING id::text
	`, m.ChatID, m.Sender, m.Content, m.MsgType, m.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE chatbot.conversation SET updated_at = NOW() WHERE id = $1::uuid
	`, m.ChatID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgChatRepository) SaveAssistantMessage(ctx context.Context, m chat.Message) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chatbot.message (chat_id, sender_id, content, message_type, created_at)
		VALUES ($1::uuid, NULL, $2, $3, $4)
		RETURNING id::text
	`, m.ChatID, m.Content, m.MsgType, m.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE chatbot.conversation SET updated_at = NOW() WHERE id = $1::uuid
	`, m.ChatID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgChatRepository) ListMessages(ctx context.Context, chatID string, limit int, offset int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, chat_id::text, sender_id::text, content, message_type, is_edited, created_at
		FROM chatbot.message
		WHERE chat_id = $1::uuid
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Content, &m.MsgType, &m.IsEdited, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
