package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llms"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the MessageStore interface using Redis as
// the backend. The keys namespace is organized as follows:
// - `/<prefix>/chatstore/messages/<chatID>` for chat messages
// - `/<prefix>/chatstore/info/<chatID>` for chat metadata
// - `/<prefix>/chatstore/chats` for the set of known chat IDs

// maxStoredMessages caps the history kept per chat.
const maxStoredMessages = 50

// ChatInfo describes a stored chat.
type ChatInfo struct {
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatManager extends MessageStore with chat listing and cleanup.
type ChatManager interface {
	MessageStore
	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
	ListChats(ctx context.Context) ([]string, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error)
}

type redisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) ChatManager {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) chatInfoKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "info", chatID)
}

func (m *redisStore) chatListKey() string {
	return path.Join(m.prefix, "chatstore", "chats")
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return nil
	}

	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "redis_lrange", "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var model messageModel
		if err := json.Unmarshal([]byte(item), &model); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal_message", "err", err.Error())
			continue
		}
		messages = append(messages, model.message())
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return errors.New("context does not have chat ID")
	}

	key := m.messagesKey(chatID)
	pipe := m.client.Pipeline()
	for _, msg := range msgs {
		data, err := json.Marshal(toModel(msg))
		if err != nil {
			return errors.WithMessage(err, "failed to marshal message")
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, -maxStoredMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WithMessage(err, "failed to store messages in Redis")
	}

	// Update the time
	return m.UpdateChat(ctx, "", nil)
}

func (m *redisStore) Reset(ctx context.Context) error {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return errors.New("context does not have chat ID")
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.messagesKey(chatID))
	pipe.Del(ctx, m.chatInfoKey(chatID))
	pipe.SRem(ctx, m.chatListKey(), chatID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WithMessage(err, "failed to reset chat in Redis")
	}
	return nil
}

// UpdateChat creates or updates the chat metadata for the chat ID from context.
func (m *redisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) error {
	chat, err := m.getChatInfo(ctx, "")
	if err != nil {
		return errors.WithMessage(err, "failed to get chat info")
	}

	if title != "" {
		chat.Title = title
	}
	if metadata != nil {
		if chat.Metadata == nil {
			chat.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			chat.Metadata[k] = v
		}
	}
	chat.UpdatedAt = time.Now()

	return m.updateChat(ctx, chat, false)
}

func (m *redisStore) updateChat(ctx context.Context, chat *ChatInfo, isNew bool) error {
	chatData, err := json.Marshal(chat)
	if err != nil {
		return errors.WithMessage(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.chatInfoKey(chat.ChatID), chatData, 0)
	if isNew {
		pipe.SAdd(ctx, m.chatListKey(), chat.ChatID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WithMessage(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	chatIDs, err := m.client.SMembers(ctx, m.chatListKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.WithMessage(err, "failed to list chats from Redis")
	}
	return chatIDs, nil
}

func (m *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	return m.getChatInfo(ctx, id)
}

// getChatInfo returns the chat information for the given ID, defaulting
// to the chat ID from context. A missing chat is initialized.
func (m *redisStore) getChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	if id == "" {
		id = chatmodel.GetChatID(ctx)
	}
	if id == "" {
		return nil, errors.New("context does not have chat ID")
	}

	data, err := m.client.Get(ctx, m.chatInfoKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, errors.WithMessage(err, "failed to get chat info from Redis")
		}
		chat := &ChatInfo{
			ChatID:    id,
			Title:     "New Chat",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
			Metadata:  make(map[string]any),
		}
		if err := m.updateChat(ctx, chat, true); err != nil {
			return nil, errors.WithMessage(err, "failed to initialize new chat info")
		}
		return chat, nil
	}

	chat := &ChatInfo{}
	if err := json.Unmarshal([]byte(data), chat); err != nil {
		return nil, errors.WithMessage(err, "failed to unmarshal chat info")
	}
	return chat, nil
}

// Cleanup removes chats not updated within olderThan and returns the
// number of deleted chats.
func (m *redisStore) Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error) {
	chatIDs, err := m.client.SMembers(ctx, m.chatListKey()).Result()
	if err != nil {
		return 0, errors.WithMessage(err, "failed to list chats from Redis")
	}

	deleted := uint32(0)
	cutoff := time.Now().Add(-olderThan)
	for _, chatID := range chatIDs {
		data, err := m.client.Get(ctx, m.chatInfoKey(chatID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return deleted, errors.WithMessage(err, "failed to get chat info")
		}

		var chat ChatInfo
		if err := json.Unmarshal([]byte(data), &chat); err != nil {
			return deleted, errors.WithMessage(err, "failed to unmarshal chat info")
		}

		if chat.UpdatedAt.Before(cutoff) {
			pipe := m.client.Pipeline()
			pipe.Del(ctx, m.chatInfoKey(chatID))
			pipe.Del(ctx, m.messagesKey(chatID))
			pipe.SRem(ctx, m.chatListKey(), chatID)
			if _, err := pipe.Exec(ctx); err != nil {
				return deleted, errors.WithMessage(err, "failed to delete chat from Redis")
			}
			deleted++
		}
	}
	return deleted, nil
}
