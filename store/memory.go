package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/meadowhq/metaagent/chatmodel"
	"github.com/meadowhq/metaagent/pkg/llms"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	return m.storage[chatID]
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return errors.New("context does not have chat ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	m.storage[chatID] = append(m.storage[chatID], msgs...)
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return errors.New("context does not have chat ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, chatID)
	}
	return nil
}
