package memory

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

type InMemoryChatMemory struct {
	mu     sync.RWMutex
	window int
	data   map[string][]storedMessage
}

func NewInMemoryChatMemory(window int) *InMemoryChatMemory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &InMemoryChatMemory{
		window: window,
		data:   make(map[string][]storedMessage),
	}
}

func (m *InMemoryChatMemory) Get(_ context.Context, conversationID string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.data[normalizeID(conversationID)]
	out := make([]*schema.Message, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.message())
	}
	return out, nil
}

func (m *InMemoryChatMemory) Add(_ context.Context, conversationID string, messages ...*schema.Message) error {
	messages = keepable(messages)
	if len(messages) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := normalizeID(conversationID)
	stored := m.data[id]
	for _, msg := range messages {
		stored = append(stored, toStored(msg))
	}
	if len(stored) > m.window {
		stored = append([]storedMessage(nil), stored[len(stored)-m.window:]...)
	}
	m.data[id] = stored
	return nil
}

func (m *InMemoryChatMemory) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, normalizeID(conversationID))
	return nil
}
