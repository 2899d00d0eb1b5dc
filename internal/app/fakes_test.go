package app

import (
	"context"
	"errors"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/ai"
	"gopherai-workshop/internal/vectorstore"
)

// scriptedModel answers each call with the next reply.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	calls   [][]*schema.Message
}

func newScriptedModel(replies ...string) *scriptedModel {
	m := &scriptedModel{}
	for _, r := range replies {
		m.replies = append(m.replies, schema.AssistantMessage(r, nil))
	}
	return m
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools([]*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *scriptedModel) call(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

func lastContent(msgs []*schema.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

func client(m einomodel.ToolCallingChatModel, opts ...ai.Option) *ai.ChatClient {
	return ai.NewChatClient(m, opts...)
}

type stubStore struct {
	docs []vectorstore.Document
	err  error
	last vectorstore.SearchRequest
}

func (s *stubStore) Add(context.Context, []vectorstore.Document) error { return nil }
func (s *stubStore) SimilaritySearch(_ context.Context, req vectorstore.SearchRequest) ([]vectorstore.Document, error) {
	s.last = req
	return s.docs, s.err
}
func (s *stubStore) DocumentHashes(context.Context) (map[string]struct{}, error) { return nil, nil }
func (s *stubStore) Count(context.Context) (int64, error)                         { return int64(len(s.docs)), nil }
