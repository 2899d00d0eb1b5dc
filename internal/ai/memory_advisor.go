package ai

import (
	"context"
	"log"
	"math"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/memory"
)

// MessageMemoryAdvisor replays the conversation window before the model call
// and records the new user and assistant messages after it.
type MessageMemoryAdvisor struct {
	memory memory.ChatMemory
}

func NewMessageMemoryAdvisor(m memory.ChatMemory) *MessageMemoryAdvisor {
	return &MessageMemoryAdvisor{memory: m}
}

func (a *MessageMemoryAdvisor) Name() string { return "MessageMemoryAdvisor" }

// Order places memory just inside the outermost advisors.
func (a *MessageMemoryAdvisor) Order() int { return math.MinInt32 + 1000 }

func (a *MessageMemoryAdvisor) AdviseCall(ctx context.Context, req *Request, next CallNext) (*Response, error) {
	withHistory, err := a.before(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := next(ctx, withHistory)
	if err != nil {
		return nil, err
	}
	a.after(ctx, req, resp.Message)
	return resp, nil
}

func (a *MessageMemoryAdvisor) AdviseStream(ctx context.Context, req *Request, next StreamNext) (*schema.StreamReader[*schema.Message], error) {
	withHistory, err := a.before(ctx, req)
	if err != nil {
		return nil, err
	}
	sr, err := next(ctx, withHistory)
	if err != nil {
		return nil, err
	}
	saveCtx := context.WithoutCancel(ctx)
	return tee(sr, func(msg *schema.Message, err error) {
		if err != nil {
			return
		}
		a.after(saveCtx, req, msg)
	}), nil
}

// before inserts history after the system messages of the request.
func (a *MessageMemoryAdvisor) before(ctx context.Context, req *Request) (*Request, error) {
	history, err := a.memory.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	out := req.clone()
	messages := make([]*schema.Message, 0, len(req.Messages)+len(history))
	for _, m := range req.Messages {
		if m != nil && m.Role == schema.System {
			messages = append(messages, m)
		}
	}
	messages = append(messages, history...)
	for _, m := range req.Messages {
		if m != nil && m.Role != schema.System {
			messages = append(messages, m)
		}
	}
	out.Messages = messages
	return out, nil
}

func (a *MessageMemoryAdvisor) after(ctx context.Context, req *Request, reply *schema.Message) {
	var toSave []*schema.Message
	if user := req.LastUserMessage(); user != nil {
		toSave = append(toSave, user)
	}
	if reply != nil {
		toSave = append(toSave, schema.AssistantMessage(reply.Content, nil))
	}
	if err := a.memory.Add(ctx, req.ConversationID, toSave...); err != nil {
		log.Printf("save chat memory failed: conversation=%s err=%v", req.ConversationID, err)
	}
}
