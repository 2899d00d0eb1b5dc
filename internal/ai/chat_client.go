// Package ai wraps eino chat models with an advisor chain, tool calling
// through an eino agent and structured output helpers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const DefaultMaxToolRounds = 5

var (
	ErrEmptyModelResponse = errors.New("model returned no message")
	ErrToolRoundsExceeded = errors.New("tool call rounds exceeded")
	ErrNoMessages         = errors.New("chat request has no messages")
)

// Request is one chat client call. Advisors and Tools are added to the
// client defaults.
type Request struct {
	Messages       []*schema.Message
	Options        []model.Option
	ConversationID string
	ToolContext    map[string]any
	Advisors       []Advisor
	Tools          []Tool
}

type Response struct {
	Message *schema.Message
}

func (r *Response) Content() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return r.Message.Content
}

// LastUserMessage returns the most recent user message, or nil.
func (r *Request) LastUserMessage() *schema.Message {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i] != nil && r.Messages[i].Role == schema.User {
			return r.Messages[i]
		}
	}
	return nil
}

func (r *Request) clone() *Request {
	out := *r
	out.Messages = append([]*schema.Message(nil), r.Messages...)
	return &out
}

type ChatClient struct {
	model         model.ToolCallingChatModel
	advisors      []Advisor
	tools         []Tool
	maxToolRounds int
}

type Option func(*ChatClient)

func WithAdvisors(advisors ...Advisor) Option {
	return func(c *ChatClient) { c.advisors = append(c.advisors, advisors...) }
}

func WithTools(tools ...Tool) Option {
	return func(c *ChatClient) { c.tools = append(c.tools, tools...) }
}

func WithMaxToolRounds(n int) Option {
	return func(c *ChatClient) {
		if n > 0 {
			c.maxToolRounds = n
		}
	}
}

func NewChatClient(m model.ToolCallingChatModel, opts ...Option) *ChatClient {
	c := &ChatClient{model: m, maxToolRounds: DefaultMaxToolRounds}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mutate returns a copy of the client with extra options applied.
func (c *ChatClient) Mutate(opts ...Option) *ChatClient {
	cp := *c
	cp.advisors = append([]Advisor(nil), c.advisors...)
	cp.tools = append([]Tool(nil), c.tools...)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func (c *ChatClient) Call(ctx context.Context, req *Request) (*Response, error) {
	req, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	next := c.generate
	advisors := sortedAdvisors(req.Advisors)
	for i := len(advisors) - 1; i >= 0; i-- {
		a, ok := advisors[i].(CallAdvisor)
		if !ok {
			continue
		}
		inner := next
		next = func(ctx context.Context, r *Request) (*Response, error) {
			return a.AdviseCall(ctx, r, inner)
		}
	}
	return next(ctx, req)
}

func (c *ChatClient) Stream(ctx context.Context, req *Request) (*schema.StreamReader[*schema.Message], error) {
	req, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	next := c.stream
	advisors := sortedAdvisors(req.Advisors)
	for i := len(advisors) - 1; i >= 0; i-- {
		a, ok := advisors[i].(StreamAdvisor)
		if !ok {
			continue
		}
		inner := next
		next = func(ctx context.Context, r *Request) (*schema.StreamReader[*schema.Message], error) {
			return a.AdviseStream(ctx, r, inner)
		}
	}
	return next(ctx, req)
}

func (c *ChatClient) prepare(req *Request) (*Request, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	out := req.clone()
	out.Advisors = append(append([]Advisor(nil), c.advisors...), req.Advisors...)
	out.Tools = append(append([]Tool(nil), c.tools...), req.Tools...)
	return out, nil
}

func (c *ChatClient) generate(ctx context.Context, req *Request) (*Response, error) {
	ctx = WithToolContext(ctx, req.ToolContext)
	if len(req.Tools) == 0 {
		msg, err := c.model.Generate(ctx, req.Messages, req.Options...)
		if err != nil {
			return nil, fmt.Errorf("chat model generate failed: %w", err)
		}
		if msg == nil {
			return nil, ErrEmptyModelResponse
		}
		return &Response{Message: msg}, nil
	}

	msg, err := c.runAgent(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Response{Message: msg}, nil
}

func (c *ChatClient) stream(ctx context.Context, req *Request) (*schema.StreamReader[*schema.Message], error) {
	if len(req.Tools) > 0 {
		// Tool rounds need whole messages; the final answer is emitted as one chunk.
		resp, err := c.generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return schema.StreamReaderFromArray([]*schema.Message{resp.Message}), nil
	}
	sr, err := c.model.Stream(ctx, req.Messages, req.Options...)
	if err != nil {
		return nil, fmt.Errorf("chat model stream failed: %w", err)
	}
	return sr, nil
}

// runAgent hands a tool request to an eino ChatModelAgent. The agent stops
// after a return-direct tool and gives up after maxToolRounds model turns.
func (c *ChatClient) runAgent(ctx context.Context, req *Request) (*schema.Message, error) {
	tools := make([]tool.BaseTool, 0, len(req.Tools))
	returnDirectly := map[string]bool{}
	for _, t := range req.Tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info failed: %w", err)
		}
		tools = append(tools, t.InvokableTool)
		if t.ReturnDirect {
			returnDirectly[info.Name] = true
		}
	}

	var chatModel model.ToolCallingChatModel = c.model
	if len(req.Options) > 0 {
		chatModel = &optionModel{ToolCallingChatModel: c.model, opts: req.Options}
	}

	agent, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:        "tool_caller",
		Description: "Answers the request, calling tools when needed.",
		Model:       chatModel,
		ToolsConfig: adk.ToolsConfig{
			ToolsNodeConfig: compose.ToolsNodeConfig{
				Tools: tools,
				UnknownToolsHandler: func(_ context.Context, name, _ string) (string, error) {
					return "unknown tool " + name, nil
				},
			},
			ReturnDirectly: returnDirectly,
		},
		MaxIterations: c.maxToolRounds + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create tool agent failed: %w", err)
	}

	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: agent, EnableStreaming: false})
	iter := runner.Run(ctx, req.Messages)

	var last *schema.Message
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			if errors.Is(event.Err, compose.ErrExceedMaxSteps) || strings.Contains(event.Err.Error(), "max iterations") {
				return nil, fmt.Errorf("%w: %v", ErrToolRoundsExceeded, event.Err)
			}
			return nil, fmt.Errorf("tool agent run failed: %w", event.Err)
		}
		if event.Output == nil || event.Output.MessageOutput == nil {
			continue
		}
		msg, _, err := adk.GetMessage(event)
		if err != nil {
			return nil, fmt.Errorf("read tool agent message failed: %w", err)
		}
		if msg != nil {
			last = msg
		}
	}
	if last == nil {
		return nil, ErrEmptyModelResponse
	}
	if last.Role == schema.Tool {
		return schema.AssistantMessage(last.Content, nil), nil
	}
	return last, nil
}

// optionModel pins request options, such as temperature, on every call the
// agent makes.
type optionModel struct {
	model.ToolCallingChatModel
	opts []model.Option
}

func (m *optionModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.ToolCallingChatModel.Generate(ctx, input, append(append([]model.Option(nil), m.opts...), opts...)...)
}

func (m *optionModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.ToolCallingChatModel.Stream(ctx, input, append(append([]model.Option(nil), m.opts...), opts...)...)
}

func (m *optionModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.ToolCallingChatModel.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &optionModel{ToolCallingChatModel: bound, opts: m.opts}, nil
}

func sortedAdvisors(in []Advisor) []Advisor {
	out := append([]Advisor(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order() < out[j].Order() })
	return out
}
