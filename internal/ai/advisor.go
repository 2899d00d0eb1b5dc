package ai

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/pkg/trace"
)

type (
	CallNext   func(ctx context.Context, req *Request) (*Response, error)
	StreamNext func(ctx context.Context, req *Request) (*schema.StreamReader[*schema.Message], error)
)

// Advisor wraps model calls. Lower Order runs first, i.e. outermost.
type Advisor interface {
	Name() string
	Order() int
}

type CallAdvisor interface {
	Advisor
	AdviseCall(ctx context.Context, req *Request, next CallNext) (*Response, error)
}

type StreamAdvisor interface {
	Advisor
	AdviseStream(ctx context.Context, req *Request, next StreamNext) (*schema.StreamReader[*schema.Message], error)
}

// LoggerAdvisor logs each request and its response.
type LoggerAdvisor struct{}

func (LoggerAdvisor) Name() string { return "LoggerAdvisor" }
func (LoggerAdvisor) Order() int   { return 0 }

func (a LoggerAdvisor) AdviseCall(ctx context.Context, req *Request, next CallNext) (*Response, error) {
	logRequest(ctx, req)
	resp, err := next(ctx, req)
	if err != nil {
		log.Printf("chat response failed: trace_id=%s err=%v", trace.FromContext(ctx), err)
		return nil, err
	}
	log.Printf("chat response: trace_id=%s content=%q", trace.FromContext(ctx), resp.Content())
	return resp, nil
}

func (a LoggerAdvisor) AdviseStream(ctx context.Context, req *Request, next StreamNext) (*schema.StreamReader[*schema.Message], error) {
	logRequest(ctx, req)
	sr, err := next(ctx, req)
	if err != nil {
		log.Printf("chat stream failed: trace_id=%s err=%v", trace.FromContext(ctx), err)
		return nil, err
	}
	traceID := trace.FromContext(ctx)
	return tee(sr, func(msg *schema.Message, err error) {
		if err != nil {
			log.Printf("chat stream aborted: trace_id=%s err=%v", traceID, err)
			return
		}
		log.Printf("chat stream response: trace_id=%s content=%q", traceID, msg.Content)
	}), nil
}

func logRequest(ctx context.Context, req *Request) {
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m == nil {
			continue
		}
		parts = append(parts, string(m.Role)+": "+m.Content)
	}
	log.Printf("chat request: trace_id=%s conversation=%s messages=%q",
		trace.FromContext(ctx), req.ConversationID, strings.Join(parts, " | "))
}

// TimestampAdvisor stamps call responses with the time they were produced.
type TimestampAdvisor struct {
	Now func() time.Time
}

func (TimestampAdvisor) Name() string { return "TimestampAdvisor" }
func (TimestampAdvisor) Order() int   { return 0 }

func (a TimestampAdvisor) AdviseCall(ctx context.Context, req *Request, next CallNext) (*Response, error) {
	resp, err := next(ctx, req)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	content := resp.Content() + "\nResponse timestamp: " + now().UTC().Format(time.RFC3339Nano)
	return &Response{Message: schema.AssistantMessage(content, nil)}, nil
}

// tee returns a stream carrying the same chunks as sr and calls done with the
// concatenated message once the copy is drained.
func tee(sr *schema.StreamReader[*schema.Message], done func(*schema.Message, error)) *schema.StreamReader[*schema.Message] {
	copies := sr.Copy(2)
	go func() {
		side := copies[1]
		defer side.Close()

		var chunks []*schema.Message
		for {
			chunk, err := side.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				done(nil, err)
				return
			}
			chunks = append(chunks, chunk)
		}
		if len(chunks) == 0 {
			done(schema.AssistantMessage("", nil), nil)
			return
		}
		msg, err := schema.ConcatMessages(chunks)
		done(msg, err)
	}()
	return copies[0]
}
