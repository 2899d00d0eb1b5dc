package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"

	"gopherai-workshop/internal/app"
	"gopherai-workshop/internal/indexer"
	"gopherai-workshop/internal/memory"
	"gopherai-workshop/internal/model"
	"gopherai-workshop/internal/transport/http/middleware"
	"gopherai-workshop/internal/transport/http/response"
	"gopherai-workshop/internal/vectorstore"
)

// MessageRequest is the body shared by the AI endpoints.
type MessageRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

// UserLookup resolves the authenticated user for their stored time zone.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

// bindMessage accepts an empty body and falls back to the "message" query
// parameter.
func bindMessage(c *gin.Context) (MessageRequest, bool) {
	var req MessageRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return req, false
		}
	}
	if strings.TrimSpace(req.Message) == "" {
		req.Message = c.Query("message")
	}
	return req, true
}

// conversationID is user-<id> for authenticated callers, then the
// X-Conversation-Id header, then "default".
func conversationID(c *gin.Context) string {
	if userID, ok := middleware.UserID(c); ok {
		return fmt.Sprintf("user-%d", userID)
	}
	// Ids in the user namespace are only reachable with that user's token.
	if id := strings.TrimSpace(c.GetHeader(middleware.HeaderConversationID)); id != "" && !userScoped(id) {
		return id
	}
	return memory.DefaultConversationID
}

const userPrefix = "user-"

// ownerKey strips derived-key prefixes such as "summary:" from id.
func ownerKey(id string) string {
	if i := strings.LastIndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// userScoped reports whether id belongs to the per-user namespace.
func userScoped(id string) bool {
	return strings.HasPrefix(ownerKey(id), userPrefix)
}

func toolContext(c *gin.Context, users UserLookup) map[string]any {
	toolCtx := map[string]any{}
	userID, authenticated := middleware.UserID(c)
	if authenticated {
		toolCtx[app.ToolContextUserID] = strconv.FormatUint(uint64(userID), 10)
	}
	if tz := strings.TrimSpace(c.GetHeader(middleware.HeaderTimeZone)); tz != "" {
		toolCtx[app.ToolContextTimeZone] = tz
		return toolCtx
	}
	if authenticated && users != nil {
		user, err := users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			log.Printf("lookup user %d time zone failed: %v", userID, err)
		} else if user != nil && user.TimeZone != "" {
			toolCtx[app.ToolContextTimeZone] = user.TimeZone
		}
	}
	return toolCtx
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, vectorstore.ErrEmptyQuery):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrPromptInjection):
		response.Error(c, http.StatusBadRequest, response.CodePromptInjection, err.Error())
	case errors.Is(err, app.ErrNullModelResponse), errors.Is(err, app.ErrInvalidModelResponse):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidModelOutput, err.Error())
	case errors.Is(err, app.ErrModelUnavailable):
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusBadGateway, response.CodeModelUnavailable, fallback)
	case errors.Is(err, app.ErrMediaNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, indexer.ErrIndexInProgress):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

// streamSSE drains sr into data frames and closes with an error or done event.
func streamSSE(c *gin.Context, sr *schema.StreamReader[string]) {
	defer sr.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("stream response failed: %v", err)
			if _, writeErr := c.Writer.Write([]byte("event: error\ndata: " + sanitizeSSE(err.Error()) + "\n\n")); writeErr == nil {
				flusher.Flush()
			}
			return
		}
		if chunk == "" {
			continue
		}
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return
		}
		flusher.Flush()
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: [DONE]\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
