package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"

	"gopherai-workshop/internal/app"
	"gopherai-workshop/internal/model"
	"gopherai-workshop/internal/transport/http/middleware"
	"gopherai-workshop/internal/transport/http/response"
)

type ChatOperations interface {
	Chat(ctx context.Context, conversationID, message string) (string, error)
	Jokes(ctx context.Context, conversationID, topic string) (string, error)
	TouristAttractions(ctx context.Context, conversationID string) (*schema.StreamReader[string], error)
	DevAssistant(ctx context.Context, conversationID, message, language string) (*schema.StreamReader[string], error)
	Conversation(ctx context.Context, conversationID, message string) (string, error)
	StatefulConversation(ctx context.Context, conversationID, message string) (string, error)
	StructuredByPrompt(ctx context.Context, conversationID, message string) (string, error)
	StructuredByType(ctx context.Context, conversationID, message string) (*app.Book, error)
	StructuredByParametrizedType(ctx context.Context, conversationID, message string) ([]app.Book, error)
	StructuredAsMap(ctx context.Context, conversationID, message string) (map[string]any, error)
	Search(ctx context.Context, message string, toolContext map[string]any) (string, error)
	History(ctx context.Context, conversationID string, limit int) ([]model.ConversationMessage, error)
	ClearMemory(ctx context.Context, conversationID string) error
}

type ChatHandler struct {
	chatService ChatOperations
	users       UserLookup
}

func NewChatHandler(chatService ChatOperations, users UserLookup) *ChatHandler {
	return &ChatHandler{chatService: chatService, users: users}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	h.text(c, "chat failed", h.chatService.Chat)
}

func (h *ChatHandler) Jokes(c *gin.Context) {
	answer, err := h.chatService.Jokes(c.Request.Context(), conversationID(c), c.Query("topic"))
	if err != nil {
		writeError(c, err, "jokes failed")
		return
	}
	response.Text(c, answer)
}

func (h *ChatHandler) TouristAttractions(c *gin.Context) {
	sr, err := h.chatService.TouristAttractions(c.Request.Context(), conversationID(c))
	if err != nil {
		writeError(c, err, "tourist attractions failed")
		return
	}
	streamSSE(c, sr)
}

func (h *ChatHandler) DevAssistant(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	sr, err := h.chatService.DevAssistant(c.Request.Context(), conversationID(c), req.Message, c.Query("programmingLanguage"))
	if err != nil {
		writeError(c, err, "dev assistant failed")
		return
	}
	streamSSE(c, sr)
}

func (h *ChatHandler) Conversation(c *gin.Context) {
	h.text(c, "conversation failed", h.chatService.Conversation)
}

func (h *ChatHandler) StatefulConversation(c *gin.Context) {
	h.text(c, "stateful conversation failed", h.chatService.StatefulConversation)
}

// StructuredByPrompt returns the model text as is; the prompt only asks for JSON.
func (h *ChatHandler) StructuredByPrompt(c *gin.Context) {
	h.text(c, "structured output failed", h.chatService.StructuredByPrompt)
}

func (h *ChatHandler) StructuredByType(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	book, err := h.chatService.StructuredByType(c.Request.Context(), conversationID(c), req.Message)
	if err != nil {
		writeError(c, err, "structured output failed")
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *ChatHandler) StructuredByParametrizedType(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	books, err := h.chatService.StructuredByParametrizedType(c.Request.Context(), conversationID(c), req.Message)
	if err != nil {
		writeError(c, err, "structured output failed")
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *ChatHandler) StructuredAsMap(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	out, err := h.chatService.StructuredAsMap(c.Request.Context(), conversationID(c), req.Message)
	if err != nil {
		writeError(c, err, "structured output failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) Search(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	answer, err := h.chatService.Search(c.Request.Context(), req.Message, toolContext(c, h.users))
	if err != nil {
		writeError(c, err, "search failed")
		return
	}
	response.Text(c, answer)
}

// GetConversation returns the archived transcript of a conversation.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	id, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	history, err := h.chatService.History(c.Request.Context(), id, queryInt(c, "limit", 100))
	if err != nil {
		writeError(c, err, "get conversation failed")
		return
	}
	response.OK(c, history)
}

// ClearConversation drops the live memory window of a conversation.
func (h *ChatHandler) ClearConversation(c *gin.Context) {
	id, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	if err := h.chatService.ClearMemory(c.Request.Context(), id); err != nil {
		writeError(c, err, "clear conversation failed")
		return
	}
	response.OK(c, gin.H{"cleared_conversation_id": id})
}

// ownedConversation stops callers from reading another user's conversation.
func (h *ChatHandler) ownedConversation(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if userScoped(id) {
		if _, authenticated := middleware.UserID(c); !authenticated || conversationID(c) != ownerKey(id) {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "conversation belongs to another user")
			return "", false
		}
	}
	return id, true
}

func (h *ChatHandler) text(c *gin.Context, fallback string, call func(ctx context.Context, conversationID, message string) (string, error)) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	answer, err := call(c.Request.Context(), conversationID(c), req.Message)
	if err != nil {
		writeError(c, err, fallback)
		return
	}
	response.Text(c, answer)
}
