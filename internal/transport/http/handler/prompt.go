package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"gopherai-workshop/internal/transport/http/response"
)

type PromptOperations interface {
	ZeroShot(ctx context.Context, message string) (string, error)
	FewShot(ctx context.Context, message string) (string, error)
	MultiStep(ctx context.Context, message string) (string, error)
	TravelAssistant(ctx context.Context, message string, travelContext map[string]any) (string, error)
	FactChecking(ctx context.Context) (string, error)
	InputValidation(ctx context.Context, message string) (string, error)
	SafePrompt(ctx context.Context, message string) (string, error)
	Posts(ctx context.Context, topic string) (string, error)
}

type PromptHandler struct {
	promptService PromptOperations
}

func NewPromptHandler(promptService PromptOperations) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

func (h *PromptHandler) ZeroShot(c *gin.Context) {
	h.message(c, "zero shot failed", h.promptService.ZeroShot)
}

func (h *PromptHandler) FewShot(c *gin.Context) {
	h.message(c, "few shot failed", h.promptService.FewShot)
}

func (h *PromptHandler) MultiStep(c *gin.Context) {
	h.message(c, "multi step failed", h.promptService.MultiStep)
}

func (h *PromptHandler) SafePrompt(c *gin.Context) {
	h.message(c, "safe prompt failed", h.promptService.SafePrompt)
}

func (h *PromptHandler) InputValidation(c *gin.Context) {
	answer, err := h.promptService.InputValidation(c.Request.Context(), c.Query("message"))
	h.reply(c, answer, err, "input validation failed")
}

func (h *PromptHandler) TravelAssistant(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	answer, err := h.promptService.TravelAssistant(c.Request.Context(), req.Message, req.Context)
	h.reply(c, answer, err, "travel assistant failed")
}

func (h *PromptHandler) FactChecking(c *gin.Context) {
	answer, err := h.promptService.FactChecking(c.Request.Context())
	h.reply(c, answer, err, "fact checking failed")
}

func (h *PromptHandler) Posts(c *gin.Context) {
	answer, err := h.promptService.Posts(c.Request.Context(), c.Query("topic"))
	h.reply(c, answer, err, "posts failed")
}

func (h *PromptHandler) message(c *gin.Context, fallback string, call func(ctx context.Context, message string) (string, error)) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	answer, err := call(c.Request.Context(), req.Message)
	h.reply(c, answer, err, fallback)
}

func (h *PromptHandler) reply(c *gin.Context, answer string, err error, fallback string) {
	if err != nil {
		writeError(c, err, fallback)
		return
	}
	response.Text(c, answer)
}
