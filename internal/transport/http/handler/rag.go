package handler

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"

	"gopherai-workshop/internal/indexer"
	"gopherai-workshop/internal/transport/http/response"
	"gopherai-workshop/internal/vectorstore"
)

type RAGOperations interface {
	Trainings(ctx context.Context, message string) (string, error)
	Docs(ctx context.Context, message string) (string, error)
	DocsStream(ctx context.Context, message string) (*schema.StreamReader[string], error)
	Search(ctx context.Context, query string, topK int) ([]vectorstore.Document, error)
	Reindex(ctx context.Context) (*indexer.Report, error)
}

type RAGHandler struct {
	ragService RAGOperations
}

func NewRAGHandler(ragService RAGOperations) *RAGHandler {
	return &RAGHandler{ragService: ragService}
}

func (h *RAGHandler) Trainings(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	answer, err := h.ragService.Trainings(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err, "trainings failed")
		return
	}
	response.Text(c, answer)
}

func (h *RAGHandler) Docs(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	answer, err := h.ragService.Docs(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err, "docs failed")
		return
	}
	response.Text(c, answer)
}

func (h *RAGHandler) DocsStream(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	sr, err := h.ragService.DocsStream(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err, "docs stream failed")
		return
	}
	streamSSE(c, sr)
}

// Index rescans the document patterns; already indexed files are skipped.
func (h *RAGHandler) Index(c *gin.Context) {
	report, err := h.ragService.Reindex(c.Request.Context())
	if err != nil {
		writeError(c, err, "index documents failed")
		return
	}
	response.OK(c, gin.H{
		"files_found":   report.FilesFound,
		"files_skipped": report.FilesSkipped,
		"files_failed":  report.FilesFailed,
		"chunks":        report.Chunks,
		"indexed":       report.Indexed,
		"duration_ms":   report.Duration.Milliseconds(),
	})
}

// Search exposes raw retrieval for debugging the index.
func (h *RAGHandler) Search(c *gin.Context) {
	docs, err := h.ragService.Search(c.Request.Context(), c.Query("q"), queryInt(c, "topK", vectorstore.DefaultTopK))
	if err != nil {
		writeError(c, err, "search documents failed")
		return
	}
	response.OK(c, docs)
}
