package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-workshop/internal/app"
	"gopherai-workshop/internal/transport/http/response"
)

const maxUploadBytes = 25 << 20

type MediaOperations interface {
	GenerateImage(ctx context.Context, message string) (string, error)
	DescribeImage(ctx context.Context, upload *app.Upload) (string, error)
	GenerateAudio(ctx context.Context, message string) ([]byte, error)
	Transcribe(ctx context.Context, upload *app.Upload) (string, error)
}

type MediaHandler struct {
	mediaService MediaOperations
}

func NewMediaHandler(mediaService MediaOperations) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// GenerateImage answers with the image URL.
func (h *MediaHandler) GenerateImage(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	url, err := h.mediaService.GenerateImage(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err, "generate image failed")
		return
	}
	response.Text(c, url)
}

func (h *MediaHandler) GenerateAudio(c *gin.Context) {
	req, ok := bindMessage(c)
	if !ok {
		return
	}
	audio, err := h.mediaService.GenerateAudio(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err, "generate audio failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="audio.mp3"`)
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (h *MediaHandler) GenerateDescription(c *gin.Context) {
	upload, ok := readUpload(c)
	if !ok {
		return
	}
	text, err := h.mediaService.DescribeImage(c.Request.Context(), upload)
	if err != nil {
		writeError(c, err, "describe image failed")
		return
	}
	response.Text(c, text)
}

func (h *MediaHandler) Transcription(c *gin.Context) {
	upload, ok := readUpload(c)
	if !ok {
		return
	}
	text, err := h.mediaService.Transcribe(c.Request.Context(), upload)
	if err != nil {
		writeError(c, err, "transcription failed")
		return
	}
	response.Text(c, text)
}

// readUpload returns the optional multipart "file"; nil selects the sample.
func readUpload(c *gin.Context) (*app.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart payload")
		return nil, false
	}
	if header.Size > maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return nil, false
	}
	return &app.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}
