package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/schema"

	"gopherai-workshop/internal/ai"
)

const describeImagePrompt = "Can you explain what you see in the following image"

type MediaGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Speech(ctx context.Context, text string) ([]byte, error)
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Upload is a file sent by the client. A nil upload means the configured sample.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type MediaService struct {
	media           MediaGenerator
	chat            *ai.ChatClient
	sampleImagePath string
	sampleAudioPath string
}

func NewMediaService(media MediaGenerator, chat *ai.ChatClient, sampleImagePath, sampleAudioPath string) *MediaService {
	return &MediaService{
		media:           media,
		chat:            chat,
		sampleImagePath: sampleImagePath,
		sampleAudioPath: sampleAudioPath,
	}
}

func (s *MediaService) GenerateImage(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrInvalidInput
	}
	url, err := s.media.GenerateImage(ctx, message)
	if err != nil {
		return "", modelErr(err)
	}
	return url, nil
}

// DescribeImage sends the image inline as a base64 data URL.
func (s *MediaService) DescribeImage(ctx context.Context, upload *Upload) (string, error) {
	img, err := s.resolve(upload, s.sampleImagePath)
	if err != nil {
		return "", err
	}
	contentType := img.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrInvalidInput
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: describeImagePrompt},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: dataURL}},
		},
	}
	return callContent(ctx, s.chat, &ai.Request{Messages: []*schema.Message{msg}})
}

func (s *MediaService) GenerateAudio(ctx context.Context, message string) ([]byte, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrInvalidInput
	}
	audio, err := s.media.Speech(ctx, message)
	if err != nil {
		return nil, modelErr(err)
	}
	return audio, nil
}

func (s *MediaService) Transcribe(ctx context.Context, upload *Upload) (string, error) {
	audio, err := s.resolve(upload, s.sampleAudioPath)
	if err != nil {
		return "", err
	}
	text, err := s.media.Transcribe(ctx, audio.Filename, audio.Data)
	if err != nil {
		return "", modelErr(err)
	}
	return text, nil
}

func (s *MediaService) resolve(upload *Upload, samplePath string) (*Upload, error) {
	if upload != nil {
		if len(upload.Data) == 0 {
			return nil, ErrInvalidInput
		}
		return upload, nil
	}
	if samplePath == "" {
		return nil, ErrMediaNotFound
	}
	data, err := os.ReadFile(samplePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("read sample media failed: %w", err)
	}
	return &Upload{Filename: filepath.Base(samplePath), Data: data}, nil
}
