package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrEmptyMediaResult = errors.New("media model returned no result")

type MediaConfig struct {
	BaseURL            string
	APIKey             string
	ImageModel         string
	ImageSize          string
	ImageQuality       string
	ImageStyle         string
	SpeechModel        string
	SpeechVoice        string
	SpeechFormat       string
	SpeechSpeed        float64
	TranscriptionModel string
}

// MediaClient talks to the OpenAI-compatible image, speech and transcription
// endpoints.
type MediaClient struct {
	httpClient *http.Client
	cfg        MediaConfig
}

func NewMediaClient(cfg MediaConfig) *MediaClient {
	return &MediaClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		cfg:        cfg,
	}
}

// GenerateImage returns the image URL, or a data URL when the provider only
// sends base64.
func (c *MediaClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":   c.cfg.ImageModel,
		"prompt":  prompt,
		"n":       1,
		"size":    c.cfg.ImageSize,
		"quality": c.cfg.ImageQuality,
		"style":   c.cfg.ImageStyle,
	}
	raw, err := c.postJSON(ctx, "/images/generations", reqBody)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}

	var parsed struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse image json failed: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", ErrEmptyMediaResult
	}
	if parsed.Data[0].URL != "" {
		return parsed.Data[0].URL, nil
	}
	if parsed.Data[0].B64JSON != "" {
		return "data:image/png;base64," + parsed.Data[0].B64JSON, nil
	}
	return "", ErrEmptyMediaResult
}

// Speech returns the synthesized audio bytes.
func (c *MediaClient) Speech(ctx context.Context, text string) ([]byte, error) {
	reqBody := map[string]interface{}{
		"model":           c.cfg.SpeechModel,
		"input":           text,
		"voice":           c.cfg.SpeechVoice,
		"response_format": c.cfg.SpeechFormat,
		"speed":           c.cfg.SpeechSpeed,
	}
	raw, err := c.postJSON(ctx, "/audio/speech", reqBody)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyMediaResult
	}
	return raw, nil
}

func (c *MediaClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model", c.cfg.TranscriptionModel); err != nil {
		return "", fmt.Errorf("build transcription form failed: %w", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build transcription form failed: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("build transcription form failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build transcription form failed: %w", err)
	}

	raw, err := c.do(ctx, "/audio/transcriptions", w.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription json failed: %w", err)
	}
	return parsed.Text, nil
}

func (c *MediaClient) postJSON(ctx context.Context, path string, reqBody map[string]interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}
	return c.do(ctx, path, "application/json", bytes.NewReader(bodyBytes))
}

func (c *MediaClient) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
