// Package document reads source files into text documents and splits them
// into embeddable chunks.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	TypePDF  = "pdf"
	TypeHTML = "html"
	TypeTXT  = "txt"
	TypeJSON = "json"
)

type Document struct {
	Text     string
	Metadata map[string]any
}

func (d Document) withMetadata(extra map[string]any) Document {
	meta := make(map[string]any, len(d.Metadata)+len(extra))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	for k, v := range extra {
		meta[k] = v
	}
	return Document{Text: d.Text, Metadata: meta}
}

// Truncate cuts the text to at most maxChars runes.
func (d Document) Truncate(maxChars int) Document {
	runes := []rune(d.Text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return d
	}
	return Document{Text: string(runes[:maxChars]), Metadata: d.Metadata}
}

// Hash identifies one version of a source file: the SHA-256 hex of
// "<filename>:<size>".
func Hash(filename string, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", filename, size)))
	return hex.EncodeToString(sum[:])
}

// HashFile stats path and hashes its base name and size.
func HashFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat document failed: %w", err)
	}
	return Hash(filepath.Base(path), info.Size()), nil
}

// TypeOf maps a file extension to a document type.
func TypeOf(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "pdf":
		return TypePDF
	case "html", "htm":
		return TypeHTML
	case "json":
		return TypeJSON
	default:
		return TypeTXT
	}
}
