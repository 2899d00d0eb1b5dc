package document

import (
	"fmt"
	"os"
	"strings"
)

// ReadText reads a plain text (or JSON) file as one document.
func ReadText(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text failed: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	return []Document{{Text: text, Metadata: map[string]any{}}}, nil
}
