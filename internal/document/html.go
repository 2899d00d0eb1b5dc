package document

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	HTMLFormatText     = "text"
	HTMLFormatMarkdown = "markdown"
)

var blankLines = regexp.MustCompile(`\n\s*\n+`)

// ReadHTML reads an HTML file as one document, either as visible body text or
// converted to markdown.
func ReadHTML(path, format string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read html failed: %w", err)
	}
	text, err := HTMLToText(string(raw), format)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	return []Document{{Text: text, Metadata: map[string]any{}}}, nil
}

func HTMLToText(html, format string) (string, error) {
	if strings.EqualFold(format, HTMLFormatMarkdown) {
		converter := md.NewConverter("", true, nil)
		markdown, err := converter.ConvertString(html)
		if err != nil {
			return "", fmt.Errorf("convert html to markdown failed: %w", err)
		}
		return strings.TrimSpace(markdown), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html failed: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n")), nil
}
