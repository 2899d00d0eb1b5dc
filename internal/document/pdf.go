package document

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadPDF returns one document per page with extractable text. Pages carry
// page_number metadata.
func ReadPDF(path string) ([]Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	var docs []Document
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d failed: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]any{
				"page_number": i,
				"total_pages": total,
			},
		})
	}
	return docs, nil
}
