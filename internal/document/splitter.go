package document

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidSplitter = errors.New("invalid splitter settings")

// tokenPattern treats each word plus its leading whitespace as one token, so
// joining tokens restores the original text.
var tokenPattern = regexp.MustCompile(`\s*\S+`)

// TokenTextSplitter cuts documents into chunks of roughly ChunkSize tokens.
// Each chunk is shortened to its last sentence break when that break lies past
// MinChunkSizeChars. Chunks not longer than MinChunkLengthToEmbed are dropped.
// After MaxNumChunks chunks the remaining text becomes one final chunk.
type TokenTextSplitter struct {
	ChunkSize             int
	MinChunkSizeChars     int
	MinChunkLengthToEmbed int
	MaxNumChunks          int
	KeepSeparator         bool
}

func DefaultTokenTextSplitter() TokenTextSplitter {
	return TokenTextSplitter{
		ChunkSize:             800,
		MinChunkSizeChars:     350,
		MinChunkLengthToEmbed: 5,
		MaxNumChunks:          10000,
		KeepSeparator:         true,
	}
}

// Split splits every document. Chunks inherit the source metadata.
func (s TokenTextSplitter) Split(docs []Document) ([]Document, error) {
	if s.ChunkSize <= 0 || s.MaxNumChunks <= 0 {
		return nil, ErrInvalidSplitter
	}
	var out []Document
	for _, doc := range docs {
		for _, chunk := range s.splitText(doc.Text) {
			out = append(out, Document{Text: chunk, Metadata: doc.withMetadata(nil).Metadata})
		}
	}
	return out, nil
}

func (s TokenTextSplitter) splitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tokens := tokenPattern.FindAllString(text, -1)

	var chunks []string
	for n := 0; len(tokens) > 0 && n < s.MaxNumChunks; n++ {
		end := s.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunkText := strings.Join(tokens[:end], "")
		if strings.TrimSpace(chunkText) == "" {
			tokens = tokens[end:]
			continue
		}

		if cut := lastPunctuation(chunkText); cut != -1 && cut > s.MinChunkSizeChars {
			chunkText = chunkText[:cut+1]
		}

		if kept := s.finish(chunkText); len(kept) > s.MinChunkLengthToEmbed {
			chunks = append(chunks, kept)
		}
		tokens = advance(tokens, len(chunkText))
	}

	if len(tokens) > 0 {
		if rest := s.finish(strings.Join(tokens, "")); len(rest) > s.MinChunkLengthToEmbed {
			chunks = append(chunks, rest)
		}
	}
	return chunks
}

func (s TokenTextSplitter) finish(text string) string {
	if s.KeepSeparator {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}

func lastPunctuation(text string) int {
	return strings.LastIndexAny(text, ".?!\n")
}

// advance drops the first n bytes of the joined tokens. A token cut in the
// middle keeps its unread suffix.
func advance(tokens []string, n int) []string {
	for i, tok := range tokens {
		if n < len(tok) {
			if n == 0 {
				return tokens[i:]
			}
			rest := append([]string{tok[n:]}, tokens[i+1:]...)
			return rest
		}
		n -= len(tok)
	}
	return nil
}
