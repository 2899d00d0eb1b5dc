// Package indexer loads document files into the vector store, skipping files
// whose content hash is already embedded.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"gopherai-workshop/internal/config"
	"gopherai-workshop/internal/document"
	"gopherai-workshop/internal/vectorstore"
)

const (
	defaultBatchSize        = 10
	defaultFallbackMaxChars = 2000
)

var ErrIndexInProgress = errors.New("indexing already in progress")

type Options struct {
	PDFPattern        string
	HTMLPattern       string
	TXTPattern        string
	HTMLFormat        string
	BatchSize         int
	FallbackMaxChars  int
	HTMLMaxChars      int
	HTMLFallbackChars int
	TXTFallbackChars  int
	PDFSplitter       document.TokenTextSplitter
	HTMLSplitter      document.TokenTextSplitter
	TXTSplitter       document.TokenTextSplitter
}

func OptionsFromConfig(cfg config.DocumentsConfig) Options {
	return Options{
		PDFPattern:        cfg.PDFPattern,
		HTMLPattern:       cfg.HTMLPattern,
		TXTPattern:        cfg.TXTPattern,
		HTMLFormat:        cfg.HTMLFormat,
		BatchSize:         cfg.BatchSize,
		FallbackMaxChars:  cfg.FallbackMaxChars,
		HTMLMaxChars:      cfg.HTMLMaxChars,
		HTMLFallbackChars: cfg.HTMLFallbackChars,
		TXTFallbackChars:  cfg.TXTFallbackChars,
		PDFSplitter:       splitterFromConfig(cfg.PDFSplitter),
		HTMLSplitter:      splitterFromConfig(cfg.HTMLSplitter),
		TXTSplitter:       splitterFromConfig(cfg.TXTSplitter),
	}
}

func splitterFromConfig(c config.SplitterConfig) document.TokenTextSplitter {
	return document.TokenTextSplitter{
		ChunkSize:             c.ChunkSize,
		MinChunkSizeChars:     c.MinChunkSizeChars,
		MinChunkLengthToEmbed: c.MinChunkLengthToEmbed,
		MaxNumChunks:          c.MaxNumChunks,
		KeepSeparator:         c.KeepSeparator,
	}
}

// Report summarizes one indexing run.
type Report struct {
	FilesFound   int           `json:"files_found"`
	FilesSkipped int           `json:"files_skipped"`
	FilesFailed  int           `json:"files_failed"`
	Chunks       int           `json:"chunks"`
	Indexed      int           `json:"indexed"`
	Duration     time.Duration `json:"duration"`
}

type Indexer struct {
	store vectorstore.VectorStore
	opts  Options
	mu    sync.Mutex
	now   func() time.Time
}

func New(store vectorstore.VectorStore, opts Options) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FallbackMaxChars <= 0 {
		opts.FallbackMaxChars = defaultFallbackMaxChars
	}
	return &Indexer{store: store, opts: opts, now: time.Now}
}

// Run indexes every matching file not yet in the store. Concurrent calls get
// ErrIndexInProgress.
func (i *Indexer) Run(ctx context.Context) (*Report, error) {
	if !i.mu.TryLock() {
		return nil, ErrIndexInProgress
	}
	defer i.mu.Unlock()

	start := i.now()
	report := &Report{}

	existing, err := i.store.DocumentHashes(ctx)
	if err != nil {
		log.Printf("read indexed document hashes failed, indexing everything: %v", err)
		existing = map[string]struct{}{}
	}

	var chunks []document.Document
	patterns := []struct {
		pattern  string
		fileType string
	}{
		{i.opts.PDFPattern, document.TypePDF},
		{i.opts.HTMLPattern, document.TypeHTML},
		{i.opts.TXTPattern, document.TypeTXT},
	}
	for _, p := range patterns {
		if p.pattern == "" {
			continue
		}
		files, err := doublestar.FilepathGlob(p.pattern)
		if err != nil {
			log.Printf("glob %q failed: %v", p.pattern, err)
			continue
		}
		for _, path := range files {
			report.FilesFound++
			hash, err := document.HashFile(path)
			if err != nil {
				log.Printf("hash %s failed: %v", path, err)
				report.FilesFailed++
				continue
			}
			if _, ok := existing[hash]; ok {
				log.Printf("skip already indexed document: %s", path)
				report.FilesSkipped++
				continue
			}

			fileChunks, err := i.loadFile(path, p.fileType, hash)
			if err != nil {
				log.Printf("load document %s failed: %v", path, err)
				report.FilesFailed++
				continue
			}
			// A file that appears under two patterns is indexed once per run.
			existing[hash] = struct{}{}
			chunks = append(chunks, fileChunks...)
		}
	}

	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		log.Printf("no new documents to index")
		report.Duration = i.now().Sub(start)
		return report, nil
	}

	report.Indexed = i.addInBatches(ctx, chunks)
	if saver, ok := i.store.(interface{ Save() error }); ok && report.Indexed > 0 {
		if err := saver.Save(); err != nil {
			log.Printf("save vector store failed: %v", err)
		}
	}
	report.Duration = i.now().Sub(start)
	log.Printf("Successfully indexed %d document chunks out of %d", report.Indexed, report.Chunks)
	return report, nil
}

func (i *Indexer) loadFile(path, fileType, hash string) ([]document.Document, error) {
	meta := map[string]any{
		vectorstore.MetaSource:       filepath.Base(path),
		vectorstore.MetaFileType:     fileType,
		vectorstore.MetaIndexedDate:  i.now().UTC().Format(time.RFC3339),
		vectorstore.MetaDocumentHash: hash,
	}

	switch fileType {
	case document.TypePDF:
		pages, err := document.ReadPDF(path)
		if err != nil {
			return nil, err
		}
		pages = withMetadata(pages, meta)
		return i.splitPDF(path, pages), nil
	case document.TypeHTML:
		docs, err := document.ReadHTML(path, i.opts.HTMLFormat)
		if err != nil {
			return nil, err
		}
		return splitOrTruncate(i.opts.HTMLSplitter, withMetadata(docs, meta), i.opts.HTMLMaxChars, i.opts.HTMLFallbackChars, path), nil
	default:
		docs, err := document.ReadText(path)
		if err != nil {
			return nil, err
		}
		return splitOrTruncate(i.opts.TXTSplitter, withMetadata(docs, meta), 0, i.opts.TXTFallbackChars, path), nil
	}
}

// splitPDF splits all pages at once, then page by page when that fails.
func (i *Indexer) splitPDF(path string, pages []document.Document) []document.Document {
	chunks, err := i.opts.PDFSplitter.Split(pages)
	if err == nil {
		return chunks
	}
	log.Printf("split pdf %s failed, retrying per page: %v", path, err)

	var out []document.Document
	for n, page := range pages {
		pageChunks, err := i.opts.PDFSplitter.Split([]document.Document{page})
		if err != nil {
			log.Printf("split pdf %s page %d failed, skipping: %v", path, n+1, err)
			continue
		}
		out = append(out, pageChunks...)
	}
	return out
}

// splitOrTruncate optionally truncates before splitting and falls back to the
// truncated whole documents when the splitter fails.
func splitOrTruncate(s document.TokenTextSplitter, docs []document.Document, maxChars, fallbackChars int, path string) []document.Document {
	if maxChars > 0 {
		for n := range docs {
			docs[n] = docs[n].Truncate(maxChars)
		}
	}
	chunks, err := s.Split(docs)
	if err == nil {
		return chunks
	}
	log.Printf("split %s failed, indexing truncated text: %v", path, err)
	out := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Truncate(fallbackChars))
	}
	return out
}

// addInBatches returns how many chunks made it into the store.
func (i *Indexer) addInBatches(ctx context.Context, chunks []document.Document) int {
	indexed := 0
	size := i.opts.BatchSize
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := toStoreDocs(chunks[start:end], 0)
		err := i.store.Add(ctx, batch)
		if err == nil {
			indexed += len(batch)
			continue
		}
		log.Printf("add batch %d-%d failed, retrying one by one: %v", start, end, err)

		for n, doc := range toStoreDocs(chunks[start:end], i.opts.FallbackMaxChars) {
			if err := i.store.Add(ctx, []vectorstore.Document{doc}); err != nil {
				log.Printf("add document chunk %d failed, skipping: %v", start+n, err)
				continue
			}
			indexed++
		}
	}
	return indexed
}

func toStoreDocs(chunks []document.Document, maxChars int) []vectorstore.Document {
	out := make([]vectorstore.Document, 0, len(chunks))
	for _, c := range chunks {
		if maxChars > 0 {
			c = c.Truncate(maxChars)
		}
		out = append(out, vectorstore.Document{
			ID:       uuid.NewString(),
			Content:  c.Text,
			Metadata: c.Metadata,
		})
	}
	return out
}

func withMetadata(docs []document.Document, meta map[string]any) []document.Document {
	out := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		merged := make(map[string]any, len(d.Metadata)+len(meta))
		for k, v := range d.Metadata {
			merged[k] = v
		}
		for k, v := range meta {
			merged[k] = v
		}
		out = append(out, document.Document{Text: d.Text, Metadata: merged})
	}
	return out
}

// String renders a one-line summary for logs.
func (r *Report) String() string {
	return fmt.Sprintf("found=%d skipped=%d failed=%d chunks=%d indexed=%d in %s",
		r.FilesFound, r.FilesSkipped, r.FilesFailed, r.Chunks, r.Indexed, r.Duration)
}
