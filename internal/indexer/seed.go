package indexer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"gopherai-workshop/internal/document"
	"gopherai-workshop/internal/vectorstore"
)

// SeedLocalStore fills a file-backed store. An existing store file is loaded
// as is; otherwise the trainings file is split, embedded and saved.
func SeedLocalStore(ctx context.Context, store *vectorstore.MemoryStore, trainingsFile string) error {
	loaded, err := store.Load()
	if err != nil {
		return fmt.Errorf("load vector store file failed: %w", err)
	}
	if loaded {
		log.Printf("loaded vector store from %s", store.FilePath())
		return nil
	}
	if trainingsFile == "" {
		return nil
	}

	docs, err := document.ReadText(trainingsFile)
	if err != nil {
		return err
	}
	for n := range docs {
		docs[n].Metadata["filename"] = filepath.Base(trainingsFile)
		docs[n].Metadata[vectorstore.MetaFileType] = document.TypeOf(trainingsFile)
	}
	chunks, err := document.DefaultTokenTextSplitter().Split(docs)
	if err != nil {
		return fmt.Errorf("split trainings failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := store.Add(ctx, toStoreDocs(chunks, 0)); err != nil {
		return fmt.Errorf("index trainings failed: %w", err)
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("save vector store file failed: %w", err)
	}
	log.Printf("indexed %d trainings chunks into %s", len(chunks), store.FilePath())
	return nil
}
