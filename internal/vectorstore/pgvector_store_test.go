package vectorstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunPostgres returns a gorm handle that builds postgres SQL without a
// server, and the statements it would have sent.
func dryRunPostgres(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open dry run db: %v", err)
	}
	var statements []string
	capture := func(tx *gorm.DB) {
		statements = append(statements, tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...))
	}
	if err := db.Callback().Row().After("gorm:row").Register("test:capture_row", capture); err != nil {
		t.Fatal(err)
	}
	if err := db.Callback().Query().After("gorm:query").Register("test:capture_query", capture); err != nil {
		t.Fatal(err)
	}
	if err := db.Callback().Create().After("gorm:create").Register("test:capture_create", capture); err != nil {
		t.Fatal(err)
	}
	return db, &statements
}

func lastStatement(t *testing.T, statements *[]string) string {
	t.Helper()
	if len(*statements) == 0 {
		t.Fatal("no statement built")
	}
	return (*statements)[len(*statements)-1]
}

func TestPGVectorSearchRanksByCosineDistance(t *testing.T) {
	db, statements := dryRunPostgres(t)
	store := NewPGVectorStore(db, &keywordEmbedder{}, len(vocabulary))

	_, err := store.SimilaritySearch(context.Background(), SearchRequest{Query: "spring java", TopK: 3})
	if err != nil && !errors.Is(err, gorm.ErrDryRunModeUnsupported) {
		t.Fatalf("SimilaritySearch() error = %v", err)
	}

	sql := lastStatement(t, statements)
	for _, want := range []string{
		"SELECT id, content, metadata, embedding <=> '[0,1,0,0,1]' AS distance",
		`FROM "vector_store"`,
		"ORDER BY distance",
		"LIMIT 3",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("search SQL %q missing %q", sql, want)
		}
	}
}

func TestPGVectorHitsAboveThreshold(t *testing.T) {
	hits := []pgHit{
		{ID: "a", Content: "close", Distance: 0.1, Metadata: datatypes.JSONMap{MetaSource: "a.txt"}},
		{ID: "b", Content: "edge", Distance: 0.5},
		{ID: "c", Content: "far", Distance: 0.9},
	}
	got := hitsAbove(hits, 0.5)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("hitsAbove() = %+v", got)
	}
	if got[0].Score < 0.89 || got[0].Score > 0.91 || got[0].MetaString(MetaSource) != "a.txt" {
		t.Errorf("first hit = %+v", got[0])
	}
	if len(hitsAbove(hits, 0)) != 3 {
		t.Error("zero threshold dropped hits")
	}
}

func TestPGVectorDocumentHashesQuery(t *testing.T) {
	db, statements := dryRunPostgres(t)
	store := NewPGVectorStore(db, &keywordEmbedder{}, len(vocabulary))

	if _, err := store.DocumentHashes(context.Background()); err != nil && !errors.Is(err, gorm.ErrDryRunModeUnsupported) {
		t.Fatalf("DocumentHashes() error = %v", err)
	}
	sql := lastStatement(t, statements)
	if !strings.Contains(sql, "SELECT DISTINCT metadata->>'document_hash'") ||
		!strings.Contains(sql, "WHERE metadata->>'document_hash' IS NOT NULL") {
		t.Errorf("hash SQL = %q", sql)
	}
}

func TestPGVectorAddInsertsEmbeddings(t *testing.T) {
	db, statements := dryRunPostgres(t)
	embedder := &keywordEmbedder{}
	store := NewPGVectorStore(db, embedder, len(vocabulary))

	docs := sampleDocs()[:1]
	docs[0].ID = "3f0c8a52-0d5e-4d3c-9d6e-3b1f0a2c4e11"
	if err := store.Add(context.Background(), docs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("embedder calls = %d", embedder.calls)
	}
	sql := lastStatement(t, statements)
	if !strings.Contains(sql, `INSERT INTO "vector_store"`) ||
		!strings.Contains(sql, docs[0].ID) ||
		!strings.Contains(sql, "'[1,0,0,1,0]'") {
		t.Errorf("insert SQL = %q", sql)
	}
}

func TestPGVectorAddSkipsEmptyBatch(t *testing.T) {
	db, statements := dryRunPostgres(t)
	embedder := &keywordEmbedder{}
	if err := NewPGVectorStore(db, embedder, 0).Add(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if embedder.calls != 0 || len(*statements) != 0 {
		t.Fatalf("empty batch reached the database: calls=%d statements=%v", embedder.calls, *statements)
	}
}
