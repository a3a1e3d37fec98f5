package dedup

import (
	"context"
	"testing"

	"ragengine/internal/store"
)

func TestDecideCreatesNewDocument(t *testing.T) {
	e := New(store.NewMemoryDocuments())
	d, err := e.Decide(context.Background(), Candidate{Location: "a.md", Text: "hello world", Tenant: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionCreate {
		t.Fatalf("got %v want create", d.Action)
	}
}

func TestDecideSkipsUnchangedLocation(t *testing.T) {
	docs := store.NewMemoryDocuments()
	e := New(docs)
	ctx := context.Background()
	text := "hello world"
	docs.Upsert(ctx, store.DocumentRow{ID: "doc1", Location: "a.md", Tenant: "t1", ContentHash: ContentHash(text), ModTimeUnix: 100})
	d, err := e.Decide(ctx, Candidate{Location: "a.md", Text: text, Tenant: "t1", ModTimeUnix: 100})
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionSkip {
		t.Fatalf("got %v want skip", d.Action)
	}
}

func TestDecideUpdatesChangedLocation(t *testing.T) {
	docs := store.NewMemoryDocuments()
	e := New(docs)
	ctx := context.Background()
	docs.Upsert(ctx, store.DocumentRow{ID: "doc1", Location: "a.md", Tenant: "t1", ContentHash: ContentHash("old"), ModTimeUnix: 100})
	d, err := e.Decide(ctx, Candidate{Location: "a.md", Text: "new content", Tenant: "t1", ModTimeUnix: 200})
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionUpdate {
		t.Fatalf("got %v want update", d.Action)
	}
	if d.ExistingID != "doc1" {
		t.Fatalf("got %q want doc1", d.ExistingID)
	}
}

func TestDecideSkipsDuplicateContentAtDifferentLocation(t *testing.T) {
	docs := store.NewMemoryDocuments()
	e := New(docs)
	ctx := context.Background()
	text := "identical body"
	docs.Upsert(ctx, store.DocumentRow{ID: "doc1", Location: "a.md", Tenant: "t1", ContentHash: ContentHash(text)})
	d, err := e.Decide(ctx, Candidate{Location: "b.md", Text: text, Tenant: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionSkip {
		t.Fatalf("got %v want skip", d.Action)
	}
}

func TestDecideForceAlwaysCreatesWithMangledLocation(t *testing.T) {
	docs := store.NewMemoryDocuments()
	e := New(docs)
	ctx := context.Background()
	text := "hello world"
	docs.Upsert(ctx, store.DocumentRow{ID: "doc1", Location: "a.md", Tenant: "t1", ContentHash: ContentHash(text)})
	d, err := e.Decide(ctx, Candidate{Location: "a.md", Text: text, Tenant: "t1", Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionCreate {
		t.Fatalf("got %v want create", d.Action)
	}
	if d.Location == "" || d.Location == "a.md" {
		t.Fatalf("expected a mangled location distinct from the original, got %q", d.Location)
	}
	if d.ExistingID != "" {
		t.Fatalf("expected no existing ID on a forced create, got %q", d.ExistingID)
	}
}

func TestDecideForceSkipsAllDuplicateChecks(t *testing.T) {
	docs := store.NewMemoryDocuments()
	e := New(docs)
	ctx := context.Background()
	text := "hello world"
	docs.Upsert(ctx, store.DocumentRow{ID: "doc1", Location: "other.md", Tenant: "t1", ContentHash: ContentHash(text)})
	// Same content hash as an existing document at a different location —
	// without Force this would resolve to ActionSkip.
	d, err := e.Decide(ctx, Candidate{Location: "new.md", Text: text, Tenant: "t1", Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionCreate {
		t.Fatalf("got %v want create (force must skip the content-hash duplicate check)", d.Action)
	}
}
