// Package ingest implements the ingestion orchestrator: preprocess, dedup,
// chunk, enrich, and index a document across all three retrieval channels.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ragengine/internal/chunker"
	"ragengine/internal/config"
	"ragengine/internal/dedup"
	"ragengine/internal/enrich"
	"ragengine/internal/models"
	"ragengine/internal/store"
	"ragengine/internal/tagging"
)

// Request is the input to AddDocument.
type Request struct {
	Location   string
	Title      string
	SourceType string
	Tenant     string
	Content    string
	RawBytes   []byte
	Metadata   map[string]string
	ModTime    time.Time
	Force      bool
}

// Outcome reports what AddDocument did.
type Outcome struct {
	DocumentID   string
	Action       dedup.Action
	ChunkCount   int
	PossibleDupe []string
	EnrichErrors map[string]error
}

// Orchestrator wires the dedup engine, chunker, enrichment pipeline, and the
// three retrieval backends together into a single ingestion flow.
type Orchestrator struct {
	Manager    store.Manager
	Dedup      *dedup.Engine
	Enrich     *enrich.Pipeline
	ChunkOpts  chunker.Options
	Notifier   *kafka.Writer // optional; nil disables the "schedule enrichment" notification
	Topic      string
}

func New(m store.Manager, dedupEngine *dedup.Engine, pipeline *enrich.Pipeline, chunkCfg config.ChunkingConfig, kafkaCfg config.KafkaConfig) *Orchestrator {
	o := &Orchestrator{
		Manager:   m,
		Dedup:     dedupEngine,
		Enrich:    pipeline,
		ChunkOpts: chunker.Options{ChunkSize: chunkCfg.ChunkSize, Overlap: chunkCfg.Overlap},
		Topic:     kafkaCfg.EnrichmentTopic,
	}
	if len(kafkaCfg.Brokers) > 0 && kafkaCfg.EnrichmentTopic != "" {
		o.Notifier = &kafka.Writer{
			Addr:     kafka.TCP(kafkaCfg.Brokers...),
			Balancer: &kafka.LeastBytes{},
		}
	}
	return o
}

// AddDocument runs preprocess -> dedup -> chunk -> enrich -> index.
func (o *Orchestrator) AddDocument(ctx context.Context, req Request) (Outcome, error) {
	contentHash := dedup.ContentHash(req.Content)
	fileHash := ""
	if len(req.RawBytes) > 0 {
		fileHash = dedup.FileHash(req.RawBytes)
	}

	decision, err := o.Dedup.Decide(ctx, dedup.Candidate{
		Location:    req.Location,
		Title:       req.Title,
		SourceType:  req.SourceType,
		Tenant:      req.Tenant,
		Text:        req.Content,
		RawBytes:    req.RawBytes,
		ModTimeUnix: req.ModTime.Unix(),
		Force:       req.Force,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: dedup: %w", err)
	}
	if decision.Action == dedup.ActionSkip {
		return Outcome{DocumentID: decision.ExistingID, Action: decision.Action, PossibleDupe: decision.PossibleDupe}, nil
	}

	location := req.Location
	if decision.Location != "" {
		location = decision.Location
	}

	docID := decision.ExistingID
	if docID == "" {
		if req.Force {
			// A forced create must never collide with the document it's
			// parallel to, which a content-hash-derived ID would if the
			// content is byte-identical.
			docID = fmt.Sprintf("doc:%s", uuid.NewString())
		} else {
			docID = fmt.Sprintf("doc:%s", contentHash[:16])
		}
	}

	if decision.Action == dedup.ActionUpdate {
		if err := o.Manager.FullText.RemoveDocument(ctx, docID); err != nil {
			log.Warn().Err(err).Str("doc_id", docID).Msg("remove stale fulltext entries")
		}
		if err := o.Manager.Vector.RemoveDocument(ctx, docID); err != nil {
			log.Warn().Err(err).Str("doc_id", docID).Msg("remove stale vector entries")
		}
		if err := o.Manager.Tags.RemoveDocument(ctx, docID); err != nil {
			log.Warn().Err(err).Str("doc_id", docID).Msg("remove stale tag entries")
		}
	}

	chunks := chunker.Chunk(docID, req.Content, o.ChunkOpts)

	doc := models.Document{
		ID:          docID,
		Location:    location,
		Title:       req.Title,
		SourceType:  req.SourceType,
		Metadata:    req.Metadata,
		ContentHash: contentHash,
		FileHash:    fileHash,
		ModTime:     req.ModTime,
		Tenant:      req.Tenant,
	}

	result, err := o.Enrich.Run(ctx, doc, req.Content, chunks)
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: enrich: %w", err)
	}
	for step, stepErr := range result.Errors {
		log.Warn().Err(stepErr).Str("doc_id", docID).Str("step", step).Msg("enrichment step degraded")
	}

	if err := o.index(ctx, doc, chunks, result); err != nil {
		return Outcome{}, fmt.Errorf("ingest: index: %w", err)
	}

	if err := o.Manager.Documents.Upsert(ctx, store.DocumentRow{
		ID: docID, Location: location, Title: req.Title, SourceType: req.SourceType,
		ContentHash: contentHash, FileHash: fileHash, ModTimeUnix: req.ModTime.Unix(),
		Version: 1, Tenant: req.Tenant, Metadata: req.Metadata,
	}); err != nil {
		return Outcome{}, fmt.Errorf("ingest: upsert document registry: %w", err)
	}

	o.notify(ctx, docID)

	return Outcome{
		DocumentID:   docID,
		Action:       decision.Action,
		ChunkCount:   len(chunks),
		PossibleDupe: decision.PossibleDupe,
		EnrichErrors: result.Errors,
	}, nil
}

func (o *Orchestrator) index(ctx context.Context, doc models.Document, chunks []models.Chunk, result enrich.Result) error {
	for _, c := range chunks {
		id := fmt.Sprintf("chunk:%s:%d", doc.ID, c.Index)
		if err := o.Manager.FullText.IndexChunk(ctx, id, doc.ID, c.Index, c.Text, doc.Metadata, ""); err != nil {
			return fmt.Errorf("index chunk %d to full text: %w", c.Index, err)
		}
	}
	for _, emb := range result.Embeddings {
		if emb.Vector == nil {
			continue // chunk text was empty after cleaning; nothing to index
		}
		if err := o.Manager.Vector.Upsert(ctx, emb.ID, doc.ID, emb.Vector, doc.Metadata); err != nil {
			return fmt.Errorf("upsert chunk %d to vector store: %w", emb.Index, err)
		}
	}
	for _, name := range result.Tags {
		norm := tagging.Normalize(name)
		if !tagging.Valid(norm) {
			continue
		}
		if err := o.Manager.Tags.TagDocument(ctx, doc.ID, norm); err != nil {
			return fmt.Errorf("tag document with %q: %w", norm, err)
		}
		for _, c := range chunks {
			chunkID := fmt.Sprintf("chunk:%s:%d", doc.ID, c.Index)
			if err := o.Manager.Tags.TagChunk(ctx, chunkID, doc.ID, norm, 1.0); err != nil {
				return fmt.Errorf("tag chunk %d: %w", c.Index, err)
			}
		}
	}
	return nil
}

// notify publishes a best-effort "schedule enrichment" message so an
// out-of-process worker can pick up any further, asynchronous enrichment
// work (e.g. re-running a step whose breaker was open at ingestion time).
func (o *Orchestrator) notify(ctx context.Context, docID string) {
	if o.Notifier == nil {
		return
	}
	msg := kafka.Message{Topic: o.Topic, Key: []byte(docID), Value: []byte(docID)}
	if err := o.Notifier.WriteMessages(ctx, msg); err != nil {
		log.Warn().Err(err).Str("doc_id", docID).Msg("failed to publish enrichment notification")
	}
}

func (o *Orchestrator) Close() error {
	if o.Notifier != nil {
		return o.Notifier.Close()
	}
	return nil
}
