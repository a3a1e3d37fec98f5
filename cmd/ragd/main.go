// Command ragd serves the ingestion and query orchestrators over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"ragengine/internal/breaker"
	"ragengine/internal/completion"
	"ragengine/internal/config"
	"ragengine/internal/dedup"
	"ragengine/internal/embedder"
	"ragengine/internal/enrich"
	"ragengine/internal/ingest"
	"ragengine/internal/observability"
	"ragengine/internal/query"
	"ragengine/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("ragd")
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("RAGENGINE_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	baseCtx := context.Background()

	shutdown, err := observability.InitOTel(baseCtx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	manager, err := store.NewManager(baseCtx, cfg.Databases)
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}
	defer manager.Close()

	emb := embedder.NewClient(cfg.Embedding)
	if err := emb.Ping(baseCtx); err != nil {
		log.Warn().Err(err).Msg("embedding endpoint unreachable at startup, falling back to deterministic embeddings")
		emb = embedder.NewDeterministic(cfg.Embedding.Dimension, cfg.Embedding.Model)
	}

	dedupEngine := dedup.New(manager.Documents)
	if cfg.Redis.Addr != "" {
		if cache, err := dedup.NewHashCache(cfg.Redis.Addr, cfg.Redis.DB); err != nil {
			log.Warn().Err(err).Msg("redis hash cache unavailable, continuing without it")
		} else {
			dedupEngine.Cache = cache
		}
	}

	pipeline := &enrich.Pipeline{
		Embedder:   emb,
		Completion: completion.NewClient(cfg.Completion),
		Breakers:   enrich.NewRegistry(cfg.Enrichment),
	}

	ingestor := ingest.New(manager, dedupEngine, pipeline, cfg.Chunking, cfg.Kafka)
	defer ingestor.Close()

	queryEngine := query.New(manager, emb, cfg.Retrieval)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/documents", documentsHandler(ingestor))
	mux.HandleFunc("/v1/search", searchHandler(queryEngine))
	mux.HandleFunc("/healthz", healthzHandler())

	addr := firstNonEmpty(os.Getenv("RAGD_ADDR"), ":8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("ragd listening")
	return srv.ListenAndServe()
}

func documentsHandler(o *ingest.Orchestrator) http.HandlerFunc {
	type body struct {
		Location   string            `json:"location"`
		Title      string            `json:"title"`
		SourceType string            `json:"source_type"`
		Tenant     string            `json:"tenant"`
		Content    string            `json:"content"`
		Metadata   map[string]string `json:"metadata"`
		Force      bool              `json:"force"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var b body
		if err := json.Unmarshal(raw, &b); err != nil {
			observability.LoggerWithTrace(r.Context()).Warn().
				RawJSON("body", observability.RedactJSON(raw)).
				Msg("rejecting malformed document payload")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		outcome, err := o.AddDocument(r.Context(), ingest.Request{
			Location: b.Location, Title: b.Title, SourceType: b.SourceType,
			Tenant: b.Tenant, Content: b.Content, Metadata: b.Metadata,
			ModTime: time.Now(), Force: b.Force,
		})
		if err != nil {
			if breakerOpen(err) {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, outcome)
	}
}

func searchHandler(o *query.Orchestrator) http.HandlerFunc {
	type body struct {
		Text         string   `json:"text"`
		Tenant       string   `json:"tenant"`
		Tags         []string `json:"tags"`
		PerDocLimit  int      `json:"per_doc_limit"`
		TotalResults int      `json:"total_results"`
		SessionID    string   `json:"session_id"`
		UserID       string   `json:"user_id"`
		TrackSearch  *bool    `json:"track_search"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var b body
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if b.TotalResults == 0 {
			b.TotalResults = 10
		}
		trackSearch := b.TrackSearch == nil || *b.TrackSearch
		results, err := o.Search(r.Context(), query.Request{
			Text: b.Text, Tenant: b.Tenant, Tags: b.Tags,
			PerDocLimit: b.PerDocLimit, TotalResults: b.TotalResults,
			SessionID: b.SessionID, UserID: b.UserID, TrackSearch: trackSearch,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, results)
	}
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func breakerOpen(err error) bool {
	return errors.Is(err, breaker.ErrOpen)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
