// Package dedup decides whether an incoming document should be skipped,
// treated as an update to an existing document, or ingested as new, using a
// cascade of increasingly fuzzy matches against the document registry.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ragengine/internal/store"
)

// Action is the outcome of a dedup Decision.
type Action string

const (
	// ActionCreate ingests the document as brand new.
	ActionCreate Action = "create"
	// ActionUpdate re-chunks/re-embeds an existing document whose content changed.
	ActionUpdate Action = "update"
	// ActionSkip leaves an unchanged document alone.
	ActionSkip Action = "skip"
)

// Decision is the cascade's verdict plus the reasoning behind it.
type Decision struct {
	Action       Action
	ExistingID   string
	Reason       string
	PossibleDupe []string // IDs of documents that look similar but weren't treated as exact matches
	// Location overrides the candidate's original location when set — used
	// by forced ingestion, which mangles the location with a unique suffix
	// so the new document never collides with the one it's parallel to.
	Location string
}

// Engine runs the dedup cascade against a document registry.
type Engine struct {
	Documents store.Documents
	// Cache is optional; when set, it short-circuits the content-hash lookup
	// for documents already known to be ingested before falling through to
	// the registry.
	Cache *HashCache
}

func New(documents store.Documents) *Engine {
	return &Engine{Documents: documents}
}

func NewWithCache(documents store.Documents, cache *HashCache) *Engine {
	return &Engine{Documents: documents, Cache: cache}
}

// Candidate describes an incoming document before ingestion.
type Candidate struct {
	Location    string
	Title       string
	SourceType  string
	Tenant      string
	Text        string
	RawBytes    []byte
	ModTimeUnix int64
	Force       bool
}

// ContentHash returns the sha256 hex digest of cleaned document text, used to
// detect byte-identical re-ingestion regardless of source location.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FileHash returns the sha256 hex digest of the raw source bytes, used to
// catch duplicates that differ only in how the text was subsequently decoded
// (encoding, whitespace normalization) but originate from the same file.
func FileHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Decide runs the cascade: exact location match, then (location, mtime)
// staleness check, then file-hash match, then content-hash match, and
// finally a filename/title similarity pass that flags but does not
// block ingestion of genuinely new documents that merely resemble one
// already indexed.
func (e *Engine) Decide(ctx context.Context, c Candidate) (Decision, error) {
	if c.Force {
		mangled := fmt.Sprintf("%s#forced-%s", c.Location, uuid.NewString())
		return Decision{
			Action:   ActionCreate,
			Location: mangled,
			Reason:   "forced ingestion: skipping all duplicate checks and creating a parallel document",
		}, nil
	}

	contentHash := ContentHash(c.Text)
	fileHash := ""
	if len(c.RawBytes) > 0 {
		fileHash = FileHash(c.RawBytes)
	}

	if existing, found, err := e.Documents.GetByLocation(ctx, c.Location, c.Tenant); err != nil {
		return Decision{}, fmt.Errorf("dedup: lookup by location: %w", err)
	} else if found {
		if existing.ContentHash == contentHash {
			return Decision{Action: ActionSkip, ExistingID: existing.ID, Reason: "content unchanged at known location"}, nil
		}
		if existing.ModTimeUnix >= c.ModTimeUnix && existing.ModTimeUnix != 0 {
			return Decision{Action: ActionSkip, ExistingID: existing.ID, Reason: "source mtime not newer than indexed version"}, nil
		}
		return Decision{Action: ActionUpdate, ExistingID: existing.ID, Reason: "content changed at known location"}, nil
	}

	if fileHash != "" {
		if existing, found, err := e.Documents.GetByFileHash(ctx, fileHash, c.Tenant); err != nil {
			return Decision{}, fmt.Errorf("dedup: lookup by file hash: %w", err)
		} else if found {
			return Decision{Action: ActionSkip, ExistingID: existing.ID, Reason: "identical file content already indexed under a different location"}, nil
		}
	}

	if e.Cache != nil {
		if docID, hit, err := e.Cache.SeenContentHash(ctx, c.Tenant, contentHash); err == nil && hit {
			return Decision{Action: ActionSkip, ExistingID: docID, Reason: "identical text content already indexed (cache hit)"}, nil
		}
	}

	if existing, found, err := e.Documents.GetByContentHash(ctx, contentHash, c.Tenant); err != nil {
		return Decision{}, fmt.Errorf("dedup: lookup by content hash: %w", err)
	} else if found {
		if e.Cache != nil {
			_ = e.Cache.RememberContentHash(ctx, c.Tenant, contentHash, existing.ID)
		}
		return Decision{Action: ActionSkip, ExistingID: existing.ID, Reason: "identical text content already indexed under a different location"}, nil
	}

	dupes, err := e.possibleDuplicates(ctx, c)
	if err != nil {
		return Decision{}, fmt.Errorf("dedup: similarity scan: %w", err)
	}
	return Decision{Action: ActionCreate, Reason: "no exact match found", PossibleDupe: dupes}, nil
}

// possibleDuplicates flags, without blocking, documents whose filename stem
// or title equals, contains, or is contained in the incoming candidate's,
// skipping any whose source type differs when both types are set; text
// length is not compared. The flag is a soft signal for a human reviewer or a later consolidation pass, not
// grounds to skip ingestion outright.
func (e *Engine) possibleDuplicates(ctx context.Context, c Candidate) ([]string, error) {
	candidates, err := e.Documents.ListCandidatesForSimilarity(ctx, c.Tenant)
	if err != nil {
		return nil, err
	}
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(c.Location), filepath.Ext(c.Location)))
	title := strings.ToLower(strings.TrimSpace(c.Title))

	var dupes []string
	for _, d := range candidates {
		dStem := strings.ToLower(strings.TrimSuffix(filepath.Base(d.Location), filepath.Ext(d.Location)))
		dTitle := strings.ToLower(strings.TrimSpace(d.Title))
		nameLike := stem != "" && (stem == dStem || strings.Contains(dStem, stem) || strings.Contains(stem, dStem))
		titleLike := title != "" && dTitle != "" && (title == dTitle || strings.Contains(dTitle, title) || strings.Contains(title, dTitle))
		if !nameLike && !titleLike {
			continue
		}
		if d.SourceType != "" && c.SourceType != "" && d.SourceType != c.SourceType {
			continue
		}
		dupes = append(dupes, d.ID)
	}
	return dupes, nil
}
