package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadIDField stores the caller-supplied chunk ID in the point payload,
// since Qdrant only accepts UUIDs or positive integers as point IDs.
const payloadIDField = "_original_id"

type qdrantVector struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrantVector connects to Qdrant's gRPC API (default port 6334). An API
// key may be passed as a DSN query parameter: "http://host:6334?api_key=...".
func NewQdrantVector(dsn, collection string, dimensions int, metric string) (Vector, error) {
	if collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("qdrant: parse dsn: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("qdrant: invalid port: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if u.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := u.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: create client: %w", err)
	}
	qv := &qdrantVector{client: client, collection: collection, dimension: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}
	if err := qv.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrant: ensure collection: %w", err)
	}
	return qv, nil
}

func (q *qdrantVector) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	default:
		distance = qdrant.Distance_Cosine
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimensions > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: distance,
		}),
	})
}

func (q *qdrantVector) Dimension() int { return q.dimension }

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *qdrantVector) Upsert(ctx context.Context, id, docID string, vector []float32, metadata map[string]string) error {
	uuidStr := pointUUID(id)
	payload := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		payload[k] = v
	}
	payload["doc_id"] = docID
	if uuidStr != id {
		payload[payloadIDField] = id
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func (q *qdrantVector) Delete(ctx context.Context, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointUUID(id))),
	})
	return err
}

func (q *qdrantVector) RemoveDocument(ctx context.Context, docID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
		}),
	})
	return err
}

func (q *qdrantVector) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	var qf *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		qf = &qdrant.Filter{Must: must}
	}
	limit := uint64(k)
	result, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(result))
	for _, hit := range result {
		uuidStr := hit.Id.GetUuid()
		metadata := make(map[string]string)
		var originalID, docID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				switch k {
				case payloadIDField:
					originalID = v.GetStringValue()
				case "doc_id":
					docID = v.GetStringValue()
					metadata[k] = v.GetStringValue()
				default:
					metadata[k] = v.GetStringValue()
				}
			}
		}
		id := originalID
		if id == "" {
			id = uuidStr
		}
		out = append(out, Hit{ID: id, DocID: docID, Score: float64(hit.Score), Metadata: metadata})
	}
	return out, nil
}

func (q *qdrantVector) Close() { q.client.Close() }
