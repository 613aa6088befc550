package rag

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the base collection name. Each rebuild writes to
	// "<Collection>-<instance id>-g<generation>".
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// UpsertBatch is the number of points sent per Upsert call. Defaults to 256.
	UpsertBatch int

	// Batch controls embedding calls during rebuild.
	Batch BatchConfig

	// Logger receives cleanup warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// qdrantAPI is the subset of *qdrant.Client the index relies on.
type qdrantAPI interface {
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	DeleteCollection(ctx context.Context, name string) error
	Close() error
}

// qdrantGeneration is one published index generation.
type qdrantGeneration struct {
	// collection is empty when the generation holds no records.
	collection string
	// records is indexed by Record.Seq.
	records []Record
}

// QdrantIndex implements VectorIndex on a Qdrant instance. Rebuilds are
// written into a fresh collection and only published once every point is
// stored, so a failed rebuild never disturbs the live generation.
//
// Collection names carry a random per-index instance ID, so several
// processes can share one Qdrant without touching each other's data. A
// replaced generation is kept until the following rebuild so searches that
// loaded it just before the swap can still finish.
type QdrantIndex struct {
	// api performs the collection and point calls.
	api qdrantAPI
	// client is the concrete client behind api, nil in tests.
	client *qdrant.Client
	// cfg holds the resolved configuration.
	cfg *QdrantConfig
	// embedder converts record and query text to vectors.
	embedder Embedder
	// prefix is "<Collection>-<instance id>".
	prefix string
	// gen numbers collections created by this index.
	gen atomic.Uint64
	// current is nil until the first successful Rebuild.
	current atomic.Pointer[qdrantGeneration]

	// rebuildMu serialises rebuilds so generations publish in order.
	// It also guards retired.
	rebuildMu sync.Mutex
	// retired is the generation replaced by the last rebuild.
	retired *qdrantGeneration
}

// NewQdrantIndex connects to Qdrant and returns a not-yet-ready index.
func NewQdrantIndex(embedder Embedder, cfg *QdrantConfig) (*QdrantIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	cfg.applyDefaults()

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	q := newQdrantIndex(client, embedder, cfg)
	q.client = client
	return q, nil
}

func newQdrantIndex(api qdrantAPI, embedder Embedder, cfg *QdrantConfig) *QdrantIndex {
	cfg.applyDefaults()
	return &QdrantIndex{
		api:      api,
		cfg:      cfg,
		embedder: embedder,
		prefix:   cfg.Collection + "-" + uuid.NewString(),
	}
}

func (c *QdrantConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "pdfrag"
	}
	if c.UpsertBatch <= 0 {
		c.UpsertBatch = 256
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client exposes the underlying client for health probes.
func (q *QdrantIndex) Client() *qdrant.Client { return q.client }

// Rebuild embeds every record into a new collection generation and, once
// fully written, publishes it. The generation it replaces is retired and
// dropped by the next rebuild.
func (q *QdrantIndex) Rebuild(ctx context.Context, records []Record) error {
	q.rebuildMu.Lock()
	defer q.rebuildMu.Unlock()

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := embedAll(ctx, q.embedder, texts, q.cfg.Batch)
	if err != nil {
		return fmt.Errorf("qdrant: rebuild: %w", err)
	}

	next := &qdrantGeneration{records: slices.Clone(records)}
	if len(records) > 0 {
		next.collection = fmt.Sprintf("%s-g%d", q.prefix, q.gen.Add(1))
		if err := q.createCollection(ctx, next.collection, len(vectors[0])); err != nil {
			return fmt.Errorf("qdrant: rebuild: %w", err)
		}
		if err := q.upsertAll(ctx, next.collection, records, vectors); err != nil {
			q.dropCollection(next.collection)
			return fmt.Errorf("qdrant: rebuild: %w", err)
		}
	}

	prev := q.current.Swap(next)
	if q.retired != nil && q.retired.collection != "" {
		q.dropCollection(q.retired.collection)
	}
	q.retired = prev
	return nil
}

func (q *QdrantIndex) createCollection(ctx context.Context, collection string, dims int) error {
	err := q.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims), //nolint:gosec // dimensions are bounded
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return Upstream(fmt.Sprintf("qdrant create collection %q", collection), err)
	}
	return nil
}

// upsertAll writes every record with its vector into collection.
func (q *QdrantIndex) upsertAll(ctx context.Context, collection string, records []Record, vectors [][]float32) error {
	wait := true
	for start := 0; start < len(records); start += q.cfg.UpsertBatch {
		end := min(start+q.cfg.UpsertBatch, len(records))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			r := records[i]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.ID),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"seq":    int64(r.Seq),
					"source": r.SourceID,
				}),
			})
		}
		if _, err := q.api.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return Upstream("qdrant upsert", err)
		}
	}
	return nil
}

// Search embeds query and runs a cosine similarity search against the
// published generation.
func (q *QdrantIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	gen := q.current.Load()
	if gen == nil {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		return nil, Invalid("k must be positive, got %d", k)
	}
	if gen.collection == "" {
		return []Hit{}, nil
	}

	qv, err := embedQuery(ctx, q.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	limit := uint64(k) //nolint:gosec // k is positive
	results, err := q.api.Query(ctx, &qdrant.QueryPoints{
		CollectionName: gen.collection,
		Query:          qdrant.NewQuery(qv...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", Upstream("qdrant query", err))
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		v, ok := r.GetPayload()["seq"]
		if !ok {
			continue
		}
		seq := int(v.GetIntegerValue())
		if seq < 0 || seq >= len(gen.records) {
			continue
		}
		hits = append(hits, Hit{Record: gen.records[seq], Distance: 1 - r.GetScore()})
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.Seq, b.Record.Seq)
	})
	return hits, nil
}

// Len returns the number of records in the published generation, or -1
// before the first rebuild.
func (q *QdrantIndex) Len() int {
	gen := q.current.Load()
	if gen == nil {
		return -1
	}
	return len(gen.records)
}

// Close drops the live and retired generations and closes the gRPC
// connection. The index does not outlive the process.
func (q *QdrantIndex) Close() error {
	q.rebuildMu.Lock()
	defer q.rebuildMu.Unlock()

	for _, gen := range []*qdrantGeneration{q.current.Load(), q.retired} {
		if gen != nil && gen.collection != "" {
			q.dropCollection(gen.collection)
		}
	}
	q.retired = nil
	return q.api.Close()
}

// dropCollection deletes a collection this index created, logging rather
// than failing.
func (q *QdrantIndex) dropCollection(name string) {
	if err := q.api.DeleteCollection(context.Background(), name); err != nil {
		q.cfg.Logger.Warn("qdrant: failed to drop collection",
			slog.String("collection", name),
			slog.Any("error", err),
		)
	}
}
