package rag

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// storedChunk is the per-chunk row held by DocumentStore. The summary is not
// duplicated here: it lives once per ingestion and is joined on read.
type storedChunk struct {
	// id is the deterministic record UUID.
	id string
	// text is the chunk content.
	text string
	// ingestion indexes DocumentStore.ingestions.
	ingestion int
}

// ingestionMeta holds the document-level metadata shared by every chunk of
// one ingestion event.
type ingestionMeta struct {
	sourceID string
	summary  string
}

// SourceInfo describes one source identifier known to the store.
type SourceInfo struct {
	// SourceID is the path or URL.
	SourceID string
	// Chunks is the number of records carrying this source identifier.
	Chunks int
	// Ingestions is how many ingestions of the source contributed chunks.
	Ingestions int
}

// DocumentStore is the append-only, ordered sequence of chunk records that
// the vector index is rebuilt from. There is no delete: the store only grows.
// It is safe for concurrent use, but two writers must be serialised by the
// caller for Prepare/Commit to succeed.
type DocumentStore struct {
	mu         sync.RWMutex
	chunks     []storedChunk
	ingestions []ingestionMeta
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// Pending is a staged append produced by Prepare. It exposes the full record
// sequence the store would contain after Commit, so the index can be rebuilt
// before anything becomes visible in the store.
type Pending struct {
	baseChunks     int
	baseIngestions int
	meta           ingestionMeta
	added          []storedChunk
	records        []Record
}

// Records returns every record the store will hold once p is committed:
// the current contents followed by the staged batch, in insertion order.
func (p *Pending) Records() []Record { return p.records }

// Added returns the number of chunks staged by this batch.
func (p *Pending) Added() int { return len(p.added) }

// Prepare stages one ingestion batch without mutating the store.
// sourceID must be non-empty.
func (s *DocumentStore) Prepare(chunks []string, sourceID, summary string) (*Pending, error) {
	if sourceID == "" {
		return nil, Invalid("source identifier is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Pending{
		baseChunks:     len(s.chunks),
		baseIngestions: len(s.ingestions),
		meta:           ingestionMeta{sourceID: sourceID, summary: summary},
		added:          make([]storedChunk, 0, len(chunks)),
	}
	for i, text := range chunks {
		p.added = append(p.added, storedChunk{
			id:        recordID(sourceID, p.baseIngestions, i),
			text:      text,
			ingestion: p.baseIngestions,
		})
	}

	p.records = make([]Record, 0, len(s.chunks)+len(p.added))
	p.records = append(p.records, s.recordsLocked()...)
	for i, c := range p.added {
		p.records = append(p.records, Record{
			ID:       c.id,
			Seq:      p.baseChunks + i,
			Text:     c.text,
			SourceID: sourceID,
			Summary:  summary,
		})
	}
	return p, nil
}

// Commit makes a staged batch visible. It fails if the store was modified
// after p was prepared. A batch without chunks leaves no trace: the source
// is not listed by Sources until it contributes text.
func (s *DocumentStore) Commit(p *Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) != p.baseChunks || len(s.ingestions) != p.baseIngestions {
		return fmt.Errorf("rag: document store changed since batch was prepared (concurrent ingestion)")
	}
	if len(p.added) == 0 {
		return nil
	}
	s.ingestions = append(s.ingestions, p.meta)
	s.chunks = append(s.chunks, p.added...)
	return nil
}

// Append adds one record per chunk text, all tagged with sourceID and
// summary, as a single batch: either every chunk appears or none do.
func (s *DocumentStore) Append(chunks []string, sourceID, summary string) error {
	p, err := s.Prepare(chunks, sourceID, summary)
	if err != nil {
		return err
	}
	return s.Commit(p)
}

// All returns the full store contents in insertion order.
func (s *DocumentStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsLocked()
}

// BySource returns the records whose SourceID equals sourceID exactly,
// in insertion order. Unknown sources yield an empty slice.
func (s *DocumentStore) BySource(sourceID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for i, c := range s.chunks {
		meta := s.ingestions[c.ingestion]
		if meta.sourceID != sourceID {
			continue
		}
		out = append(out, s.record(i, c))
	}
	return out
}

// Len returns the number of records in the store.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Sources lists every source identifier in order of first ingestion.
func (s *DocumentStore) Sources() []SourceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := make(map[string]int)
	var out []SourceInfo
	for _, m := range s.ingestions {
		i, ok := pos[m.sourceID]
		if !ok {
			i = len(out)
			pos[m.sourceID] = i
			out = append(out, SourceInfo{SourceID: m.sourceID})
		}
		out[i].Ingestions++
	}
	for _, c := range s.chunks {
		out[pos[s.ingestions[c.ingestion].sourceID]].Chunks++
	}
	return out
}

// recordsLocked materialises every record. Caller must hold s.mu.
func (s *DocumentStore) recordsLocked() []Record {
	out := make([]Record, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = s.record(i, c)
	}
	return out
}

// record joins a stored chunk with its ingestion metadata.
func (s *DocumentStore) record(seq int, c storedChunk) Record {
	meta := s.ingestions[c.ingestion]
	return Record{
		ID:       c.id,
		Seq:      seq,
		Text:     c.text,
		SourceID: meta.sourceID,
		Summary:  meta.summary,
	}
}

// recordID derives a stable UUIDv5 for the chunk at position within the
// given ingestion of sourceID.
func recordID(sourceID string, ingestion, position int) string {
	name := fmt.Sprintf("%s#%d#%d", sourceID, ingestion, position)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
