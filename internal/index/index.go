// Package index is an in-process similarity index over chunk vectors,
// backed by an HNSW graph with a metadata side table.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/abelbrown/prism/internal/embed"
	"github.com/abelbrown/prism/internal/logging"
)

// Metadata is stored alongside each vector.
type Metadata struct {
	ArticleID   string
	ChunkID     string
	Text        string // first 500 chars of the chunk
	Source      string
	PublishedAt *time.Time
}

// Vector is one entry to upsert.
type Vector struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is a query hit. Score is cosine similarity.
type Match struct {
	ID       string
	Score    float32
	Values   []float32
	Metadata Metadata
}

// Filter selects entries by metadata. A nil Filter matches everything.
type Filter func(Metadata) bool

// ArticleFilter matches chunks owned by any of the given articles.
func ArticleFilter(articleIDs []string) Filter {
	set := make(map[string]struct{}, len(articleIDs))
	for _, id := range articleIDs {
		set[id] = struct{}{}
	}
	return func(m Metadata) bool {
		_, ok := set[m.ArticleID]
		return ok
	}
}

// HNSW is a concurrency-safe vector index.
type HNSW struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	meta  map[string]Metadata
	dim   int
}

// New creates an empty index. dim fixes the vector width; 0 takes the
// width of the first upserted vector.
func New(dim int) *HNSW {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64

	return &HNSW{
		graph: g,
		meta:  make(map[string]Metadata),
		dim:   dim,
	}
}

// Len returns the number of stored vectors.
func (x *HNSW) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.meta)
}

// Upsert inserts or replaces vectors.
func (x *HNSW) Upsert(ctx context.Context, vectors []Vector) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Error("HNSW panic recovered in Upsert", "error", r)
			err = fmt.Errorf("index: upsert panicked: %v", r)
		}
	}()

	for _, v := range vectors {
		if len(v.Values) == 0 {
			return fmt.Errorf("index: empty vector for %s", v.ID)
		}
		if x.dim == 0 {
			x.dim = len(v.Values)
		}
		if len(v.Values) != x.dim {
			return fmt.Errorf("index: vector %s has dimension %d, want %d", v.ID, len(v.Values), x.dim)
		}
	}

	for _, v := range vectors {
		if _, exists := x.meta[v.ID]; exists {
			x.graph.Delete(v.ID)
		}
		x.graph.Add(hnsw.MakeNode(v.ID, v.Values))
		x.meta[v.ID] = v.Metadata
	}
	return nil
}

// Query returns up to topK entries passing filter, most similar first.
func (x *HNSW) Query(ctx context.Context, vec []float32, topK int, filter Filter) (matches []Match, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.meta) == 0 {
		return nil, nil
	}
	if len(vec) != x.dim {
		return nil, fmt.Errorf("index: query has dimension %d, want %d", len(vec), x.dim)
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("HNSW panic recovered in Query", "error", r)
			matches, err = nil, fmt.Errorf("index: query panicked: %v", r)
		}
	}()

	// Widen the search until enough filtered hits survive or the whole
	// graph has been seen.
	k := min(topK*4, len(x.meta))
	for {
		matches = matches[:0]
		for _, n := range x.graph.Search(vec, k) {
			m, ok := x.meta[n.Key]
			if !ok || (filter != nil && !filter(m)) {
				continue
			}
			matches = append(matches, Match{
				ID:       n.Key,
				Score:    embed.CosineSimilarity(vec, n.Value),
				Values:   n.Value,
				Metadata: m,
			})
		}
		if len(matches) >= topK || k >= len(x.meta) {
			break
		}
		k = min(k*2, len(x.meta))
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes vectors by ID. Unknown IDs are ignored.
func (x *HNSW) Delete(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.deleteLocked(ids)
	return nil
}

// DeleteWhere removes every vector whose metadata passes filter and
// returns how many were removed.
func (x *HNSW) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if filter == nil {
		return 0, fmt.Errorf("index: DeleteWhere needs a filter")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var ids []string
	for id, m := range x.meta {
		if filter(m) {
			ids = append(ids, id)
		}
	}
	x.deleteLocked(ids)
	return len(ids), nil
}

// deleteLocked removes ids. Caller must hold x.mu for writing.
func (x *HNSW) deleteLocked(ids []string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("HNSW panic recovered in Delete", "error", r)
		}
	}()
	for _, id := range ids {
		if _, ok := x.meta[id]; !ok {
			continue
		}
		x.graph.Delete(id)
		delete(x.meta, id)
	}
}
