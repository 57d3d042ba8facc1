// Package cluster groups articles about the same story by density
// clustering their most query-relevant chunk vectors.
package cluster

import (
	"context"
	"fmt"

	"github.com/abelbrown/prism/internal/embed"
	"github.com/abelbrown/prism/internal/index"
	"github.com/abelbrown/prism/internal/logging"
)

// Searcher is the similarity index as the engine needs it.
type Searcher interface {
	Query(ctx context.Context, vec []float32, topK int, filter index.Filter) ([]index.Match, error)
}

// Engine clusters articles through the index.
type Engine struct {
	embedder   embed.Embedder
	index      Searcher
	eps        float64
	minSamples int
}

// NewEngine returns an Engine using cosine DBSCAN with the given eps and
// minSamples.
func NewEngine(embedder embed.Embedder, idx Searcher, eps float64, minSamples int) *Engine {
	return &Engine{embedder: embedder, index: idx, eps: eps, minSamples: minSamples}
}

// Cluster maps labels to article IDs. Each article is represented by its
// chunk closest to query; articles with no indexed chunk are left out.
// Labeled points go to "cluster_<n>", noise to "cluster_noise_<i>" where i
// is the point's position among representatives. With fewer than two
// representatives every input article lands in "cluster_0".
func (e *Engine) Cluster(ctx context.Context, query string, articleIDs []string) (map[string][]string, error) {
	if len(articleIDs) == 0 {
		return map[string][]string{}, nil
	}

	qvec, err := embed.Query(ctx, e.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := e.index.Query(ctx, qvec, 2*len(articleIDs), index.ArticleFilter(articleIDs))
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	ids, points := representatives(articleIDs, matches)
	if len(points) < 2 {
		logging.Debug("too few representatives, single cluster", "articles", len(articleIDs), "representatives", len(points))
		return map[string][]string{"cluster_0": append([]string(nil), articleIDs...)}, nil
	}

	labels := DBSCAN(points, e.eps, e.minSamples)
	groups := make(map[string][]string)
	for i, l := range labels {
		key := fmt.Sprintf("cluster_%d", l)
		if l == Noise {
			key = fmt.Sprintf("cluster_noise_%d", i)
		}
		groups[key] = append(groups[key], ids[i])
	}
	logging.Debug("clustered", "articles", len(articleIDs), "representatives", len(points), "groups", len(groups))
	return groups, nil
}

// representatives picks the highest-scoring match per article, the
// lowest vector ID on a tie, and returns them in articleIDs order.
func representatives(articleIDs []string, matches []index.Match) ([]string, [][]float32) {
	best := make(map[string]index.Match)
	for _, m := range matches {
		cur, ok := best[m.Metadata.ArticleID]
		if !ok || m.Score > cur.Score || (m.Score == cur.Score && m.ID < cur.ID) {
			best[m.Metadata.ArticleID] = m
		}
	}

	var ids []string
	var points [][]float32
	seen := make(map[string]bool, len(articleIDs))
	for _, id := range articleIDs {
		m, ok := best[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		points = append(points, m.Values)
	}
	return ids, points
}
