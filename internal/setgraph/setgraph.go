// Package setgraph implements the set-graph candidate-generation index
// (C3): a plain HNSW graph built over every base vector, flattened across
// sequences, with per-query-vector kNN search projected back to sequence
// ids. Grounded on set_graph.h's label_to_base projection; the optional
// distance-cache mode is folded in from sos_graph.h's enable_buffer, since
// that file is otherwise a set-graph run under MAXSIM with a cache.
package setgraph

import (
	"github.com/vectorseq/vss/internal/ann"
	"github.com/vectorseq/vss/internal/dataset"
)

// Config controls how the underlying graph is built.
type Config struct {
	M              int
	EfConstruction int
	Dist           ann.DistFunc // IP for maxsim, L2Sq for dtw/sdtw
	EnableCache    bool
}

// Index wraps an ann.Index with the vid→sid projection the set-graph needs.
type Index struct {
	cfg   Config
	graph *ann.Index
	table *dataset.Table
	cache *dataset.VisitedStatus
}

// New allocates a set-graph index for a table that will be filled by Build.
func New(cfg Config) *Index {
	return &Index{cfg: cfg}
}

// Build flattens every sequence's vectors into the graph, one insert per
// global vector id (vid), with the vid's int64 external id equal to its
// position — the table's V2S/V2L arrays supply the vid→sid/lid projection.
func (idx *Index) Build(table *dataset.Table) {
	idx.table = table
	idx.graph = ann.NewWithParams(table.Dim, idx.cfg.Dist, idx.cfg.M, idx.cfg.EfConstruction, idx.cfg.EfConstruction)
	for vid, vec := range table.Vectors {
		idx.graph.Insert(int64(vid), vec)
	}
	if idx.cfg.EnableCache {
		idx.cache = dataset.NewVisitedStatus(table.NumVectors())
	}
}

// Candidates runs per-query-vector bounded kNN search and returns the
// union of sids the results project onto. When the cache is enabled, the
// (query-position, vid) distance of every returned result is recorded so
// the rerank layer can reuse it; distances the beam search computes for
// vids it does not return are not recorded.
func (idx *Index) Candidates(query [][]float32, ef int) map[int]struct{} {
	out := make(map[int]struct{})
	if idx.cache != nil {
		idx.cache.Reset(len(query))
	}
	for qLid, qVec := range query {
		results := idx.graph.SearchCandidates(qVec, ef)
		for _, r := range results {
			vid := int(r.ID)
			out[idx.table.V2S[vid]] = struct{}{}
			if idx.cache != nil {
				idx.cache.Visit(qLid, vid, r.Distance)
			}
		}
	}
	return out
}

// Cache exposes the populated distance cache for this query, or nil when
// caching is disabled. Valid only until the next call to Candidates.
func (idx *Index) Cache() *dataset.VisitedStatus {
	return idx.cache
}
