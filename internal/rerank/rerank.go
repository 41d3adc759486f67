// Package rerank implements the exact-metric scoring layer (C5): given a
// candidate sid set from set-graph or sequence-graph search, it computes
// the full sequence-level metric for each candidate and keeps a bounded
// max-heap of the k best, optionally reusing pairwise L2 distances the
// candidate-generation phase already cached in a dataset.VisitedStatus.
//
// Grounded on sos_graph.h's maxsim_from_matrix (cache-aware rerank path)
// and seq_graph.h's fill_dist_matrix/rerank.
package rerank

import (
	"container/heap"

	"github.com/vectorseq/vss/internal/dataset"
	"github.com/vectorseq/vss/internal/metric"
)

// Metric is the sequence-level scoring function run when no cache entry is
// available (or caching is disabled entirely).
type Metric func(seq1, seq2 [][]float32, cost metric.LocalCost) float32

// FromMatrix is the cache-aware counterpart of Metric, run against a
// pre-filled pairwise cost matrix.
type FromMatrix func(m metric.Matrix) float32

// Scored pairs a candidate sid with its computed distance (lower is
// better).
type Scored struct {
	Dist float32
	Sid  int
}

// scoredHeap is a bounded max-heap on Dist: the worst of the current top-k
// sits at the root, ready to be evicted when a closer candidate arrives.
type scoredHeap []Scored

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Dist > h[j].Dist }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(Scored)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Stats are the best-effort cache counters spec.md §4.6 exposes as
// buffer_hit/buffer_tot.
type Stats struct {
	BufferHit int64
	BufferTot int64
}

// Rerank scores every candidate sid against query under cost/seqMetric,
// returning the top-k (Dist, Sid) pairs in no particular order (callers
// that need them sorted should drain the heap themselves). cache may be
// nil, in which case every candidate is scored by the direct Metric.
func Rerank(
	candidates map[int]struct{},
	query [][]float32,
	table *dataset.Table,
	k int,
	cost metric.LocalCost,
	seqMetric Metric,
	fromMatrix FromMatrix,
	cache *dataset.VisitedStatus,
) ([]Scored, Stats) {
	var stats Stats
	h := &scoredHeap{}
	heap.Init(h)

	for sid := range candidates {
		var dist float32
		if cache != nil {
			base := table.SeqOff[sid]
			blen := table.SeqLen[sid]
			m := buildMatrix(query, table, cache, base, blen, cost, &stats)
			dist = fromMatrix(m)
		} else {
			dist = seqMetric(query, table.Sequence(sid), cost)
		}

		heap.Push(h, Scored{Dist: dist, Sid: sid})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	return *h, stats
}

// buildMatrix fills a q_len x b_len local-cost block for sequence sid,
// consulting cache for any (q_lid, vid) pair candidate generation already
// visited and computing the rest directly, exactly as seq_graph.h's
// fill_dist_matrix/sos_graph.h's maxsim_from_matrix do.
func buildMatrix(query [][]float32, table *dataset.Table, cache *dataset.VisitedStatus, base, blen int, cost metric.LocalCost, stats *Stats) metric.Matrix {
	qLen := len(query)
	data := make([]float32, qLen*blen)
	for i := 0; i < qLen; i++ {
		row := data[i*blen : i*blen+blen]
		for j := 0; j < blen; j++ {
			vid := base + j
			if cache.IsVisited(i, vid) {
				row[j] = cache.Dist(i, vid)
				stats.BufferHit++
			} else {
				row[j] = cost(query[i], table.Vectors[vid])
			}
		}
	}
	stats.BufferTot += int64(qLen * blen)
	return metric.Matrix{Data: data, Stride: blen, QLen: qLen, BLen: blen}
}
