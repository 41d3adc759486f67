// Package vssindex is the index façade (C6): a uniform Build/Search/
// Metrics/ResetMetrics surface over the three index variants spec.md §4.6
// names — BruteForce, SetGraph, SeqGraph — so a caller (the CLI, a
// benchmark harness) can swap variants without caring which candidate-
// generation strategy backs a query. Grounded on index.h's VSSIndex/
// RerankIndex abstract base and baselines/brute_force.h for the trivial
// "candidate set = everything" variant spec.md's façade section names but
// never details.
package vssindex

import (
	"fmt"
	"time"

	"github.com/vectorseq/vss/internal/ann"
	"github.com/vectorseq/vss/internal/dataset"
	"github.com/vectorseq/vss/internal/metric"
	"github.com/vectorseq/vss/internal/rerank"
	"github.com/vectorseq/vss/internal/seqgraph"
	"github.com/vectorseq/vss/internal/setgraph"
)

// Metric names the similarity metric an index variant is built for.
type Metric string

const (
	MaxSim Metric = "maxsim"
	DTW    Metric = "dtw"
	SDTW   Metric = "sdtw"
)

// Counter is one named, monotonic, best-effort metric value, per spec.md
// §4.6's get_metrics/reset_metrics contract.
type Counter struct {
	Name  string
	Value int64
}

// Index is the uniform surface every variant implements.
type Index interface {
	Build(table *dataset.Table) error
	Search(query [][]float32, k, ef int) ([]rerank.Scored, error)
	Metrics() []Counter
	ResetMetrics()
}

// metricFuncs resolves a Metric name to the sequence-level scoring
// functions and the per-vector local cost it is built from.
func metricFuncs(m Metric) (rerank.Metric, rerank.FromMatrix, metric.LocalCost, error) {
	switch m {
	case MaxSim:
		return metric.MaxSim, metric.MaxSimFromMatrix, metric.IP, nil
	case DTW:
		return metric.DTW, metric.DTWFromMatrix, metric.L2Sq, nil
	case SDTW:
		return metric.SDTW, metric.SDTWFromMatrix, metric.L2Sq, nil
	default:
		return nil, nil, nil, fmt.Errorf("%q: %w", m, ErrUnknownMetric)
	}
}

// --- BruteForce -------------------------------------------------------

// BruteForce is the trivial baseline: the candidate set is every base
// sequence, so recall is always 1.0 and cost is O(S) exact metric
// evaluations per query. Grounded on baselines/brute_force.h.
type BruteForce struct {
	metric Metric
	cost   metric.LocalCost
	seq    rerank.Metric

	table     *dataset.Table
	distComps int64
}

// NewBruteForce allocates a brute-force baseline under the given metric.
func NewBruteForce(m Metric) (*BruteForce, error) {
	seq, _, cost, err := metricFuncs(m)
	if err != nil {
		return nil, err
	}
	return &BruteForce{metric: m, cost: cost, seq: seq}, nil
}

func (b *BruteForce) Build(table *dataset.Table) error {
	b.table = table
	return nil
}

func (b *BruteForce) Search(query [][]float32, k, ef int) ([]rerank.Scored, error) {
	if b.table == nil {
		return nil, ErrNotBuilt
	}
	candidates := make(map[int]struct{}, b.table.NumSequences())
	for sid := 0; sid < b.table.NumSequences(); sid++ {
		candidates[sid] = struct{}{}
		b.distComps += int64(len(query) * b.table.SeqLen[sid] * b.table.Dim)
	}
	scored, _ := rerank.Rerank(candidates, query, b.table, k, b.cost, b.seq, nil, nil)
	return scored, nil
}

func (b *BruteForce) Metrics() []Counter {
	return []Counter{{"dist_comps", b.distComps}}
}

func (b *BruteForce) ResetMetrics() { b.distComps = 0 }

// --- SetGraph -----------------------------------------------------------

// SetGraphConfig configures the HNSW-backed set-graph variant (C3).
type SetGraphConfig struct {
	M              int
	EfConstruction int
	EnableBuffer   bool
}

// SetGraph wraps internal/setgraph with the façade's Build/Search/Metrics
// contract and the rerank layer.
type SetGraph struct {
	metric     Metric
	cost       metric.LocalCost
	seqMetric  rerank.Metric
	fromMatrix rerank.FromMatrix

	idx   *setgraph.Index
	table *dataset.Table

	buffer rerank.Stats
}

// NewSetGraph allocates a set-graph index under the given metric and graph
// tuning parameters.
func NewSetGraph(m Metric, cfg SetGraphConfig) (*SetGraph, error) {
	seq, fromMatrix, cost, err := metricFuncs(m)
	if err != nil {
		return nil, err
	}
	if cfg.M < 2 {
		return nil, fmt.Errorf("M=%d: %w", cfg.M, ErrInvariant)
	}

	graphDist := ann.DistFunc(metric.L2Sq)
	if m == MaxSim {
		graphDist = metric.IP
	}

	return &SetGraph{
		metric:     m,
		cost:       cost,
		seqMetric:  seq,
		fromMatrix: fromMatrix,
		idx: setgraph.New(setgraph.Config{
			M:              cfg.M,
			EfConstruction: cfg.EfConstruction,
			Dist:           graphDist,
			EnableCache:    cfg.EnableBuffer,
		}),
	}, nil
}

func (s *SetGraph) Build(table *dataset.Table) error {
	s.table = table
	s.idx.Build(table)
	return nil
}

func (s *SetGraph) Search(query [][]float32, k, ef int) ([]rerank.Scored, error) {
	if s.table == nil {
		return nil, ErrNotBuilt
	}
	candidates := s.idx.Candidates(query, ef)
	scored, stats := rerank.Rerank(candidates, query, s.table, k, s.cost, s.seqMetric, s.fromMatrix, s.idx.Cache())
	s.buffer.BufferHit += stats.BufferHit
	s.buffer.BufferTot += stats.BufferTot
	return scored, nil
}

func (s *SetGraph) Metrics() []Counter {
	return []Counter{
		{"buffer_hit", s.buffer.BufferHit},
		{"buffer_tot", s.buffer.BufferTot},
	}
}

func (s *SetGraph) ResetMetrics() { s.buffer = rerank.Stats{} }

// --- SeqGraph -------------------------------------------------------

// SeqGraphConfig configures the DP-search sequence-graph variant (C4).
// Only DTW and SDTW are valid metrics for this variant, mirroring
// seq_graph.h's constructor assertion.
type SeqGraphConfig struct {
	M                  int
	EfConstruction     int
	UnlinkSameSeq      bool
	ShuffleInsertOrder bool
	Seed               int64
	EnableBuffer       bool
}

// SeqGraph wraps internal/seqgraph with the façade's contract, timing
// candidate generation and rerank separately per spec.md §4.6's
// cand_gen_time/rerank_time counters.
type SeqGraph struct {
	metric     Metric
	cost       metric.LocalCost
	seqMetric  rerank.Metric
	fromMatrix rerank.FromMatrix

	idx   *seqgraph.Index
	table *dataset.Table

	buffer      rerank.Stats
	candGenTime int64 // microseconds
	rerankTime  int64 // microseconds
}

// NewSeqGraph allocates a sequence-graph index under DTW or SDTW.
func NewSeqGraph(m Metric, cfg SeqGraphConfig) (*SeqGraph, error) {
	if m != DTW && m != SDTW {
		return nil, fmt.Errorf("sequence graph requires dtw or sdtw, got %q: %w", m, ErrInvariant)
	}
	seq, fromMatrix, cost, err := metricFuncs(m)
	if err != nil {
		return nil, err
	}
	if cfg.M < 2 {
		return nil, fmt.Errorf("M=%d: %w", cfg.M, ErrInvariant)
	}

	return &SeqGraph{
		metric:     m,
		cost:       cost,
		seqMetric:  seq,
		fromMatrix: fromMatrix,
		idx: seqgraph.New(seqgraph.Config{
			M:                  cfg.M,
			EfConstruction:     cfg.EfConstruction,
			UnlinkSameSeq:      cfg.UnlinkSameSeq,
			ShuffleInsertOrder: cfg.ShuffleInsertOrder,
			Seed:               cfg.Seed,
			EnableCache:        cfg.EnableBuffer,
		}),
	}, nil
}

func (s *SeqGraph) Build(table *dataset.Table) error {
	s.table = table
	s.idx.Build(table)
	return nil
}

func (s *SeqGraph) Search(query [][]float32, k, ef int) ([]rerank.Scored, error) {
	if s.table == nil {
		return nil, ErrNotBuilt
	}

	begin := time.Now()
	candidates := s.idx.Candidates(query, ef)
	mid := time.Now()
	scored, stats := rerank.Rerank(candidates, query, s.table, k, s.cost, s.seqMetric, s.fromMatrix, s.idx.Cache())
	end := time.Now()

	s.candGenTime += mid.Sub(begin).Microseconds()
	s.rerankTime += end.Sub(mid).Microseconds()
	s.buffer.BufferHit += stats.BufferHit
	s.buffer.BufferTot += stats.BufferTot

	return scored, nil
}

func (s *SeqGraph) Metrics() []Counter {
	m := s.idx.Metrics()
	return []Counter{
		{"hops", m.Hops},
		{"dist_comps", m.DistComps},
		{"buffer_hit", s.buffer.BufferHit},
		{"buffer_tot", s.buffer.BufferTot},
		{"cand_gen_time", s.candGenTime},
		{"rerank_time", s.rerankTime},
	}
}

func (s *SeqGraph) ResetMetrics() {
	s.idx.ResetMetrics()
	s.buffer = rerank.Stats{}
	s.candGenTime = 0
	s.rerankTime = 0
}
