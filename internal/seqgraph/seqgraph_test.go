package seqgraph

import (
	"math/rand"
	"testing"

	"github.com/vectorseq/vss/internal/dataset"
	"github.com/vectorseq/vss/internal/metric"
)

func randVec(dims int, rng *rand.Rand) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}

func buildTable(t *testing.T, nSeq, seqLen, dims int, rng *rand.Rand) *dataset.Table {
	t.Helper()
	var vectors [][]float32
	lens := make([]int, nSeq)
	for s := 0; s < nSeq; s++ {
		lens[s] = seqLen
		for i := 0; i < seqLen; i++ {
			vectors = append(vectors, randVec(dims, rng))
		}
	}
	tbl, err := dataset.NewTable(vectors, lens)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestCandidates_ReturnsNonEmptySet(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tbl := buildTable(t, 30, 6, 8, rng)

	idx := New(Config{M: 8, EfConstruction: 50})
	idx.Build(tbl)

	query := [][]float32{randVec(8, rng), randVec(8, rng), randVec(8, rng)}
	cands := idx.Candidates(query, 20)
	if len(cands) == 0 {
		t.Fatal("expected a non-empty candidate set")
	}
	for sid := range cands {
		if sid < 0 || sid >= tbl.NumSequences() {
			t.Errorf("candidate sid %d out of range", sid)
		}
	}
}

func TestCandidates_SingleQueryVector(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	tbl := buildTable(t, 10, 4, 6, rng)

	idx := New(Config{M: 6, EfConstruction: 40})
	idx.Build(tbl)

	cands := idx.Candidates([][]float32{randVec(6, rng)}, 5)
	if len(cands) == 0 {
		t.Fatal("expected non-empty candidates for a length-1 query")
	}
}

func TestCandidates_UnlinkSameSeq_NoLayer0SelfEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	tbl := buildTable(t, 15, 6, 8, rng)

	idx := New(Config{M: 8, EfConstruction: 60, UnlinkSameSeq: true, ShuffleInsertOrder: true, Seed: 100})
	idx.Build(tbl)

	for vid := 0; vid < tbl.NumVectors(); vid++ {
		for _, n := range idx.graph.Neighbors(int64(vid)) {
			if tbl.V2S[vid] == tbl.V2S[int(n)] {
				t.Fatalf("vid %d has same-sequence layer-0 neighbor %d under UnlinkSameSeq", vid, n)
			}
		}
	}
}

func TestCandidates_CacheRecordsDistances(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	tbl := buildTable(t, 12, 5, 6, rng)

	idx := New(Config{M: 6, EfConstruction: 40, EnableCache: true})
	idx.Build(tbl)

	query := [][]float32{randVec(6, rng), randVec(6, rng)}
	idx.Candidates(query, 10)

	cache := idx.Cache()
	if cache == nil {
		t.Fatal("expected cache to be populated when EnableCache is set")
	}
	// the DP walk always starts at the descended entry vid with q_lid=0, so
	// that slot must hold its local L2² distance.
	epID, _ := idx.graph.DescendEntry(query[0])
	ep := int(epID)
	if !cache.IsVisited(0, ep) {
		t.Fatalf("entry vid %d not recorded at q_lid=0", ep)
	}
	if got, want := cache.Dist(0, ep), metric.L2Sq(query[0], tbl.Vectors[ep]); got != want {
		t.Errorf("cached Dist(0, %d) = %f, want %f", ep, got, want)
	}
}

func TestCandidates_Metrics_Accumulate(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tbl := buildTable(t, 10, 5, 6, rng)

	idx := New(Config{M: 6, EfConstruction: 40})
	idx.Build(tbl)

	idx.Candidates([][]float32{randVec(6, rng), randVec(6, rng)}, 10)
	m := idx.Metrics()
	if m.Hops == 0 {
		t.Error("expected non-zero hops after a search")
	}
	if m.DistComps == 0 {
		t.Error("expected non-zero dist_comps after a search")
	}

	idx.ResetMetrics()
	if m2 := idx.Metrics(); m2.Hops != 0 || m2.DistComps != 0 {
		t.Errorf("ResetMetrics did not zero counters: %+v", m2)
	}
}
