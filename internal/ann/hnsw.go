// Package ann provides the proximity-graph core shared by the set-graph
// and sequence-graph indexes: an in-memory HNSW (Hierarchical Navigable
// Small World) graph, following the algorithm from Malkov & Yashunin (2018):
// "Efficient and robust approximate nearest neighbor using Hierarchical
// Navigable Small World graphs" — https://arxiv.org/abs/1603.09320
//
// This is a pure Go implementation with zero CGO dependencies. Unlike a
// single-metric ANN index, the graph here is built and searched with a
// caller-supplied DistFunc, and neighbor selection can be constrained with
// a LinkHook, so the same graph machinery serves both per-vector IP/L2²
// search and the sequence-graph's layer-0 edges.
package ann

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// DistFunc computes a distance between two vectors. Lower is closer.
// It must be consistent (same ordering) across a single index's lifetime.
type DistFunc func(a, b []float32) float32

// LinkHook is consulted during neighbor selection and pruning. It returns
// false to forbid a link between node p and candidate neighbor. Passing a
// nil hook allows all links.
type LinkHook func(p, candidate int64) bool

// Index is an in-memory HNSW index for approximate nearest neighbor search.
type Index struct {
	mu         sync.RWMutex
	nodes      []node
	idToIdx    map[int64]int // external ID → node index
	entryPoint int           // index of entry point node (-1 if empty)
	maxLevel   int           // current max level in the graph
	dims       int           // vector dimensionality

	Dist DistFunc // distance function; nil-checked at construction
	Link LinkHook // optional link constraint; nil means unconstrained

	// Tuning parameters
	M              int     // max connections per layer (default: 16)
	Mmax0          int     // max connections for layer 0 (default: 2*M)
	EfConstruction int     // build-time beam width (default: 200)
	EfSearch       int     // search-time beam width (default: 50)
	LevelMult      float64 // level generation multiplier: 1/ln(M)

	rng *rand.Rand
}

// node represents a single vector in the HNSW graph.
type node struct {
	id      int64     // external ID
	vector  []float32 // the vector itself
	friends [][]int   // friends[layer] = neighbor node indices
	level   int       // max level for this node
}

// Result represents a search result with distance.
type Result struct {
	ID       int64
	Distance float32
}

// candidate is an entry in a beam-search heap.
type candidate struct {
	idx  int
	dist float32
}

// nearHeap is a min-heap by distance (closest first); used as the frontier.
type nearHeap []candidate

func (h nearHeap) Len() int            { return len(h) }
func (h nearHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h nearHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nearHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *nearHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// farHeap is a max-heap by distance (farthest first); used to bound the
// result set to its ef worst-case member for O(log ef) eviction.
type farHeap []candidate

func (h farHeap) Len() int            { return len(h) }
func (h farHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h farHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *farHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *farHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// DefaultM is the default max connections per layer.
const DefaultM = 16

// DefaultEfConstruction is the default build-time beam width.
const DefaultEfConstruction = 200

// DefaultEfSearch is the default search-time beam width.
const DefaultEfSearch = 50

// New creates a new HNSW index with the given vector dimensionality and
// distance function.
func New(dims int, dist DistFunc) *Index {
	return NewWithParams(dims, dist, DefaultM, DefaultEfConstruction, DefaultEfSearch)
}

// NewWithParams creates a new HNSW index with custom tuning parameters.
func NewWithParams(dims int, dist DistFunc, m, efConstruction, efSearch int) *Index {
	if m < 2 {
		m = 2
	}
	return &Index{
		dims:           dims,
		Dist:           dist,
		M:              m,
		Mmax0:          2 * m,
		EfConstruction: efConstruction,
		EfSearch:       efSearch,
		LevelMult:      1.0 / math.Log(float64(m)),
		entryPoint:     -1,
		maxLevel:       -1,
		idToIdx:        make(map[int64]int),
		rng:            rand.New(rand.NewSource(42)),
	}
}

// Len returns the number of vectors in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Has returns true if the given ID is already in the index.
func (idx *Index) Has(id int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, exists := idx.idToIdx[id]
	return exists
}

// Insert adds a vector to the index with the given external ID.
// If the ID already exists, it's a no-op.
func (idx *Index) Insert(id int64, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.idToIdx[id]; exists {
		return
	}

	nodeIdx := len(idx.nodes)
	level := idx.randomLevel()

	n := node{
		id:      id,
		vector:  vector,
		friends: make([][]int, level+1),
		level:   level,
	}

	idx.nodes = append(idx.nodes, n)
	idx.idToIdx[id] = nodeIdx

	if idx.entryPoint == -1 {
		idx.entryPoint = nodeIdx
		idx.maxLevel = level
		return
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l > level; l-- {
		ep = idx.greedyClosest(vector, ep, l)
	}

	topLayer := level
	if topLayer > idx.maxLevel {
		topLayer = idx.maxLevel
	}

	for l := topLayer; l >= 0; l-- {
		candidates := idx.searchLayer(vector, ep, idx.EfConstruction, l)

		maxConn := idx.M
		if l == 0 {
			maxConn = idx.Mmax0
		}
		neighbors := idx.selectNeighbors(nodeIdx, candidates, maxConn)

		idx.nodes[nodeIdx].friends[l] = neighbors

		for _, neighborIdx := range neighbors {
			if !idx.linkAllowed(idx.nodes[neighborIdx].id, id) {
				continue
			}
			idx.nodes[neighborIdx].friends[l] = append(idx.nodes[neighborIdx].friends[l], nodeIdx)

			if len(idx.nodes[neighborIdx].friends[l]) > maxConn {
				idx.nodes[neighborIdx].friends[l] = idx.shrinkNeighbors(
					neighborIdx, idx.nodes[neighborIdx].friends[l], maxConn,
				)
			}
		}

		if len(candidates) > 0 {
			ep = candidates[0].idx
		}
	}

	if level > idx.maxLevel {
		idx.entryPoint = nodeIdx
		idx.maxLevel = level
	}
}

// Search finds the K nearest neighbors to the query vector.
// Returns results sorted by distance (ascending — closest first).
func (idx *Index) Search(query []float32, k int) []Result {
	return idx.SearchEf(query, k, idx.EfSearch)
}

// SearchEf finds the K nearest neighbors with a custom ef (beam width).
// Higher ef = better recall but slower. ef must be >= k.
func (idx *Index) SearchEf(query []float32, k, ef int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.nodes) == 0 || idx.entryPoint == -1 {
		return nil
	}

	if ef < k {
		ef = k
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l > 0; l-- {
		ep = idx.greedyClosest(query, ep, l)
	}

	candidates := idx.searchLayer(query, ep, ef, 0)

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			ID:       idx.nodes[c.idx].id,
			Distance: c.dist,
		}
	}
	return results
}

// SearchCandidates runs a bounded layer-0 beam search and returns up to ef
// results, sorted by distance. Unlike Search/SearchEf it does not trim to a
// separate k: callers that need the whole beam (set-graph candidate
// generation) use ef for both arguments of the underlying search.
func (idx *Index) SearchCandidates(query []float32, ef int) []Result {
	return idx.SearchEf(query, ef, ef)
}

// DescendEntry greedily descends from the top-layer entry point down to
// layer 0 and returns the id reached there, without running the bounded
// layer-0 search itself. The sequence graph's DP search (§4.4) seeds its
// frontier from this vid rather than from a layer-0 beam, since its own
// search procedure replaces searchLayer entirely.
func (idx *Index) DescendEntry(query []float32) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.entryPoint == -1 {
		return 0, false
	}
	ep := idx.entryPoint
	for l := idx.maxLevel; l > 0; l-- {
		ep = idx.greedyClosest(query, ep, l)
	}
	return idx.nodes[ep].id, true
}

// Neighbors returns the layer-0 neighbor IDs of id, in the order stored.
// Used by the sequence graph to walk layer-0 graph-jump edges.
func (idx *Index) Neighbors(id int64) []int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodeIdx, ok := idx.idToIdx[id]
	if !ok {
		return nil
	}
	friends := idx.nodes[nodeIdx].friends
	if len(friends) == 0 {
		return nil
	}
	out := make([]int64, len(friends[0]))
	for i, f := range friends[0] {
		out[i] = idx.nodes[f].id
	}
	return out
}

// Vector returns the stored vector for id, or nil if absent.
func (idx *Index) Vector(id int64) []float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	nodeIdx, ok := idx.idToIdx[id]
	if !ok {
		return nil
	}
	return idx.nodes[nodeIdx].vector
}

func (idx *Index) linkAllowed(p, candidate int64) bool {
	if idx.Link == nil {
		return true
	}
	return idx.Link(p, candidate)
}

// randomLevel generates a random level from a geometric distribution.
func (idx *Index) randomLevel() int {
	r := idx.rng.Float64()
	if r == 0 {
		r = 1e-10
	}
	return int(math.Floor(-math.Log(r) * idx.LevelMult))
}

// greedyClosest finds the single closest node to query at the given layer,
// starting from entry point ep. Used for descending through upper layers.
func (idx *Index) greedyClosest(query []float32, ep int, layer int) int {
	dist := idx.Dist(query, idx.nodes[ep].vector)

	for {
		improved := false
		if layer < len(idx.nodes[ep].friends) {
			for _, friendIdx := range idx.nodes[ep].friends[layer] {
				friendDist := idx.Dist(query, idx.nodes[friendIdx].vector)
				if friendDist < dist {
					ep = friendIdx
					dist = friendDist
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return ep
}

// searchLayer performs bounded beam search at a single layer, using a
// min-heap frontier (C) and a max-heap result set (W) capped at ef, per
// the Malkov & Yashunin SEARCH-LAYER routine. Returns up to ef candidates
// sorted by distance (ascending).
func (idx *Index) searchLayer(query []float32, ep int, ef int, layer int) []candidate {
	visited := make(map[int]bool)
	visited[ep] = true

	epDist := idx.Dist(query, idx.nodes[ep].vector)

	frontier := &nearHeap{{idx: ep, dist: epDist}}
	heap.Init(frontier)

	result := &farHeap{{idx: ep, dist: epDist}}
	heap.Init(result)

	for frontier.Len() > 0 {
		closest := (*frontier)[0]
		heap.Pop(frontier)

		worst := (*result)[0]
		if closest.dist > worst.dist && result.Len() >= ef {
			break
		}

		if layer < len(idx.nodes[closest.idx].friends) {
			for _, neighborIdx := range idx.nodes[closest.idx].friends[layer] {
				if visited[neighborIdx] {
					continue
				}
				visited[neighborIdx] = true

				neighborDist := idx.Dist(query, idx.nodes[neighborIdx].vector)
				worst = (*result)[0]

				if result.Len() < ef || neighborDist < worst.dist {
					heap.Push(frontier, candidate{idx: neighborIdx, dist: neighborDist})
					heap.Push(result, candidate{idx: neighborIdx, dist: neighborDist})
					if result.Len() > ef {
						heap.Pop(result)
					}
				}
			}
		}
	}

	out := make([]candidate, result.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(result).(candidate)
	}
	return out
}

// selectNeighbors picks up to maxConn neighbors from candidates using the
// RNG (relative neighborhood graph) diversity heuristic: a candidate is
// kept only if it is closer to the inserted node than to every neighbor
// already kept, so the link set stays diverse instead of collapsing onto
// a single direction. Candidates rejected by the hook are skipped
// entirely, and if diversity alone leaves room, the closest rejects by
// distance fill remaining slots so that degree doesn't starve below
// maxConn on a sparse graph.
func (idx *Index) selectNeighbors(nodeIdx int, candidates []candidate, maxConn int) []int {
	selfID := idx.nodes[nodeIdx].id

	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].dist < sorted[j].dist })

	var selected []candidate
	var leftover []candidate

	for _, c := range sorted {
		if len(selected) >= maxConn {
			break
		}
		if !idx.linkAllowed(selfID, idx.nodes[c.idx].id) {
			continue
		}
		diverse := true
		for _, s := range selected {
			if idx.Dist(idx.nodes[c.idx].vector, idx.nodes[s.idx].vector) <= c.dist {
				diverse = false
				break
			}
		}
		if diverse {
			selected = append(selected, c)
		} else {
			leftover = append(leftover, c)
		}
	}

	for _, c := range leftover {
		if len(selected) >= maxConn {
			break
		}
		selected = append(selected, c)
	}

	neighbors := make([]int, len(selected))
	for i, c := range selected {
		neighbors[i] = c.idx
	}
	return neighbors
}

// shrinkNeighbors re-applies selectNeighbors to an over-full neighbor list
// after a reverse link pushed it past maxConn.
func (idx *Index) shrinkNeighbors(nodeIdx int, neighbors []int, maxConn int) []int {
	if len(neighbors) <= maxConn {
		return neighbors
	}
	vec := idx.nodes[nodeIdx].vector
	cands := make([]candidate, len(neighbors))
	for i, nIdx := range neighbors {
		cands[i] = candidate{idx: nIdx, dist: idx.Dist(vec, idx.nodes[nIdx].vector)}
	}
	return idx.selectNeighbors(nodeIdx, cands, maxConn)
}
