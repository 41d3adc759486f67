package dataset

// VisitedStatus is a generation-tagged scratch table indexed by
// (query-local-position, vector-id), doubling as both the sequence-graph
// DP search's "have I expanded this state" check and the rerank layer's
// pairwise-distance cache. Reusing a single tag byte per slot instead of
// a fresh map/bitset per query avoids an O(vecNum*qLen) clear on every
// call: Reset just bumps the generation counter, and a slot only reads as
// "visited" if its stored tag matches the current generation.
//
// Grounded on seq_graph.h's VisitedStatus, which keeps a uint8 generation
// per slot and only memsets on the (rare) wraparound back to zero.
type VisitedStatus struct {
	vecNum int
	maxLen int
	gen    uint8
	tag    []uint8
	buffer []float32
}

// NewVisitedStatus allocates a cache sized for vecNum vectors; the
// query-length dimension grows lazily on Reset.
func NewVisitedStatus(vecNum int) *VisitedStatus {
	return &VisitedStatus{vecNum: vecNum}
}

// Reset starts a new query of the given length, invalidating every slot
// from the previous query. Growing qLen beyond any previously seen length
// reallocates the backing arrays; the generation counter only resets to 1
// (forcing a full clear) when it wraps past 255.
func (v *VisitedStatus) Reset(qLen int) {
	if qLen > v.maxLen {
		v.maxLen = qLen
		v.tag = make([]uint8, v.vecNum*v.maxLen)
		v.buffer = make([]float32, v.vecNum*v.maxLen)
		v.gen = 0
	}
	v.gen++
	if v.gen == 0 {
		for i := range v.tag {
			v.tag[i] = 0
		}
		v.gen = 1
	}
}

func (v *VisitedStatus) index(qLid, vid int) int {
	return qLid*v.vecNum + vid
}

// IsVisited reports whether (qLid, vid) was marked in the current generation.
func (v *VisitedStatus) IsVisited(qLid, vid int) bool {
	return v.tag[v.index(qLid, vid)] == v.gen
}

// Visit marks (qLid, vid) visited in the current generation and caches dist.
func (v *VisitedStatus) Visit(qLid, vid int, dist float32) {
	i := v.index(qLid, vid)
	v.tag[i] = v.gen
	v.buffer[i] = dist
}

// Dist returns the cached distance for (qLid, vid). Only valid when
// IsVisited(qLid, vid) is true.
func (v *VisitedStatus) Dist(qLid, vid int) float32 {
	return v.buffer[v.index(qLid, vid)]
}
