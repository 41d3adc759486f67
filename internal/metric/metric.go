// Package metric implements the similarity kernels the engine ranks
// candidates with: MAXSIM, DTW and subsequence DTW over sequences of
// vectors, plus the local per-vector costs (L2 and inner product) they are
// built from. The recurrences are transcribed from the reference
// implementation's metric.h; there is no vector-math library anywhere in
// the retrieved corpus, so these stay plain Go loops over []float32.
package metric

import "math"

// L2Sq returns the squared Euclidean distance between a and b. Lower is
// closer. Mismatched lengths return +Inf rather than panicking, since a
// caller comparing vectors from two different datasets is a config error,
// not a crash.
func L2Sq(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// IP returns the negated inner product of a and b, so that lower still
// means closer.
func IP(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return -dot
}

// LocalCost is the per-vector-pair cost DTW/SDTW/MAXSIM are built from.
type LocalCost func(a, b []float32) float32

// MaxSim sums, for every vector in seq1, the minimum cost to any vector in
// seq2. It is order-invariant in seq2 and asymmetric in general (MaxSim(A,
// B) need not equal MaxSim(B, A)).
func MaxSim(seq1, seq2 [][]float32, cost LocalCost) float32 {
	var sum float32
	for _, v1 := range seq1 {
		best := float32(math.Inf(1))
		for _, v2 := range seq2 {
			if c := cost(v1, v2); c < best {
				best = c
			}
		}
		sum += best
	}
	return sum
}

// DTW computes the full dynamic-time-warping distance between seq1 and
// seq2: the cheapest monotone alignment that consumes every vector of both
// sequences, anchored at both ends.
func DTW(seq1, seq2 [][]float32, cost LocalCost) float32 {
	len1, len2 := len(seq1), len(seq2)
	inf := float32(math.Inf(1))
	pre := make([]float32, len2+1)
	cur := make([]float32, len2+1)
	for j := range pre {
		pre[j] = inf
	}
	pre[0] = 0

	for i := 1; i <= len1; i++ {
		cur[0] = inf
		v1 := seq1[i-1]
		for j := 1; j <= len2; j++ {
			c := cost(v1, seq2[j-1])
			cur[j] = c + min3(pre[j], cur[j-1], pre[j-1])
		}
		pre, cur = cur, pre
	}
	return pre[len2]
}

// SDTW computes subsequence DTW: the cheapest monotone alignment of any
// contiguous run of seq1 against any contiguous run of seq2. Both the row
// (seq1) and column (seq2) boundaries are pinned to zero, so an alignment
// may start and end anywhere in either sequence; the result is the minimum
// accumulated cost over the whole table, not just its last row. This is
// what lets a short, salient fragment of a query match tightly against a
// longer base sequence, or vice versa.
func SDTW(seq1, seq2 [][]float32, cost LocalCost) float32 {
	len1, len2 := len(seq1), len(seq2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	pre := make([]float32, len2+1) // zero-initialized: free start on both axes
	cur := make([]float32, len2+1)
	best := float32(math.Inf(1))

	for i := 1; i <= len1; i++ {
		cur[0] = 0
		v1 := seq1[i-1]
		for j := 1; j <= len2; j++ {
			c := cost(v1, seq2[j-1])
			cur[j] = c + min3(pre[j], cur[j-1], pre[j-1])
			if cur[j] < best {
				best = cur[j]
			}
		}
		pre, cur = cur, pre
	}
	return best
}

// Matrix is a pre-computed q_len x b_len local-cost table, flattened
// row-major with stride Stride >= b_len. The DP kernels below read a
// single row at a time, matching seq_graph.h's fill_dist_matrix layout.
type Matrix struct {
	Data   []float32
	Stride int
	QLen   int
	BLen   int
}

func (m Matrix) row(i int) []float32 {
	off := i * m.Stride
	return m.Data[off : off+m.BLen]
}

// MaxSimFromMatrix is MaxSim computed against a pre-filled cost matrix
// instead of calling the local cost function directly.
func MaxSimFromMatrix(m Matrix) float32 {
	var sum float32
	for i := 0; i < m.QLen; i++ {
		row := m.row(i)
		best := float32(math.Inf(1))
		for _, c := range row {
			if c < best {
				best = c
			}
		}
		sum += best
	}
	return sum
}

// DTWFromMatrix is DTW computed against a pre-filled cost matrix.
func DTWFromMatrix(m Matrix) float32 {
	inf := float32(math.Inf(1))
	pre := make([]float32, m.BLen+1)
	cur := make([]float32, m.BLen+1)
	for j := range pre {
		pre[j] = inf
	}
	pre[0] = 0

	for i := 0; i < m.QLen; i++ {
		cur[0] = inf
		row := m.row(i)
		for j := 1; j <= m.BLen; j++ {
			cur[j] = row[j-1] + min3(pre[j], cur[j-1], pre[j-1])
		}
		pre, cur = cur, pre
	}
	return pre[m.BLen]
}

// SDTWFromMatrix is SDTW computed against a pre-filled cost matrix.
func SDTWFromMatrix(m Matrix) float32 {
	if m.QLen == 0 || m.BLen == 0 {
		return 0
	}
	pre := make([]float32, m.BLen+1)
	cur := make([]float32, m.BLen+1)
	best := float32(math.Inf(1))

	for i := 0; i < m.QLen; i++ {
		cur[0] = 0
		row := m.row(i)
		for j := 1; j <= m.BLen; j++ {
			cur[j] = row[j-1] + min3(pre[j], cur[j-1], pre[j-1])
			if cur[j] < best {
				best = cur[j]
			}
		}
		pre, cur = cur, pre
	}
	return best
}

func min3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
