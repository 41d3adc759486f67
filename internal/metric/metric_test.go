package metric

import "testing"

func approxEqual(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-4
}

func TestL2Sq(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float32
	}{
		{[]float32{0, 0}, []float32{0, 0}, 0},
		{[]float32{1, 0}, []float32{0, 1}, 2},
		{[]float32{5, 0}, []float32{0, 0}, 25},
	}
	for _, tt := range tests {
		if got := L2Sq(tt.a, tt.b); !approxEqual(got, tt.want) {
			t.Errorf("L2Sq(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDTW_Identity(t *testing.T) {
	seq := [][]float32{{0, 0}, {1, 0}}
	if got := DTW(seq, seq, L2Sq); !approxEqual(got, 0) {
		t.Errorf("DTW(Q, Q) = %f, want 0", got)
	}
}

func TestDTW_Symmetry(t *testing.T) {
	a := [][]float32{{0, 0}, {1, 0}, {2, 1}}
	b := [][]float32{{0, 1}, {1, 1}}
	if got1, got2 := DTW(a, b, L2Sq), DTW(b, a, L2Sq); !approxEqual(got1, got2) {
		t.Errorf("DTW not symmetric: DTW(a,b)=%f, DTW(b,a)=%f", got1, got2)
	}
}

func TestMaxSim_OrderInvariant(t *testing.T) {
	q := [][]float32{{1, 0}, {0, 1}}
	b1 := [][]float32{{1, 0}, {0, 1}}
	b2 := [][]float32{{0, 1}, {1, 0}}
	if got1, got2 := MaxSim(q, b1, L2Sq), MaxSim(q, b2, L2Sq); !approxEqual(got1, got2) {
		t.Errorf("MaxSim should be invariant to base order: %f vs %f", got1, got2)
	}
}

// Worked scenario: Q = [(5,0),(0,0),(1,0)], B = [(0,0),(1,0)] under squared L2.
// dtw(Q,B) follows the path q1-b1 (25), q2-b1 (0, insertion), q3-b2 (0,
// diagonal) for a total of 25. sdtw(Q,B) allows both ends of both
// sequences to float, so the alignment can collapse onto the zero-cost
// q2-b1 / q3-b2 pair alone and score 0.
func TestDTWAndSDTW_WorkedScenario(t *testing.T) {
	q := [][]float32{{5, 0}, {0, 0}, {1, 0}}
	b := [][]float32{{0, 0}, {1, 0}}

	if got := DTW(q, b, L2Sq); !approxEqual(got, 25) {
		t.Errorf("DTW(Q,B) = %f, want 25", got)
	}
	if got := SDTW(q, b, L2Sq); !approxEqual(got, 0) {
		t.Errorf("SDTW(Q,B) = %f, want 0", got)
	}
}

func TestSDTW_EmptyInputs(t *testing.T) {
	if got := SDTW(nil, [][]float32{{0, 0}}, L2Sq); got != 0 {
		t.Errorf("SDTW with empty query = %f, want 0", got)
	}
	if got := SDTW([][]float32{{0, 0}}, nil, L2Sq); got != 0 {
		t.Errorf("SDTW with empty base = %f, want 0", got)
	}
}

func buildMatrix(q, b [][]float32, cost LocalCost) Matrix {
	m := Matrix{Data: make([]float32, len(q)*len(b)), Stride: len(b), QLen: len(q), BLen: len(b)}
	for i, qv := range q {
		for j, bv := range b {
			m.Data[i*m.Stride+j] = cost(qv, bv)
		}
	}
	return m
}

func TestFromMatrix_MatchesDirect(t *testing.T) {
	q := [][]float32{{5, 0}, {0, 0}, {1, 0}, {2, 2}}
	b := [][]float32{{0, 0}, {1, 0}, {3, 1}}
	m := buildMatrix(q, b, L2Sq)

	if direct, viaMatrix := MaxSim(q, b, L2Sq), MaxSimFromMatrix(m); !approxEqual(direct, viaMatrix) {
		t.Errorf("MaxSim direct=%f, from-matrix=%f", direct, viaMatrix)
	}
	if direct, viaMatrix := DTW(q, b, L2Sq), DTWFromMatrix(m); !approxEqual(direct, viaMatrix) {
		t.Errorf("DTW direct=%f, from-matrix=%f", direct, viaMatrix)
	}
	if direct, viaMatrix := SDTW(q, b, L2Sq), SDTWFromMatrix(m); !approxEqual(direct, viaMatrix) {
		t.Errorf("SDTW direct=%f, from-matrix=%f", direct, viaMatrix)
	}
}

func TestIP(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	if got := IP(a, b); !approxEqual(got, -1) {
		t.Errorf("IP(a,a) = %f, want -1 (-dot)", got)
	}
	orth := []float32{0, 1}
	if got := IP(a, orth); !approxEqual(got, 0) {
		t.Errorf("IP(a,orth) = %f, want 0", got)
	}
}
