package dataset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeFvecs(t *testing.T, path string, vectors [][]float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	for _, v := range vectors {
		if err := binary.Write(f, binary.LittleEndian, int32(len(v))); err != nil {
			t.Fatalf("write dim: %v", err)
		}
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			t.Fatalf("write vec: %v", err)
		}
	}
}

func writeLens(t *testing.T, path string, lens []int32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, lens); err != nil {
		t.Fatalf("write lens: %v", err)
	}
}

func TestReadFvecs_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.fvecs")
	want := [][]float32{{1, 2, 3}, {4, 5, 6}, {-1, 0, 0.5}}
	writeFvecs(t, path, want)

	got, err := ReadFvecs(path, 3)
	if err != nil {
		t.Fatalf("ReadFvecs: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d vectors, want %d", len(got), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("vector %d[%d] = %f, want %f", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestReadFvecs_DimMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.fvecs")
	writeFvecs(t, path, [][]float32{{1, 2, 3}})

	if _, err := ReadFvecs(path, 4); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestReadLens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.lens")
	writeLens(t, path, []int32{2, 3, 1})

	got, err := ReadLens(path)
	if err != nil {
		t.Fatalf("ReadLens: %v", err)
	}
	want := []int{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("lens[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestNewTable(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}, {0, 0}, {2, 2}}
	lens := []int{2, 3}

	tbl, err := NewTable(vectors, lens)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if tbl.NumSequences() != 2 || tbl.NumVectors() != 5 {
		t.Fatalf("unexpected table shape: %d sequences, %d vectors", tbl.NumSequences(), tbl.NumVectors())
	}
	if tbl.V2S[0] != 0 || tbl.V2S[4] != 1 {
		t.Errorf("V2S mapping wrong: %v", tbl.V2S)
	}
	if tbl.V2L[2] != 0 || tbl.V2L[4] != 2 {
		t.Errorf("V2L mapping wrong: %v", tbl.V2L)
	}
	seq1 := tbl.Sequence(1)
	if len(seq1) != 3 || seq1[0][0] != 1 {
		t.Errorf("Sequence(1) = %v, unexpected", seq1)
	}
	if tbl.VID(1, 1) != 3 {
		t.Errorf("VID(1,1) = %d, want 3", tbl.VID(1, 1))
	}
}

func TestNewTable_LengthMismatch(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	if _, err := NewTable(vectors, []int{5}); err == nil {
		t.Fatal("expected error for mismatched sequence lengths")
	}
}

func TestVisitedStatus(t *testing.T) {
	vs := NewVisitedStatus(10)
	vs.Reset(3)

	if vs.IsVisited(0, 5) {
		t.Fatal("expected unvisited before any Visit call")
	}
	vs.Visit(0, 5, 1.25)
	if !vs.IsVisited(0, 5) {
		t.Fatal("expected visited after Visit")
	}
	if got := vs.Dist(0, 5); got != 1.25 {
		t.Errorf("Dist(0,5) = %f, want 1.25", got)
	}

	// A new Reset invalidates previous generation's marks.
	vs.Reset(3)
	if vs.IsVisited(0, 5) {
		t.Error("expected unvisited after Reset bumped the generation")
	}
}

func TestReadGroundtruth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gt.ivecs")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	records := [][]int32{{3, 1, 4}, {7, 7, 2}}
	for _, r := range records {
		if err := binary.Write(f, binary.LittleEndian, int32(len(r))); err != nil {
			t.Fatalf("write k: %v", err)
		}
		if err := binary.Write(f, binary.LittleEndian, r); err != nil {
			t.Fatalf("write members: %v", err)
		}
	}
	f.Close()

	got, err := ReadGroundtruth(path)
	if err != nil {
		t.Fatalf("ReadGroundtruth: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for _, want := range []int{3, 1, 4} {
		if _, ok := got[0][want]; !ok {
			t.Errorf("record 0 missing member %d", want)
		}
	}
	if len(got[1]) != 2 { // {7,7,2} as a set has 2 distinct members
		t.Errorf("record 1 set size = %d, want 2", len(got[1]))
	}
}

func TestVisitedStatus_GrowsMaxLen(t *testing.T) {
	vs := NewVisitedStatus(4)
	vs.Reset(2)
	vs.Visit(1, 2, 9.0)

	vs.Reset(5) // grows maxLen, reallocates, clears everything
	if vs.IsVisited(1, 2) {
		t.Error("growing maxLen should invalidate prior marks")
	}
}
