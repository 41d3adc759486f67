// Package dataset holds the runtime data model the core indexes build
// over — the flattened vector table, its vector↔sequence mapping arrays,
// and the generation-counter visited-status structure shared by the
// sequence-graph DP search and the rerank distance cache — plus the
// bit-exact on-disk readers (.fvecs/.lens/.ivecs) that feed it. The
// readers are an external collaborator per the core's own accounting, but
// they live in this package because that is where the reference dataset
// loader keeps them, alongside the tables they populate.
package dataset

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Table is the flattened, build-time view of a base collection: every
// vector across every sequence laid out contiguously, with mapping arrays
// projecting a vector id (vid) to its owning sequence id (sid) and its
// local offset within that sequence (lid).
type Table struct {
	Dim     int
	Vectors [][]float32 // Vectors[vid]
	V2S     []int       // V2S[vid] = sid
	V2L     []int       // V2L[vid] = lid (position within its sequence)
	SeqOff  []int       // SeqOff[sid] = vid of the sequence's first vector
	SeqLen  []int       // SeqLen[sid] = number of vectors in the sequence
}

// NewTable builds the mapping arrays from a flattened vector slice and the
// per-sequence lengths read from the companion .lens file.
func NewTable(vectors [][]float32, seqLens []int) (*Table, error) {
	total := 0
	for _, l := range seqLens {
		total += l
	}
	if total != len(vectors) {
		return nil, fmt.Errorf("dataset: sequence lengths sum to %d, vector file has %d vectors", total, len(vectors))
	}

	t := &Table{
		Vectors: vectors,
		V2S:     make([]int, len(vectors)),
		V2L:     make([]int, len(vectors)),
		SeqOff:  make([]int, len(seqLens)),
		SeqLen:  seqLens,
	}
	if len(vectors) > 0 {
		t.Dim = len(vectors[0])
	}

	vid := 0
	for sid, l := range seqLens {
		t.SeqOff[sid] = vid
		for lid := 0; lid < l; lid++ {
			t.V2S[vid] = sid
			t.V2L[vid] = lid
			vid++
		}
	}
	return t, nil
}

// NumVectors returns the number of individual vectors across all sequences.
func (t *Table) NumVectors() int { return len(t.Vectors) }

// NumSequences returns the number of base sequences.
func (t *Table) NumSequences() int { return len(t.SeqLen) }

// Sequence returns the vector slice belonging to sid.
func (t *Table) Sequence(sid int) [][]float32 {
	off, l := t.SeqOff[sid], t.SeqLen[sid]
	return t.Vectors[off : off+l]
}

// VID returns the global vector id of local position lid within sequence sid.
func (t *Table) VID(sid, lid int) int {
	return t.SeqOff[sid] + lid
}

// ReadFvecs reads a `.fvecs`-style file: a sequence of records, each
// `[int32 dim][dim x float32]`, little-endian. dim must match the file's
// own recorded dimension in every record's header for the file to be
// accepted as this dataset's vectors.
func ReadFvecs(path string, dim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat vector file: %w", err)
	}
	recordSize := int64(dim+1) * 4
	if info.Size()%recordSize != 0 {
		return nil, fmt.Errorf("vector file size %d is not a multiple of record size %d (dim=%d)", info.Size(), recordSize, dim)
	}
	n := int(info.Size() / recordSize)

	out := make([][]float32, n)
	var hdr [4]byte
	for i := 0; i < n; i++ {
		if _, err := readFull(f, hdr[:]); err != nil {
			return nil, fmt.Errorf("reading record %d header: %w", i, err)
		}
		fileDim := int(binary.LittleEndian.Uint32(hdr[:]))
		if fileDim != dim {
			return nil, fmt.Errorf("dimension mismatch at record %d: file says %d, want %d", i, fileDim, dim)
		}
		vec := make([]float32, dim)
		if err := readFloat32s(f, vec); err != nil {
			return nil, fmt.Errorf("reading record %d vector: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// ReadLens reads a `.lens` file: a raw array of little-endian int32
// sequence lengths, one per base sequence.
func ReadLens(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening length file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat length file: %w", err)
	}
	if info.Size()%4 != 0 {
		return nil, fmt.Errorf("length file size %d is not a multiple of 4", info.Size())
	}
	n := int(info.Size() / 4)
	raw := make([]int32, n)
	if err := binary.Read(f, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("reading lengths: %w", err)
	}
	out := make([]int, n)
	for i, v := range raw {
		out[i] = int(v)
	}
	return out, nil
}

// ReadGroundtruth reads a `.ivecs`-style file: records of
// `[int32 k][k x int32]`, returning each record as a set of member ids.
func ReadGroundtruth(path string) ([]map[int]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening groundtruth file: %w", err)
	}
	defer f.Close()

	var hdr [4]byte
	if _, err := readFull(f, hdr[:]); err != nil {
		return nil, fmt.Errorf("reading k: %w", err)
	}
	k := int(binary.LittleEndian.Uint32(hdr[:]))

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat groundtruth file: %w", err)
	}
	recordSize := int64(k+1) * 4
	if recordSize == 0 || info.Size()%recordSize != 0 {
		return nil, fmt.Errorf("groundtruth file size %d is not a multiple of record size %d (k=%d)", info.Size(), recordSize, k)
	}
	n := int(info.Size() / recordSize)

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	out := make([]map[int]struct{}, n)
	raw := make([]int32, k)
	for i := 0; i < n; i++ {
		if _, err := readFull(f, hdr[:]); err != nil {
			return nil, fmt.Errorf("reading record %d header: %w", i, err)
		}
		if err := binary.Read(f, binary.LittleEndian, raw); err != nil {
			return nil, fmt.Errorf("reading record %d members: %w", i, err)
		}
		members := make(map[int]struct{}, k)
		for _, m := range raw {
			members[int(m)] = struct{}{}
		}
		out[i] = members
	}
	return out, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readFloat32s(f *os.File, out []float32) error {
	raw := make([]byte, len(out)*4)
	if _, err := readFull(f, raw); err != nil {
		return err
	}
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return nil
}
