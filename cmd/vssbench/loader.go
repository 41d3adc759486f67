package main

import (
	"fmt"
	"path/filepath"

	"github.com/vectorseq/vss/internal/dataset"
)

// loadDataset reads the bit-exact on-disk pair spec.md §6 describes
// (<prefix>.fvecs + <prefix>.lens) into a dataset.Table. Both the base
// collection and the query collection share this exact layout, so the
// same loader serves both — a query.Sequence(i) is query i's vectors.
func loadDataset(dataDir string, dim int, prefix string) (*dataset.Table, error) {
	vecPath := filepath.Join(dataDir, prefix+".fvecs")
	lensPath := filepath.Join(dataDir, prefix+".lens")

	vectors, err := dataset.ReadFvecs(vecPath, dim)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", vecPath, err)
	}
	lens, err := dataset.ReadLens(lensPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", lensPath, err)
	}
	table, err := dataset.NewTable(vectors, lens)
	if err != nil {
		return nil, fmt.Errorf("building table from %s: %w", prefix, err)
	}
	return table, nil
}

func loadGroundtruth(dataDir, metric string) ([]map[int]struct{}, error) {
	path := filepath.Join(dataDir, fmt.Sprintf("groundtruth-%s.ivecs", metric))
	gt, err := dataset.ReadGroundtruth(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return gt, nil
}
