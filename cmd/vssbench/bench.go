package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vectorseq/vss/internal/dataset"
	"github.com/vectorseq/vss/internal/vssindex"
)

// queryRecord mirrors runner.h's QueryRecord: one row of the CSV log per
// ef value swept.
type queryRecord struct {
	ef      int
	time    int64 // microseconds
	hit     int
	total   int
	qNum    int
	metrics []vssindex.Counter
}

func newBenchCmd() *cobra.Command {
	flags := &commonFlags{}
	var efs []int
	var outDir string

	cmd := &cobra.Command{
		Use:   "bench <dim> <data_dir> <index_name>",
		Short: "Build an index, sweep a list of ef values against groundtruth, and write a CSV log",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("dim must be an integer: %w", err)
			}
			dataDir, variantArg := args[1], args[2]

			resolved, err := flags.resolve(cmd, &dataDir, &variantArg)
			if err != nil {
				return err
			}

			base, err := loadDataset(resolved.DataDir.Value, dim, "base")
			if err != nil {
				return err
			}
			queries, err := loadDataset(resolved.DataDir.Value, dim, "query")
			if err != nil {
				return err
			}
			groundtruth, err := loadGroundtruth(resolved.DataDir.Value, resolved.Metric.Value)
			if err != nil {
				return err
			}
			if len(groundtruth) != queries.NumSequences() {
				return fmt.Errorf("groundtruth has %d records, query set has %d", len(groundtruth), queries.NumSequences())
			}

			idx, err := vssindex.New(
				vssindex.Variant(resolved.Variant.Value),
				vssindex.Metric(resolved.Metric.Value),
				vssindex.GraphConfig{
					M:                  resolved.M.IntValue(16),
					EfConstruction:     resolved.EfConstruction.IntValue(200),
					EnableBuffer:       resolved.EnableBuffer.BoolValue(),
					UnlinkSameSeq:      resolved.UnlinkSameSeq.BoolValue(),
					ShuffleInsertOrder: flags.shuffleInsert,
					Seed:               flags.seed,
				},
			)
			if err != nil {
				return err
			}

			begin := time.Now()
			if err := idx.Build(base); err != nil {
				return fmt.Errorf("build: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %d us\n\n", time.Since(begin).Microseconds())

			if len(efs) == 0 {
				efs = []int{10, 20, 50, 100, 200, 500, 1000}
			}

			k := 0
			if len(groundtruth) > 0 {
				k = len(groundtruth[0])
			}

			var records []queryRecord
			for _, ef := range efs {
				idx.ResetMetrics()
				rec, err := runSweepOnce(idx, queries, groundtruth, k, ef)
				if err != nil {
					return err
				}
				records = append(records, rec)

				fmt.Fprintf(cmd.OutOrStdout(), "EF: %d\n", rec.ef)
				fmt.Fprintf(cmd.OutOrStdout(), "Tot Time: %d us, Avg Time: %.2f us\n", rec.time, float64(rec.time)/float64(rec.qNum))
				fmt.Fprintf(cmd.OutOrStdout(), "Recall: %d/%d=%.4f\n\n", rec.hit, rec.total, float64(rec.hit)/float64(rec.total))
			}

			if outDir == "" {
				outDir = "."
			}
			path, err := saveRecords(outDir, variantArg, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Query records written to %s\n", path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntSliceVar(&efs, "efs", nil, "comma-separated ef values to sweep (default: 10,20,50,100,200,500,1000)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write the search CSV log into (default: current directory)")
	return cmd
}

func runSweepOnce(idx vssindex.Index, queries *dataset.Table, groundtruth []map[int]struct{}, k, ef int) (queryRecord, error) {
	var totalTime int64
	hit, total, qNum := 0, 0, 0

	for i := 0; i < queries.NumSequences(); i++ {
		q := queries.Sequence(i)

		begin := time.Now()
		result, err := idx.Search(q, k, ef)
		if err != nil {
			return queryRecord{}, fmt.Errorf("query %d: %w", i, err)
		}
		totalTime += time.Since(begin).Microseconds()

		for _, r := range result {
			if _, ok := groundtruth[i][r.Sid]; ok {
				hit++
			}
		}
		total += len(groundtruth[i])
		qNum++
	}

	return queryRecord{
		ef:      ef,
		time:    totalTime,
		hit:     hit,
		total:   total,
		qNum:    qNum,
		metrics: idx.Metrics(),
	}, nil
}

// saveRecords writes the CSV log spec.md §6 requires: header
// "ef,time,hit,total,q_num,<each metric name>", filename
// "<index>-search-<YYMMDD-HHMMSS>.csv".
func saveRecords(outDir, indexName string, records []queryRecord) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", outDir, err)
	}

	name := fmt.Sprintf("%s-search-%s.csv", indexName, time.Now().Format("060102-150405"))
	path := filepath.Join(outDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	var metricNames []string
	if len(records) > 0 {
		for _, c := range records[0].metrics {
			metricNames = append(metricNames, c.Name)
		}
	}

	header := []string{"ef", "time", "hit", "total", "q_num"}
	header = append(header, metricNames...)
	if _, err := fmt.Fprintln(f, strings.Join(header, ",")); err != nil {
		return "", err
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.ef),
			strconv.FormatInt(r.time, 10),
			strconv.Itoa(r.hit),
			strconv.Itoa(r.total),
			strconv.Itoa(r.qNum),
		}
		for _, c := range r.metrics {
			row = append(row, strconv.FormatInt(c.Value, 10))
		}
		if _, err := fmt.Fprintln(f, strings.Join(row, ",")); err != nil {
			return "", err
		}
	}

	return path, nil
}
