package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vectorseq/vss/internal/vssindex"
)

func newSearchCmd() *cobra.Command {
	flags := &commonFlags{}
	var k, ef, queryID int
	cmd := &cobra.Command{
		Use:   "search <dim> <data_dir> <index_name>",
		Short: "Build an index and run a single query, printing its top-k",
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
			if queryID < 0 || queryID >= queries.NumSequences() {
				return fmt.Errorf("query id %d out of range [0, %d)", queryID, queries.NumSequences())
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
			if err := idx.Build(base); err != nil {
				return fmt.Errorf("build: %w", err)
			}

			ef = resolveEf(ef, resolved.EfSearch.IntValue(50))

			result, err := idx.Search(queries.Sequence(queryID), k, ef)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			sort.Slice(result, func(i, j int) bool { return result[i].Dist < result[j].Dist })

			for _, r := range result {
				fmt.Fprintf(cmd.OutOrStdout(), "sid=%d dist=%f\n", r.Sid, r.Dist)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&k, "k", 10, "number of results to return")
	cmd.Flags().IntVar(&ef, "ef", 0, "search-time beam width (0 = use resolved ef-search default)")
	cmd.Flags().IntVar(&queryID, "query", 0, "index of the query sequence to run")
	return cmd
}

func resolveEf(cliEf, defaultEf int) int {
	if cliEf > 0 {
		return cliEf
	}
	return defaultEf
}
