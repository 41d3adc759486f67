package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vectorseq/vss/internal/vssindex"
)

func newBuildCmd() *cobra.Command {
	flags := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "build <dim> <data_dir> <index_name>",
		Short: "Build an index over a dataset and report build time",
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
			elapsed := time.Since(begin)

			fmt.Fprintf(cmd.OutOrStdout(), "Build Time: %d us\n", elapsed.Microseconds())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
