// Command vssbench is the CLI harness around the core VSS engine: it
// loads a dataset directory in the bit-exact .fvecs/.lens/.ivecs layout
// spec.md §6 defines, builds one of the index variants, and either runs a
// single search or sweeps a list of ef values and writes the CSV log
// spec.md §6 specifies. This mirrors original_source/src/runner.h's
// VSSRunner, restructured as cobra subcommands per Tejas242-sift's
// cmd/sift/main.go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectorseq/vss/internal/config"
)

// version can be overridden with -ldflags "-X main.version=..." at build time.
var version = "0.1.0-dev"

func main() {
	root := &cobra.Command{
		Use:   "vssbench",
		Short: "Vector-sequence similarity search benchmark harness",
		Long:  "vssbench builds and queries the VSS engine's proximity-graph index variants over fvecs/lens datasets.",
	}
	root.AddCommand(newVersionCmd(), newBuildCmd(), newSearchCmd(), newBenchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vssbench version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

// commonFlags are the graph/metric/variant knobs shared by build, search
// and bench, resolved through internal/config's file < env < CLI chain.
type commonFlags struct {
	configPath string
	dataDir    string
	metric     string
	variant    string
	m          string
	efConstr   string
	efSearch   string

	unlinkSameSeq bool
	enableBuffer  bool
	shuffleInsert bool
	seed          int64
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to config.yaml (default ~/.vssengine/config.yaml)")
	cmd.Flags().StringVar(&f.metric, "metric", "", "similarity metric: maxsim | dtw | sdtw")
	cmd.Flags().StringVar(&f.m, "m", "", "HNSW out-degree parameter M")
	cmd.Flags().StringVar(&f.efConstr, "ef-construction", "", "build-time beam width")
	cmd.Flags().StringVar(&f.efSearch, "ef-search", "", "default query-time beam width")
	cmd.Flags().BoolVar(&f.unlinkSameSeq, "unlink-same-seq", false, "forbid same-sequence layer-0 edges (sequence graph only)")
	cmd.Flags().BoolVar(&f.enableBuffer, "enable-buffer", false, "reuse candidate-generation distances during rerank")
	cmd.Flags().BoolVar(&f.shuffleInsert, "shuffle-insert-order", true, "pre-shuffle vector insertion order under unlink-same-seq")
	cmd.Flags().Int64Var(&f.seed, "seed", 100, "seed for the insertion-order shuffle")
}

func (f *commonFlags) resolve(cmd *cobra.Command, dataDir, variant *string) (config.ResolvedConfig, error) {
	opts := config.ResolveOptions{
		ConfigPath:          f.configPath,
		CLIDataDir:          *dataDir,
		CLIMetric:           f.metric,
		CLIVariant:          *variant,
		CLIM:                f.m,
		CLIEfConstr:         f.efConstr,
		CLIEfSearch:         f.efSearch,
		CLIUnlinkSameSeq:    f.unlinkSameSeq,
		CLIUnlinkSameSeqSet: cmd.Flags().Changed("unlink-same-seq"),
		CLIEnableBuffer:     f.enableBuffer,
		CLIEnableBufferSet:  cmd.Flags().Changed("enable-buffer"),
	}
	resolved, err := config.ResolveConfig(opts)
	if err != nil {
		return resolved, fmt.Errorf("resolving config: %w", err)
	}
	return resolved, nil
}
