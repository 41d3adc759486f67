// Package config resolves engine configuration from a YAML file, then
// environment variables, then CLI flags, each layer overriding the last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-supplied overrides, the highest-priority
// source.
type ResolveOptions struct {
	ConfigPath string

	CLIDataDir  string
	CLIMetric   string
	CLIVariant  string
	CLIM        string
	CLIEfConstr string
	CLIEfSearch string

	// CLIUnlinkSameSeq/CLIEnableBuffer are only applied when their
	// companion *Set flag is true, since a bare bool can't distinguish
	// "flag left at its zero value" from "flag explicitly set to false".
	CLIUnlinkSameSeq    bool
	CLIUnlinkSameSeqSet bool
	CLIEnableBuffer     bool
	CLIEnableBufferSet  bool
}

// ResolvedConfig is the fully-resolved engine configuration, with each field
// tagged by where its value came from.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DataDir        ResolvedValue `json:"data_dir"`
	Metric         ResolvedValue `json:"metric"`          // maxsim | dtw | sdtw
	Variant        ResolvedValue `json:"variant"`         // brute_force | set | seq
	M              ResolvedValue `json:"m"`                // graph out-degree
	EfConstruction ResolvedValue `json:"ef_construction"`
	EfSearch       ResolvedValue `json:"ef_search"`
	UnlinkSameSeq  ResolvedValue `json:"unlink_same_seq"`
	EnableBuffer   ResolvedValue `json:"enable_buffer"`
}

type fileConfig struct {
	DataDir string `yaml:"data_dir"`
	Metric  string `yaml:"metric"`
	Variant string `yaml:"variant"`
	Graph   struct {
		M              int  `yaml:"m"`
		EfConstruction int  `yaml:"ef_construction"`
		EfSearch       int  `yaml:"ef_search"`
		UnlinkSameSeq  bool `yaml:"unlink_same_seq"`
		EnableBuffer   bool `yaml:"enable_buffer"`
	} `yaml:"graph"`
}

// DefaultM, DefaultEfConstruction, DefaultEfSearch match spec.md's suggested
// HNSW tuning defaults (M=16, ef_construction=200).
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 50
)

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vssengine", "config.yaml")
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DataDir, cfg.DataDir, SourceConfig, path)
		apply(&out.Metric, cfg.Metric, SourceConfig, path)
		apply(&out.Variant, cfg.Variant, SourceConfig, path)
		if cfg.Graph.M > 0 {
			apply(&out.M, strconv.Itoa(cfg.Graph.M), SourceConfig, path)
		}
		if cfg.Graph.EfConstruction > 0 {
			apply(&out.EfConstruction, strconv.Itoa(cfg.Graph.EfConstruction), SourceConfig, path)
		}
		if cfg.Graph.EfSearch > 0 {
			apply(&out.EfSearch, strconv.Itoa(cfg.Graph.EfSearch), SourceConfig, path)
		}
		apply(&out.UnlinkSameSeq, strconv.FormatBool(cfg.Graph.UnlinkSameSeq), SourceConfig, path)
		apply(&out.EnableBuffer, strconv.FormatBool(cfg.Graph.EnableBuffer), SourceConfig, path)
	}

	applyEnv(&out.DataDir, "VSS_DATA_DIR")
	applyEnv(&out.Metric, "VSS_METRIC")
	applyEnv(&out.Variant, "VSS_VARIANT")
	applyEnv(&out.M, "VSS_M")
	applyEnv(&out.EfConstruction, "VSS_EF_CONSTRUCTION")
	applyEnv(&out.EfSearch, "VSS_EF_SEARCH")
	applyEnv(&out.UnlinkSameSeq, "VSS_UNLINK_SAME_SEQ")
	applyEnv(&out.EnableBuffer, "VSS_ENABLE_BUFFER")

	apply(&out.DataDir, opts.CLIDataDir, SourceCLI, "--data-dir")
	apply(&out.Metric, opts.CLIMetric, SourceCLI, "--metric")
	apply(&out.Variant, opts.CLIVariant, SourceCLI, "--variant")
	apply(&out.M, opts.CLIM, SourceCLI, "--m")
	apply(&out.EfConstruction, opts.CLIEfConstr, SourceCLI, "--ef-construction")
	apply(&out.EfSearch, opts.CLIEfSearch, SourceCLI, "--ef-search")
	if opts.CLIUnlinkSameSeqSet {
		apply(&out.UnlinkSameSeq, strconv.FormatBool(opts.CLIUnlinkSameSeq), SourceCLI, "--unlink-same-seq")
	}
	if opts.CLIEnableBufferSet {
		apply(&out.EnableBuffer, strconv.FormatBool(opts.CLIEnableBuffer), SourceCLI, "--enable-buffer")
	}

	if out.DataDir.Value != "" {
		out.DataDir.Value = expandUserPath(out.DataDir.Value)
	}

	fillDefault(&out.Metric, "maxsim")
	fillDefault(&out.Variant, "brute_force")
	fillDefault(&out.M, strconv.Itoa(DefaultM))
	fillDefault(&out.EfConstruction, strconv.Itoa(DefaultEfConstruction))
	fillDefault(&out.EfSearch, strconv.Itoa(DefaultEfSearch))
	fillDefault(&out.UnlinkSameSeq, "false")
	fillDefault(&out.EnableBuffer, "false")

	return out, nil
}

// IntValue parses a ResolvedValue known to carry an integer, returning def
// if it is empty or malformed.
func (v ResolvedValue) IntValue(def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		return def
	}
	return n
}

// BoolValue parses a ResolvedValue known to carry a boolean.
func (v ResolvedValue) BoolValue() bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v.Value))
	return b
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func fillDefault(dst *ResolvedValue, def string) {
	if strings.TrimSpace(dst.Value) == "" {
		*dst = ResolvedValue{Value: def, Source: SourceDefault, From: "built-in default"}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
