package vssindex

import "fmt"

// Variant names one of the index strategies the façade can build.
type Variant string

const (
	VariantBruteForce Variant = "brute_force"
	VariantSet        Variant = "set"
	VariantSeq        Variant = "seq"
)

// GraphConfig bundles the tuning knobs shared by the graph-backed variants.
// Fields unused by a given variant (e.g. UnlinkSameSeq for SetGraph) are
// simply ignored.
type GraphConfig struct {
	M                  int
	EfConstruction     int
	EnableBuffer       bool
	UnlinkSameSeq      bool
	ShuffleInsertOrder bool
	Seed               int64
}

// New builds the requested variant under the given metric, per spec.md
// §6's CLI contract: an unrecognized variant name is a ConfigError.
func New(variant Variant, m Metric, cfg GraphConfig) (Index, error) {
	switch variant {
	case VariantBruteForce:
		return NewBruteForce(m)
	case VariantSet:
		return NewSetGraph(m, SetGraphConfig{
			M:              cfg.M,
			EfConstruction: cfg.EfConstruction,
			EnableBuffer:   cfg.EnableBuffer,
		})
	case VariantSeq:
		return NewSeqGraph(m, SeqGraphConfig{
			M:                  cfg.M,
			EfConstruction:     cfg.EfConstruction,
			UnlinkSameSeq:      cfg.UnlinkSameSeq,
			ShuffleInsertOrder: cfg.ShuffleInsertOrder,
			Seed:               cfg.Seed,
			EnableBuffer:       cfg.EnableBuffer,
		})
	default:
		return nil, fmt.Errorf("%q: %w", variant, ErrUnknownVariant)
	}
}
