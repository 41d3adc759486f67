package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `data_dir: ~/.vssengine/from-config
metric: dtw
graph:
  m: 24
  ef_construction: 300
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	t.Setenv("VSS_METRIC", "sdtw")
	t.Setenv("VSS_EF_SEARCH", "80")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: cfgPath,
		CLIVariant: "seq_graph",
	})
	require.NoError(t, err)

	assert.Equal(t, SourceConfig, resolved.DataDir.Source)
	assert.Equal(t, SourceConfig, resolved.M.Source)
	assert.Equal(t, 24, resolved.M.IntValue(-1))

	assert.Equal(t, SourceEnv, resolved.Metric.Source, "env should override config for metric")
	assert.Equal(t, "sdtw", resolved.Metric.Value)
	assert.Equal(t, SourceEnv, resolved.EfSearch.Source)
	assert.Equal(t, 80, resolved.EfSearch.IntValue(-1))

	assert.Equal(t, SourceCLI, resolved.Variant.Source, "CLI should win over config and env")
	assert.Equal(t, "seq_graph", resolved.Variant.Value)
}

func TestResolveConfig_Defaults(t *testing.T) {
	tmp := t.TempDir()
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(tmp, "missing.yaml")})
	require.NoError(t, err)

	assert.Equal(t, SourceDefault, resolved.Metric.Source)
	assert.Equal(t, "maxsim", resolved.Metric.Value)
	assert.Equal(t, SourceDefault, resolved.Variant.Source)
	assert.Equal(t, "brute_force", resolved.Variant.Value)
	assert.Equal(t, DefaultM, resolved.M.IntValue(-1))
	assert.Equal(t, DefaultEfConstruction, resolved.EfConstruction.IntValue(-1))
	assert.Equal(t, DefaultEfSearch, resolved.EfSearch.IntValue(-1))
	assert.False(t, resolved.UnlinkSameSeq.BoolValue())
	assert.False(t, resolved.EnableBuffer.BoolValue())
}

func TestResolveConfig_BadYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("not: valid: yaml: ["), 0o600))

	_, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	assert.Error(t, err)
}

func TestDefaultConfigPath(t *testing.T) {
	p := DefaultConfigPath()
	assert.Contains(t, p, filepath.Join(".vssengine", "config.yaml"))
}
