package orchestrator

import (
	"testing"

	"github.com/dusk-indust/reconcile/internal/config"
	"github.com/dusk-indust/reconcile/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.GreaterOrEqual(t, cfg.Threads, 1)
	assert.Equal(t, resolve.DefaultMaxBubbleDepth, cfg.MaxBubbleDepth)
	assert.Equal(t, resolve.TieBreakDepthFirst, cfg.TieBreak)
}

func TestConfig_Merge(t *testing.T) {
	base := DefaultConfig()
	base.Verbose = true

	merged, err := base.Merge(&config.ProjectConfig{
		OutputDir:        "out",
		Threads:          3,
		MaxBubbleDepth:   10,
		AssemblyPriority: []string{"flye", "canu"},
		TieBreak:         "identity-first",
		Quiet:            true,
	})
	require.NoError(t, err)

	assert.Equal(t, "out", merged.OutputDir)
	assert.Equal(t, 3, merged.Threads)
	assert.Equal(t, 10, merged.MaxBubbleDepth)
	assert.Equal(t, []string{"flye", "canu"}, merged.AssemblyPriority)
	assert.Equal(t, resolve.TieBreakIdentityFirst, merged.TieBreak)
	assert.True(t, merged.Quiet)
	assert.True(t, merged.Verbose, "flags already set survive the merge")
	assert.Equal(t, base.MaxAlignLength, merged.MaxAlignLength, "unset file values keep defaults")
}

func TestConfig_Merge_Nil(t *testing.T) {
	base := DefaultConfig()
	merged, err := base.Merge(nil)
	require.NoError(t, err)
	assert.Equal(t, base, merged)
}

func TestConfig_Merge_BadTieBreak(t *testing.T) {
	_, err := DefaultConfig().Merge(&config.ProjectConfig{TieBreak: "coin-flip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coin-flip")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threads", func(c *Config) { c.Threads = 0 }, "threads"},
		{"bubble depth", func(c *Config) { c.MaxBubbleDepth = 0 }, "max bubble depth"},
		{"link support", func(c *Config) { c.MinLinkSupport = 1.5 }, "min link support"},
		{"chromosome fraction", func(c *Config) { c.ChromosomeFraction = -0.1 }, "chromosome fraction"},
		{"tie break", func(c *Config) { c.TieBreak = "random" }, "tie-break"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinClusterLength = 500
	cfg.AssemblyPriority = []string{"asm2"}

	co := cfg.clusterOptions()
	assert.Equal(t, 500, co.MinLength)
	assert.Equal(t, cfg.ChromosomeFraction, co.ChromosomeFraction)

	ro := cfg.resolveOptions()
	assert.Equal(t, cfg.MaxBubbleDepth, ro.MaxBubbleDepth)
	assert.Equal(t, []string{"asm2"}, ro.AssemblyPriority)
	assert.Equal(t, cfg.TieBreak, ro.TieBreak)
}
