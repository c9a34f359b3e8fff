package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from reconcile.yml.
// Zero values mean "not set" and leave the built-in defaults in place.
type ProjectConfig struct {
	OutputDir          string   `yaml:"outputDir,omitempty"`
	GraphDB            string   `yaml:"graphDB,omitempty"`
	Threads            int      `yaml:"threads,omitempty"`
	MinClusterLength   int      `yaml:"minClusterLength,omitempty"`
	MinClusterDepth    float64  `yaml:"minClusterDepth,omitempty"`
	MinLinkSupport     float64  `yaml:"minLinkSupport,omitempty"`
	ChromosomeFraction float64  `yaml:"chromosomeFraction,omitempty"`
	MaxBubbleDepth     int      `yaml:"maxBubbleDepth,omitempty"`
	MaxAlignLength     int      `yaml:"maxAlignLength,omitempty"`
	AssemblyPriority   []string `yaml:"assemblyPriority,omitempty"`
	TieBreak           string   `yaml:"tieBreak,omitempty"`
	Verbose            bool     `yaml:"verbose,omitempty"`
	Quiet              bool     `yaml:"quiet,omitempty"`
}

// Load attempts to read reconcile.yml or reconcile.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"reconcile.yml", "reconcile.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
