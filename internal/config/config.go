// Package config provides configuration loading and structs for the geocluster server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/geocluster/internal/pipeline"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	NCBI       NCBIConfig       `yaml:"ncbi"`
	Clustering ClusteringConfig `yaml:"clustering"`
	PMIDs      PMIDsConfig      `yaml:"pmids"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeoutSeconds bounds one clustering request, including NCBI lookups.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// NCBIConfig holds E-utilities and GEO access settings.
type NCBIConfig struct {
	EUtilsURL         string  `yaml:"eutils_url"`
	GEOURL            string  `yaml:"geo_url"`
	APIKey            string  `yaml:"api_key"`
	Tool              string  `yaml:"tool"`
	Email             string  `yaml:"email"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	CacheSize         int     `yaml:"cache_size"`
}

// Timeout returns the per-request HTTP timeout.
func (n *NCBIConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// ClusteringConfig holds pipeline settings.
type ClusteringConfig struct {
	MaxClusters       int     `yaml:"max_clusters"`
	Seed              uint64  `yaml:"seed"`
	MaxIterations     int     `yaml:"max_iterations"`
	NInit             int     `yaml:"n_init"`
	Tolerance         float64 `yaml:"tolerance"`
	Workers           int     `yaml:"workers"`
	PerplexityCap     float64 `yaml:"perplexity_cap"`
	TSNEIterations    int     `yaml:"tsne_iterations"`
	EarlyExaggeration float64 `yaml:"early_exaggeration"`
}

// Options converts the section to pipeline options.
func (c *ClusteringConfig) Options() pipeline.Options {
	return pipeline.Options{
		MaxClusters:       c.MaxClusters,
		Seed:              c.Seed,
		Workers:           c.Workers,
		MaxIterations:     c.MaxIterations,
		NInit:             c.NInit,
		Tolerance:         c.Tolerance,
		PerplexityCap:     c.PerplexityCap,
		TSNEIterations:    c.TSNEIterations,
		EarlyExaggeration: c.EarlyExaggeration,
	}
}

// PMIDsConfig holds the PMID list file settings.
type PMIDsConfig struct {
	File  string `yaml:"file"`
	Watch *bool  `yaml:"watch"`
}

// WatchOrDefault returns whether to watch the PMID file; defaults to true when unset.
func (p *PMIDsConfig) WatchOrDefault() bool {
	if p.Watch != nil {
		return *p.Watch
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.PMIDs.File = expandPath(cfg.PMIDs.File, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" or "../" and bare file names
// are relative to configDir; "~/" paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
