package config

import (
	"github.com/hyperjump/geocluster/internal/geo"
	"github.com/hyperjump/geocluster/internal/ncbi"
	"github.com/hyperjump/geocluster/internal/pipeline"
)

// DefaultPMIDFile is the PMID list read when none is configured.
const DefaultPMIDFile = "PMIDs_list.txt"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 300
	}
	if cfg.NCBI.EUtilsURL == "" {
		cfg.NCBI.EUtilsURL = ncbi.DefaultEUtilsURL
	}
	if cfg.NCBI.GEOURL == "" {
		cfg.NCBI.GEOURL = geo.DefaultBaseURL
	}
	if cfg.NCBI.Tool == "" {
		cfg.NCBI.Tool = "geocluster"
	}
	if cfg.NCBI.TimeoutSeconds == 0 {
		cfg.NCBI.TimeoutSeconds = 30
	}
	if cfg.NCBI.CacheSize == 0 {
		cfg.NCBI.CacheSize = 1000
	}
	// RequestsPerSecond stays 0 when unset so the client picks 3 or 10 from the API key.

	def := pipeline.DefaultOptions()
	if cfg.Clustering.MaxClusters == 0 {
		cfg.Clustering.MaxClusters = def.MaxClusters
	}
	if cfg.Clustering.Seed == 0 {
		cfg.Clustering.Seed = def.Seed
	}
	if cfg.Clustering.MaxIterations == 0 {
		cfg.Clustering.MaxIterations = def.MaxIterations
	}
	if cfg.Clustering.NInit == 0 {
		cfg.Clustering.NInit = def.NInit
	}
	if cfg.Clustering.Tolerance == 0 {
		cfg.Clustering.Tolerance = def.Tolerance
	}
	if cfg.Clustering.PerplexityCap == 0 {
		cfg.Clustering.PerplexityCap = def.PerplexityCap
	}
	if cfg.Clustering.TSNEIterations == 0 {
		cfg.Clustering.TSNEIterations = def.TSNEIterations
	}
	if cfg.Clustering.EarlyExaggeration == 0 {
		cfg.Clustering.EarlyExaggeration = def.EarlyExaggeration
	}
	if cfg.PMIDs.File == "" {
		cfg.PMIDs.File = DefaultPMIDFile
	}
	if cfg.PMIDs.Watch == nil {
		t := true
		cfg.PMIDs.Watch = &t
	}
}
