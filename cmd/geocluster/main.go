// Package main is the geocluster CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/cli"
	"github.com/hyperjump/geocluster/internal/collect"
	"github.com/hyperjump/geocluster/internal/config"
	"github.com/hyperjump/geocluster/internal/export"
	"github.com/hyperjump/geocluster/internal/geo"
	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/internal/ncbi"
	"github.com/hyperjump/geocluster/internal/pipeline"
	"github.com/hyperjump/geocluster/internal/pmids"
	"github.com/hyperjump/geocluster/internal/server"
	"github.com/hyperjump/geocluster/internal/watcher"
	"github.com/hyperjump/geocluster/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/geocluster/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing file at the default path yields the built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "cluster":
		runCluster()
	case "pmids":
		runPMIDs()
	case "version", "--version", "-v":
		fmt.Printf("geocluster version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func mustLoad(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (NCBI requests, PMID file changes, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := mustLoad(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	list := pmids.NewList(cfg.PMIDs.File)
	if err := list.Reload(); err != nil {
		logger.Warn("PMID list not loaded", zap.String("path", list.Path()), zap.Error(err))
	}
	printPMIDBanner(os.Stdout, list.IDs())

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.PMIDs.WatchOrDefault() {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(
			[]string{list.Path()},
			func(path string) {
				if err := list.Reload(); err != nil {
					logger.Warn("PMID list reload failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("PMID list reloaded", zap.String("path", path), zap.Int("pmids", len(list.IDs())))
			},
			func(path string) {
				list.Clear()
				logger.Info("PMID list removed", zap.String("path", path))
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Warn("PMID list watcher not started", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Pipeline, components.Collector, list, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printClusterUsage prints cluster subcommand usage.
func printClusterUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: geocluster cluster [flags] [pmid ...]\n\n")
	fmt.Fprintf(fs.Output(), "PMIDs come from the arguments (comma or space separated), or from -file when none are given.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  geocluster cluster 31820734 32060136
  geocluster cluster -file PMIDs_list.txt -output json
  geocluster cluster -records records.json -xlsx clusters.xlsx
  geocluster cluster -server http://localhost:8080 31820734
`)
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// pmidsFromArgs parses PMIDs from positional args; when there are none it reads file.
func pmidsFromArgs(args []string, file string) ([]string, error) {
	if ids := pmids.Parse(strings.Join(args, " ")); len(ids) > 0 {
		return ids, nil
	}
	if file == "" {
		return nil, errors.New("no PMIDs given")
	}
	return pmids.ReadFile(file)
}

// readRecords reads a JSON array of records from path.
func readRecords(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return records, nil
}

func runCluster() {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	file := fs.String("file", "", "PMID list file (default from config)")
	recordsPath := fs.String("records", "", "cluster records from a JSON file instead of looking up PMIDs")
	serverURL := fs.String("server", "", "server URL; empty runs the pipeline in-process")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	xlsxPath := fs.String("xlsx", "", "also write the result as an Excel workbook to this path")
	fs.Usage = func() { printClusterUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	cfg, _, logger, _ := mustLoad(*configPath, *debug)
	defer logger.Sync()

	req := &models.ClusterRequest{}
	if *recordsPath != "" {
		records, err := readRecords(*recordsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		req.Records = records
	} else {
		listFile := *file
		if listFile == "" && fs.NArg() == 0 {
			listFile = cfg.PMIDs.File
		}
		ids, err := pmidsFromArgs(fs.Args(), listFile)
		if err != nil {
			printClusterUsage(fs)
			fmt.Fprintf(os.Stderr, "\n%v\n", err)
			os.Exit(1)
		}
		req.PMIDs = ids
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid request: %v\n", err)
		os.Exit(1)
	}

	var resp *models.ClusterResponse
	var err error
	if *serverURL != "" {
		resp, err = clusterViaHTTP(*serverURL, req)
	} else {
		resp, err = clusterLocal(cfg, logger, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Clustering failed: %v\n", err)
		os.Exit(1)
	}

	if err := cli.WriteResult(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if *xlsxPath != "" {
		if err := writeXLSXFile(*xlsxPath, resp); err != nil {
			fmt.Fprintf(os.Stderr, "Excel export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Workbook written to %s\n", *xlsxPath)
	}
}

func clusterLocal(cfg *config.Config, logger *zap.Logger, req *models.ClusterRequest) (*models.ClusterResponse, error) {
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	records, links := req.Records, []models.PMIDLink(nil)
	if len(req.PMIDs) > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		col, err := components.Collector.Collect(ctx, req.PMIDs)
		if err != nil {
			return nil, err
		}
		records, links = col.Records, col.Links
	}
	res := components.Pipeline.RunRecords(records)
	return res.Response(records, links), nil
}

func clusterViaHTTP(serverURL string, req *models.ClusterRequest) (*models.ClusterResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/cluster", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("server request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out models.ClusterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid server response: %w", err)
	}
	return &out, nil
}

func writeXLSXFile(path string, resp *models.ClusterResponse) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteXLSX(f, resp); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runPMIDs() {
	fs := flag.NewFlagSet("pmids", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "PMID list file (default from config)")
	_ = fs.Parse(os.Args[2:])

	path := *file
	if path == "" {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		path = cfg.PMIDs.File
	}
	ids, err := pmids.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	printPMIDBanner(os.Stdout, ids)
}

// printPMIDBanner prints the PMIDs in a form that can be pasted into the web form.
func printPMIDBanner(w io.Writer, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintln(w, "No PMIDs in file")
		return
	}
	fmt.Fprintf(w, "List of PMIDs from file (copy them and paste in web service):\n %s\n\n", pmids.Format(ids))
}

// Components holds initialized services.
type Components struct {
	Pipeline  *pipeline.Pipeline
	NCBI      *ncbi.Client
	GEO       *geo.Fetcher
	Collector *collect.Collector
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	metrics.Register()

	p, err := pipeline.New(cfg.Clustering.Options(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	client := ncbi.NewClient(ncbi.Config{
		BaseURL:           cfg.NCBI.EUtilsURL,
		APIKey:            cfg.NCBI.APIKey,
		Tool:              cfg.NCBI.Tool,
		Email:             cfg.NCBI.Email,
		RequestsPerSecond: cfg.NCBI.RequestsPerSecond,
		Timeout:           cfg.NCBI.Timeout(),
	}, logger)
	fetcher := geo.NewFetcher(geo.Config{
		BaseURL:   cfg.NCBI.GEOURL,
		Timeout:   cfg.NCBI.Timeout(),
		CacheSize: cfg.NCBI.CacheSize,
	}, client.Limiter(), logger)

	return &Components{
		Pipeline:  p,
		NCBI:      client,
		GEO:       fetcher,
		Collector: collect.NewCollector(client, fetcher, logger),
	}, nil
}

func printUsage() {
	fmt.Println(`geocluster - Cluster GEO datasets linked to PubMed articles

Usage:
  geocluster server [flags]              Start the web form and HTTP API
  geocluster cluster [flags] [pmid ...]  Cluster the GEO series of PMIDs
  geocluster pmids [flags]               Print the PMID list file for pasting
  geocluster version                     Show version
  geocluster help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/geocluster/config.yaml)
  --debug            Enable debug logging

Cluster Flags:
  --config string    Config file path
  --file string      PMID list file (used when no PMIDs are given)
  --records string   JSON file of records to cluster without NCBI lookups
  --server string    Server URL; empty runs the pipeline in-process
  --output string    Output format: text or json (default: text)
  --xlsx string      Also write an Excel workbook

Pmids Flags:
  --config string    Config file path
  --file string      PMID list file

Examples:
  geocluster server
  geocluster cluster 31820734, 32060136
  geocluster cluster --output json --xlsx out.xlsx
  geocluster pmids --file PMIDs_list.txt`)
}
