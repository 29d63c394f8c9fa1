// Package main is the Chushaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/chushaku/internal/cli"
	"github.com/hyperjump/chushaku/internal/config"
	"github.com/hyperjump/chushaku/internal/keyword"
	"github.com/hyperjump/chushaku/internal/models"
	"github.com/hyperjump/chushaku/internal/processor"
	"github.com/hyperjump/chushaku/internal/server"
	"github.com/hyperjump/chushaku/internal/storage"
	"github.com/hyperjump/chushaku/internal/watcher"
	"github.com/hyperjump/chushaku/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/chushaku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
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
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
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
	case "annotate":
		runAnnotate()
	case "server":
		runServer()
	case "search":
		runSearch()
	case "jobs":
		runJobs()
	case "job":
		runJob()
	case "delete":
		runDelete()
	case "report":
		runReport()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("chushaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// reorderArgs moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func reorderArgs(args []string) []string {
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

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// collectDocuments lists the documents under root eligible for annotation:
// matching extensions, no Word lock files, no previously annotated copies.
func collectDocuments(root string, extensions []string, isOutput func(string) bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "~$") || isOutput(path) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		for _, e := range extensions {
			if "."+strings.TrimPrefix(strings.ToLower(e), ".") == ext {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	return paths, err
}

func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, resolved, logger, components
}

func runAnnotate() {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	phrase := fs.String("phrase", "", "phrase to annotate (default from config)")
	caseSensitive := fs.Bool("case-sensitive", false, "match case exactly (default from config)")
	outputDir := fs.String("output-dir", "", "directory for annotated copies (default: beside the source)")
	serverURL := fs.String("server", "", "server URL; empty annotates locally")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chushaku annotate [flags] <file.docx|directory> [output.docx]\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}
	req := processor.Request{Phrase: *phrase}
	if flagWasSet(fs, "case-sensitive") {
		req.CaseSensitive = caseSensitive
	}
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			fail("Failed to create output directory: %v", err)
		}
	}

	if *serverURL != "" {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		dst := fs.Arg(1)
		if dst == "" {
			dst = processor.SuffixedPath(fs.Arg(0), *outputDir, cfg.Annotate.OutputSuffix)
		}
		annotateViaHTTP(newAPIClient(*serverURL), fs.Arg(0), dst, req)
		return
	}

	cfg, _, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	proc := components.Processor
	ctx := context.Background()

	src := fs.Arg(0)
	info, err := os.Stat(src)
	if err != nil {
		fail("Failed to stat path: %v", err)
	}
	if !info.IsDir() {
		dst := fs.Arg(1)
		if dst == "" {
			dst = proc.OutputPath(src, *outputDir)
		}
		detail, err := proc.AnnotateFile(ctx, src, dst, req)
		if err != nil {
			fail("Annotation failed: %v", err)
		}
		if err := cli.WriteJob(os.Stdout, detail, format); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	paths, err := collectDocuments(src, cfg.Watch.Extensions, proc.IsOutput)
	if err != nil {
		fail("Failed to list documents: %v", err)
	}
	var jobs []*models.Job
	failed := 0
	for _, path := range paths {
		detail, err := proc.AnnotateFile(ctx, path, proc.OutputPath(path, *outputDir), req)
		if detail != nil {
			jobs = append(jobs, detail.Job)
		}
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
	}
	if err := cli.WriteJobs(os.Stdout, jobs, format); err != nil {
		fail("Output failed: %v", err)
	}
	if failed > 0 {
		fail("%d of %d document(s) failed", failed, len(paths))
	}
}

func annotateViaHTTP(client *apiClient, src, dst string, req processor.Request) {
	content, err := os.ReadFile(src)
	if err != nil {
		fail("Failed to read document: %v", err)
	}
	res, err := client.annotate(filepath.Base(src), content, req.Phrase, req.CaseSensitive)
	if err != nil {
		fail("Annotation failed: %v", err)
	}
	if err := os.WriteFile(dst, res.Content, 0644); err != nil {
		fail("Failed to write annotated document: %v", err)
	}
	fmt.Printf("Annotated %d match(es) -> %s (job %s)\n", res.Matches, dst, res.JobID)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, annotation jobs, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	debugMode := cfg.Debug || *debug
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	proc := components.Processor
	outputDir := cfg.Watch.OutputDirectory
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			logger.Fatal("Failed to create output directory", zap.Error(err))
		}
	}
	watchOpts := []watcher.Option{watcher.WithSkip(proc.IsOutput)}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := proc.AnnotateFile(watchCtx, path, proc.OutputPath(path, outputDir), processor.Request{}); err != nil {
				logger.Warn("watch annotate failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.ScanExisting()

	srv := server.NewServer(proc, cfg, logger, watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil {
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 10, "number of results")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chushaku search [flags] <query>\n\n")
		fmt.Fprintf(fs.Output(), "Searches the matched text and paragraph context of recorded annotations.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}
	searchQuery := &models.SearchQuery{Query: queryStr, Limit: *limit, FuzzyEnabled: *fuzzyEnabled}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = newAPIClient(*serverURL).search(searchQuery)
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Processor.Search(context.Background(), searchQuery)
	}
	if err != nil {
		fail("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runJobs() {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	offset := fs.Int("offset", 0, "number of jobs to skip")
	limit := fs.Int("limit", 20, "number of jobs to list")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}

	var jobs []*models.Job
	if *serverURL != "" {
		jobs, err = newAPIClient(*serverURL).jobs(*offset, *limit)
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		jobs, err = components.Processor.Jobs(context.Background(), *offset, *limit)
	}
	if err != nil {
		fail("List jobs failed: %v", err)
	}
	if err := cli.WriteJobs(os.Stdout, jobs, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runJob() {
	fs := flag.NewFlagSet("job", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fail("Usage: chushaku job [flags] <job-id>")
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}

	var detail *models.JobDetail
	if *serverURL != "" {
		detail, err = newAPIClient(*serverURL).job(fs.Arg(0))
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		detail, err = components.Processor.Job(context.Background(), fs.Arg(0))
	}
	if err != nil {
		fail("Get job failed: %v", err)
	}
	if err := cli.WriteJob(os.Stdout, detail, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 1 {
		fail("Usage: chushaku delete [flags] <job-id>")
	}
	id := fs.Arg(0)

	var err error
	if *serverURL != "" {
		err = newAPIClient(*serverURL).deleteJob(id)
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		err = components.Processor.DeleteJob(context.Background(), id)
	}
	if err != nil {
		fail("Deletion failed: %v", err)
	}
	fmt.Printf("Job deleted: %s\n", id)
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 2 {
		fail("Usage: chushaku report [flags] <job-id> <out.xlsx>")
	}
	id, out := fs.Arg(0), fs.Arg(1)

	var buf bytes.Buffer
	var err error
	if *serverURL != "" {
		err = newAPIClient(*serverURL).report(id, &buf)
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		err = components.Processor.Report(context.Background(), id, &buf)
	}
	if err != nil {
		fail("Report failed: %v", err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		fail("Failed to write report: %v", err)
	}
	fmt.Printf("Report written: %s\n", out)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}

	var status statusResponse
	if *serverURL != "" {
		res, err := newAPIClient(*serverURL).status()
		if err != nil {
			fail("Status failed: %v", err)
		}
		status = *res
	} else {
		cfg, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		s, err := components.Processor.Status(context.Background())
		if err != nil {
			fail("Status failed: %v", err)
		}
		usage, err := storage.MeasureUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath)
		if err != nil {
			fail("Disk usage failed: %v", err)
		}
		status = statusResponse{Jobs: s.Jobs, Annotations: s.Annotations, Indexed: s.Indexed, DiskUsage: usage}
	}
	s := &processor.Status{Jobs: status.Jobs, Annotations: status.Annotations, Indexed: status.Indexed}
	if err := cli.WriteStatus(os.Stdout, s, status.DiskUsage, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: chushaku watch <add|remove|list> [path]")
		fmt.Println("  chushaku watch add <path>     Add directory to watch")
		fmt.Println("  chushaku watch remove <path>  Remove directory from watch")
		fmt.Println("  chushaku watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(reorderArgs(os.Args[3:]))
	client := newAPIClient(*serverURL)
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fail("Usage: chushaku watch add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := client.watchAdd(path); err != nil {
			fail("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fail("Usage: chushaku watch remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := client.watchRemove(path); err != nil {
			fail("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.watchList()
		if err != nil {
			fail("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fail("Unknown watch subcommand: %s", sub)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Processor    *processor.Processor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if dir := filepath.Dir(cfg.Storage.BleveIndexPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	if debug && logger != nil {
		logger.Debug("components initialized",
			zap.String("database_path", cfg.Storage.DatabasePath),
			zap.String("bleve_index_path", cfg.Storage.BleveIndexPath))
	}
	return &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Processor:    processor.New(store, keywordIndex, &cfg.Annotate, processor.WithLogger(logger)),
	}, nil
}

func printUsage() {
	fmt.Println(`chushaku - Comment every occurrence of a phrase in Word documents

Usage:
  chushaku annotate [flags] <file|dir> [out]  Annotate a .docx (or every .docx in a directory)
  chushaku server [flags]                     Start the HTTP server and directory watcher
  chushaku search [flags] <query>             Search recorded annotations
  chushaku jobs [flags]                       List annotation jobs
  chushaku job [flags] <job-id>               Show a job and its annotations
  chushaku delete [flags] <job-id>            Delete a job and its annotations
  chushaku report [flags] <job-id> <out.xlsx> Export a job's annotations as XLSX
  chushaku status [flags]                     Show journal/index status
  chushaku watch <add|remove|list>            Manage watched directories
  chushaku version                            Show version
  chushaku help                               Show this help

Annotate Flags:
  --config string      Config file path (default: /usr/local/etc/chushaku/config.yaml)
  --phrase string      Phrase to annotate (default: annotate.phrase from config)
  --case-sensitive     Match case exactly (default: annotate.case_sensitive from config)
  --output-dir string  Directory for annotated copies (default: beside the source)
  --server string      Send the document to a running server instead of annotating locally
  --output string      Output format: text or json (default: text)

Search/Jobs/Job/Delete/Report/Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)
  --limit int        Number of results (search, jobs)
  --fuzzy            Enable fuzzy matching for typo tolerance (search)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  chushaku annotate --phrase "Online Video" report.docx
  chushaku annotate --case-sensitive --output-dir out/ ./docs
  chushaku server
  chushaku search "online video"
  chushaku jobs --output json
  chushaku report 6f1c... annotations.xlsx
  chushaku watch add /path/to/docs`)
}
