package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/probehq/codegraph/internal/config"
	"github.com/probehq/codegraph/internal/export"
	"github.com/probehq/codegraph/internal/graph"
	"github.com/probehq/codegraph/internal/mcptools"
)

// version is set by the linker at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("codegraph", pflag.ContinueOnError)
	fs.String("root", ".", "path to the repository to index")
	fs.String("name", "", "repository name for the root node (default: basename of root)")
	fs.String("db", ":memory:", "graph database path, or :memory: for an in-memory database")
	fs.Int("workers", 0, "parse worker count (default: number of CPUs)")
	fs.StringSlice("exclude", nil, "directory names to exclude from indexing")
	fs.String("listen", "localhost:8419", "MCP server listen address")
	fs.Bool("verbose", false, "enable debug logging")
	serve := fs.Bool("serve", false, "run as an MCP server instead of a one-shot build")
	exportPath := fs.String("export", "", "write the built graph to this file after a one-shot build")
	exportFormat := fs.String("format", "json", "export format: json or mermaid")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := graph.OpenStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	extractor := graph.NewTreeSitterExtractor()
	assembler := graph.NewAssembler(store, extractor,
		graph.WithWorkers(cfg.Workers),
		graph.WithLogger(logger))
	engine := graph.NewEngine(store, graph.WithEngineLogger(logger))

	svc := mcptools.NewCodeGraphService(assembler, engine)
	svc.SetExcludes(cfg.ExcludeDirs)

	if *serve {
		logger.Info("starting MCP server", slog.String("addr", cfg.ListenAddr))
		return mcptools.RunMCPServer(ctx, svc, cfg.ListenAddr)
	}

	if err := buildOnce(ctx, cfg, assembler, logger); err != nil {
		return err
	}
	if *exportPath != "" {
		return exportGraph(ctx, store, *exportPath, *exportFormat)
	}
	return nil
}

// exportGraph writes the store's contents to path in the given format.
func exportGraph(ctx context.Context, store graph.Store, path, format string) error {
	var data []byte
	switch format {
	case "json":
		snapshot, err := export.ExportGraph(ctx, store)
		if err != nil {
			return err
		}
		data, err = json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return err
		}
	case "mermaid":
		diagram, err := export.GenerateMermaid(ctx, store)
		if err != nil {
			return err
		}
		data = []byte(diagram)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	return os.WriteFile(path, data, 0o644)
}

// buildOnce indexes the configured repository once and prints build
// statistics as JSON.
func buildOnce(ctx context.Context, cfg *config.Config, assembler *graph.Assembler, logger *slog.Logger) error {
	repoName := cfg.RepoName
	if repoName == "" {
		abs, err := filepath.Abs(cfg.RepoRoot)
		if err != nil {
			return err
		}
		repoName = filepath.Base(abs)
	}

	files, err := collectSourceFiles(cfg.RepoRoot, cfg.ExcludeDirs)
	if err != nil {
		return err
	}
	logger.Info("indexing repository",
		slog.String("root", cfg.RepoRoot),
		slog.Int("files", len(files)))

	result, err := assembler.Build(ctx, files, repoName)
	if err != nil {
		return err
	}
	for _, fe := range result.FileErrors {
		logger.Warn("file skipped", slog.String("file", fe.FilePath), slog.String("error", fe.Err.Error()))
	}

	out, err := json.MarshalIndent(result.Stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var sourceExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

func collectSourceFiles(root string, excludeDirs []string) ([]string, error) {
	excludeSet := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		excludeSet[d] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || excludeSet[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
