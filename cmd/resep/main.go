// Package main is the resep CLI entry point.
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

	"github.com/hyperjump/resep/internal/cli"
	"github.com/hyperjump/resep/internal/config"
	"github.com/hyperjump/resep/internal/importer"
	"github.com/hyperjump/resep/internal/metrics"
	"github.com/hyperjump/resep/internal/models"
	"github.com/hyperjump/resep/internal/recommend"
	"github.com/hyperjump/resep/internal/server"
	"github.com/hyperjump/resep/internal/storage"
	"github.com/hyperjump/resep/internal/watcher"
	"github.com/hyperjump/resep/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/resep/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	redisReadyTimeout = 10 * time.Second
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; if neither exists, built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
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

// openStore opens the configured corpus store. A Redis store is polled until it answers,
// so a server started alongside Redis does not fail its first training.
func openStore(cfg *config.Config) (storage.Store, error) {
	store, err := storage.NewStore(storage.Options{
		Driver:       cfg.Storage.Driver,
		DatabasePath: cfg.Storage.DatabasePath,
		Redis: storage.RedisConfig{
			Addrs:     cfg.Storage.Redis.Addrs,
			Username:  cfg.Storage.Redis.Username,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		},
	})
	if err != nil {
		return nil, err
	}
	if rs, ok := store.(*storage.RedisStore); ok {
		if err := rs.WaitForReady(context.Background(), redisReadyTimeout); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
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
	case "import":
		runImport()
	case "recommend":
		runRecommend()
	case "retrain":
		runRetrain()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("resep version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("debug", debugMode),
	)

	metrics.Register()

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open corpus store", zap.Error(err))
	}
	defer store.Close()

	svc := recommend.NewService(store,
		recommend.WithLogger(logger),
		recommend.WithDefaultK(cfg.Model.Neighbors),
		recommend.WithMaxK(cfg.Model.MaxNeighbors),
	)
	// The server still starts without a model; /recommend answers 503 until a retrain succeeds.
	if _, err := svc.Retrain(context.Background()); err != nil {
		logger.Warn("initial training failed, serving untrained", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Import.WatchDir != "" {
		w := newImportWatcher(watchCtx, cfg, store, svc, logger)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start import watcher", zap.Error(err))
		}
		w.SyncExistingFiles()
		logger.Info("watching import folder", zap.String("dir", w.Dir()))
	}

	srv := server.NewServer(svc, store, cfg, logger)
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
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	_ = srv.Stop(ctx)
}

// newImportWatcher imports every JSON file dropped into the import folder, archives it,
// and retrains once a burst of files has been handled.
func newImportWatcher(
	ctx context.Context,
	cfg *config.Config,
	store storage.Store,
	svc *recommend.Service,
	logger *zap.Logger,
) *watcher.Watcher {
	imp := importer.New(store,
		importer.WithDedupeByName(cfg.Import.DedupeByName),
		importer.WithLogger(logger),
	)
	onFile := func(path string) {
		if _, err := imp.ImportFile(ctx, path); err != nil {
			logger.Warn("import failed", zap.String("path", path), zap.Error(err))
			return
		}
		if dest, err := importer.Archive(path, time.Now()); err != nil {
			logger.Warn("archive failed", zap.String("path", path), zap.Error(err))
		} else {
			logger.Debug("import archived", zap.String("path", dest))
		}
	}
	onSettled := func() {
		_, _ = svc.Retrain(ctx)
	}
	return watcher.NewWatcher(cfg.Import.WatchDir, onFile,
		watcher.WithExtensions(".json"),
		watcher.WithOnSettled(onSettled),
		watcher.WithLogger(logger),
	)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "recipes.json", "JSON file holding an array of recipes")
	dedupe := fs.Bool("dedupe-by-name", false, "use the dish name as recipe id so re-imports overwrite (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := openStore(cfg)
	if err != nil {
		fmt.Printf("Failed to open corpus store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	dedupeByName := cfg.Import.DedupeByName
	if flagSet(fs, "dedupe-by-name") {
		dedupeByName = *dedupe
	}
	imp := importer.New(store, importer.WithDedupeByName(dedupeByName), importer.WithLogger(logger))
	res, err := imp.ImportFile(context.Background(), *file)
	if err != nil {
		fmt.Printf("Import failed after %d recipe(s): %v\n", res.Imported, err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d recipe(s) from %s", res.Imported, *file)
	if res.Skipped > 0 {
		fmt.Printf(" (%d skipped)", res.Skipped)
	}
	fmt.Println()
	fmt.Println("Run `resep retrain` to refresh a running server.")
}

// flagSet reports whether name was given explicitly on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: resep recommend [flags] <ingredient>...\n\n")
	fmt.Fprintf(fs.Output(), "Each argument is one ingredient; commas also separate ingredients.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  resep recommend egg milk flour
  resep recommend "soy sauce, garlic" -k 10
  resep recommend -output json chicken
`)
}

// argsReorder moves any flags (and their values) that appear after the ingredients
// to the front so that flag.Parse sees them.
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

// buildIngredients turns positional arguments into ingredient entries.
func buildIngredients(args []string) []models.Ingredient {
	var out []models.Ingredient
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if name := strings.TrimSpace(part); name != "" {
				out = append(out, models.NewIngredient(name))
			}
		}
	}
	return out
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	k := fs.Int("k", 0, "number of recommendations (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	ingredients := buildIngredients(fs.Args())
	if len(ingredients) == 0 {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	response, err := recommendViaHTTP(client, *serverURL, &models.RecommendRequest{Ingredients: ingredients, K: *k})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRetrain() {
	fs := flag.NewFlagSet("retrain", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Fitting a large corpus can take a while; no client timeout.
	response, err := retrainViaHTTP(http.DefaultClient, *serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrain failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteMessage(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(*serverURL, "/") + "/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, resp.Body); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Status failed: server returned %d: %s\n", resp.StatusCode, out.String())
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out.Bytes(), "", "  "); err != nil {
		fmt.Print(out.String())
		return
	}
	fmt.Println(pretty.String())
}

func recommendViaHTTP(client *http.Client, serverURL string, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post(strings.TrimRight(serverURL, "/")+"/recommend", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var response models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func retrainViaHTTP(client *http.Client, serverURL string) (*models.MessageResponse, error) {
	resp, err := client.Post(strings.TrimRight(serverURL, "/")+"/retrain", "application/json", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var response models.MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// serverError turns a non-200 response into an error, preferring the envelope's message.
func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var msg models.MessageResponse
	if err := json.Unmarshal(b, &msg); err == nil && msg.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg.Message)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func printUsage() {
	fmt.Print(`resep - ingredient based recipe recommendations

Usage:
  resep <command> [flags]

Commands:
  server      Train on the corpus and serve the HTTP API
  import      Import a JSON array of recipes into the corpus store
  recommend   Ask a running server for recipes matching ingredients
  retrain     Ask a running server to retrain on the current corpus
  status      Show the running server's model and store status
  version     Print the version
  help        Show this help

Run 'resep <command> -h' for command flags.
`)
}
