// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. A missing default file falls back to built-in defaults so the
// server runs with no config at all.
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
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Credentials come from the environment; .env is a development convenience.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "query":
		runQuery()
	case "answer":
		runAnswer()
	case "stats":
		runStats()
	case "status":
		runStatus()
	case "reset":
		runReset()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
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
		zap.Bool("debug", debugMode),
	)

	p, err := initializePipeline(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	srv := server.NewServer(p, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// initializePipeline builds the retrieval pipeline from config and the
// environment. A missing embedding or generation credential degrades the
// corresponding component; a missing store credential is fatal because the
// store has no fallback.
func initializePipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	var provider embedding.Provider
	if apiKey := os.Getenv(cfg.Embedding.APIKeyEnv); apiKey != "" {
		gemini, err := embedding.NewGeminiProvider(embedding.GeminiConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Embedding.Model,
			Timeout: time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		provider = gemini
	} else {
		logger.Warn("embedding credential not set, all embeddings use the deterministic fallback",
			zap.String("env", cfg.Embedding.APIKeyEnv))
	}
	embedder := embedding.NewClient(provider, cfg.Embedding.Dimensions,
		embedding.WithLogger(logger),
		embedding.WithCache(cfg.Embedding.CacheSize),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
	)

	var store vectorstore.Store
	switch cfg.Store.Provider {
	case "memory":
		store = vectorstore.NewMemory(cfg.Store.Collection)
	default:
		chroma, err := vectorstore.NewChroma(vectorstore.ChromaConfig{
			BaseURL:  cfg.Store.BaseURL,
			APIKey:   os.Getenv(cfg.Store.APIKeyEnv),
			Tenant:   os.Getenv(cfg.Store.TenantEnv),
			Database: os.Getenv(cfg.Store.DatabaseEnv),
			Timeout:  time.Duration(cfg.Store.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		store = chroma
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.UseCollection(ctx, cfg.Store.Collection); err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", cfg.Store.Collection, err)
	}

	var generator answer.Generator
	if apiKey := os.Getenv(cfg.Generation.APIKeyEnv); apiKey != "" {
		gemini, err := answer.NewGeminiGenerator(answer.GeminiConfig{
			BaseURL: cfg.Generation.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.Generation.Model,
			Timeout: time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		generator = gemini
	} else {
		logger.Warn("generation credential not set, all answers use the extractive fallback",
			zap.String("env", cfg.Generation.APIKeyEnv))
	}
	synthesizer := answer.NewSynthesizer(generator,
		answer.WithLogger(logger),
		answer.WithTimeout(time.Duration(cfg.Generation.TimeoutSeconds)*time.Second),
	)

	return pipeline.New(extract.NewExtractor(), ch, embedder, store, synthesizer,
		pipeline.WithLogger(logger)), nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:5001", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	res, err := uploadViaHTTP(*serverURL, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Uploaded %s: %d chunk(s) into collection %q (upload %s)\n",
		filepath.Base(path), res.Chunks, res.Collection, res.UploadID)
}

func uploadViaHTTP(serverURL, path string) (*models.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := http.Post(serverURL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var res models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:5001", "server URL")
	topK := fs.Int("top-k", models.DefaultTopK, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	queryStr := buildQueryText(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kotae query [flags] <question>")
		os.Exit(1)
	}

	resp, err := postJSON(*serverURL+"/api/query", models.Query{Query: queryStr, TopK: *topK})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	var out struct {
		Results []models.RetrievalResult `json:"results"`
		Count   int                      `json:"count"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		printJSON(out)
		return
	}
	if out.Count == 0 {
		fmt.Println("No matching chunks found.")
		return
	}
	for _, res := range out.Results {
		fmt.Printf("%d. [%.4f] %s (%s)\n", res.Rank, res.SimilarityScore, utils.Truncate(res.Text, 120), res.ChunkID)
	}
}

func runAnswer() {
	fs := flag.NewFlagSet("answer", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:5001", "server URL")
	topK := fs.Int("top-k", models.DefaultTopK, "number of source chunks")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	queryStr := buildQueryText(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kotae answer [flags] <question>")
		os.Exit(1)
	}

	resp, err := postJSON(*serverURL+"/api/answer", models.Query{Query: queryStr, TopK: *topK})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Answer failed: %v\n", err)
		os.Exit(1)
	}
	var pkg models.AnswerPackage
	if err := json.Unmarshal(resp, &pkg); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		printJSON(pkg)
		return
	}
	fmt.Println(pkg.Answer)
	fmt.Printf("\n(%s from %d source chunk(s))\n", pkg.SynthesisMethod, pkg.SourceCount)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:5001", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/stats")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Stats failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		ChunkCount int `json:"chunk_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("chunks: %d\n", out.ChunkCount)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:5001", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var h models.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		printJSON(h)
		return
	}
	fmt.Printf("status:              %s\n", h.Status)
	fmt.Printf("embedding provider:  %t\n", h.EmbeddingProviderOK)
	fmt.Printf("vector store:        %t\n", h.StoreOK)
	fmt.Printf("active collection:   %s\n", h.ActiveCollection)
}

func runReset() {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:5001", "server URL")
	_ = fs.Parse(os.Args[2:])

	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/reset", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reset failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Reset failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Println("Collection reset.")
}

func postJSON(endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return b, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`kotae - Retrieval-augmented question answering over your documents

Usage:
  kotae server [flags]             Start the HTTP server
  kotae upload [flags] <file>      Upload a document (.txt, .md, .pdf)
  kotae query [flags] <question>   Retrieve similar chunks
  kotae answer [flags] <question>  Retrieve and synthesize an answer
  kotae stats [flags]              Show stored chunk count
  kotae status [flags]             Show provider and store health
  kotae reset [flags]              Empty the active collection
  kotae version                    Show version
  kotae help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Client Flags (upload/query/answer/stats/status/reset):
  --server string    Server URL (default: http://localhost:5001)
  --top-k int        Number of results for query/answer (default: 5)
  --output string    Output format for query/answer/status: text or json

Environment:
  GOOGLE_API_KEY     Gemini credential for embeddings and generation
  CHROMA_API_KEY     Chroma Cloud API key
  CHROMA_TENANT      Chroma tenant id
  CHROMA_DATABASE    Chroma database name

Examples:
  kotae server
  kotae upload notes.pdf
  kotae query vector databases
  kotae answer "what is retrieval augmented generation?"
  kotae answer --output json "what is RAG?"
  kotae status
  kotae reset`)
}
