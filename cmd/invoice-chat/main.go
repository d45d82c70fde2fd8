package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/invoice-chat/internal/extraction"
	"github.com/zombor/invoice-chat/internal/invoicing"
	"github.com/zombor/invoice-chat/internal/layout"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("invoice-chat")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "invoice-chat.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./invoices", "Directory for rendered invoices")
		completerType  = fs.StringLong("completer", "gemini", "Completer type: 'gemini', 'ollama', 'openai' or 'none'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llama3.2", "Ollama model name")
		openAIKey      = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel    = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI model name")
		openAIURL      = fs.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI compatible API base URL")
		extractTimeout = fs.DurationLong("extract-timeout", extraction.DefaultTimeout, "Time allowed for one completer call before the fallback parser runs")
		pageSize       = fs.StringLong("page-size", "a4", "Invoice page size: 'a4' or 'letter'")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_CHAT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	page, err := layout.PageSize(*pageSize)
	if err != nil {
		slog.Error("Invalid page size", "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := invoicing.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize completer based on type
	var completer extraction.Completer
	switch *completerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini completer...", "model", *geminiModel)
		completer, err = extraction.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama completer...", "url", *ollamaURL, "model", *ollamaModel)
		completer, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
	case "openai":
		slog.Info("Initializing OpenAI completer...", "url", *openAIURL, "model", *openAIModel)
		completer, err = extraction.NewOpenAI(extraction.OpenAIConfig{
			APIKey:  *openAIKey,
			BaseURL: *openAIURL,
			Model:   *openAIModel,
			Timeout: *extractTimeout + 5*time.Second,
		}, slog.Default())
	case "none":
		slog.Warn("No completer configured, every message goes to the fallback parser")
	default:
		slog.Error("Invalid completer type", "type", *completerType, "valid", "gemini, ollama, openai or none")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize completer", "type", *completerType, "error", err)
		os.Exit(1)
	}
	if completer != nil {
		defer completer.Close()
	}

	extractor := extraction.NewExtractor(completer, *extractTimeout, slog.Default())

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := invoicing.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	invoiceService := invoicing.NewService(db, extractor, store, invoicing.Config{
		Page:   page,
		Layout: layout.DefaultOptions(),
	})

	// Initialize server
	basicAuth := invoicing.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := invoicing.NewServer(invoiceService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
