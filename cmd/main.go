// Package main is the entry point for the compaqt compression service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/rs/zerolog/log"

	"github.com/compaqt/compaqt/internal/config"
	"github.com/compaqt/compaqt/internal/gateway"
	"github.com/compaqt/compaqt/internal/monitoring"
)

// ANSI color codes
const (
	compaqtBlue = "\033[38;2;43;108;176m" // #2b6cb0
	bold        = "\033[1m"
	reset       = "\033[0m"
)

// ASCII banner for startup
const banner = `
  ██████╗ ██████╗ ███╗   ███╗██████╗  █████╗  ██████╗ ████████╗
 ██╔════╝██╔═══██╗████╗ ████║██╔══██╗██╔══██╗██╔═══██╗╚══██╔══╝
 ██║     ██║   ██║██╔████╔██║██████╔╝███████║██║   ██║   ██║
 ██║     ██║   ██║██║╚██╔╝██║██╔═══╝ ██╔══██║██║▄▄ ██║   ██║
 ╚██████╗╚██████╔╝██║ ╚═╝ ██║██║     ██║  ██║╚██████╔╝   ██║
  ╚═════╝ ╚═════╝ ╚═╝     ╚═╝╚═╝     ╚═╝  ╚═╝ ╚══▀▀═╝    ╚═╝
`

func printBanner() {
	fmt.Print(compaqtBlue + bold + banner + reset + "\n")
}

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/compaqt/.env first
	configEnv := filepath.Join(homeDir, ".config", "compaqt", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve", "start":
			runServer(os.Args[2:])
			return
		case "version", "-v", "--version":
			PrintVersion()
			return
		case "help", "-h", "--help":
			printHelp()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			printHelp()
			os.Exit(2)
		}
	}

	// Default: run the server
	runServer(os.Args[1:])
}

// resolveConfig resolves the config for the serve command.
// Checks: user flag -> filesystem locations -> embedded default.
// Returns raw bytes and source description.
func resolveConfig(userConfig string) ([]byte, string, error) {
	if userConfig != "" {
		data, err := os.ReadFile(userConfig)
		if err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", userConfig)
		}
		return data, userConfig, nil
	}

	homeDir, _ := os.UserHomeDir()

	searchPaths := []string{}
	if homeDir != "" {
		searchPaths = append(searchPaths,
			filepath.Join(homeDir, ".config", "compaqt", "config.yaml"),
		)
	}
	searchPaths = append(searchPaths, "configs/config.yaml")

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, nil
		}
	}

	// Fall back to embedded default
	if data, err := getEmbeddedConfig("config"); err == nil {
		return data, "(embedded) config.yaml", nil
	}

	return nil, "", fmt.Errorf("no config file found. Specify --config path")
}

// runServer starts the compression service.
func runServer(args []string) {
	loadEnvFiles()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	noBanner := fs.Bool("no-banner", false, "suppress startup banner")
	_ = fs.Parse(args) // ExitOnError handles errors

	if !*noBanner {
		printBanner()
	}

	configData, configSource, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromBytes(configData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid configuration in %s: %v\n", configSource, err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging, *debug)

	log.Info().
		Str("version", Version).
		Str("config", configSource).
		Msg("compaqt starting")
	log.Info().
		Int("port", cfg.Server.Port).
		Str("tokenizer", cfg.Tokenizer.Encoding).
		Str("embeddings", cfg.Embeddings.Provider).
		Msg("configuration loaded")

	gw := gateway.New(cfg)

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := gw.Start(); err != nil {
		if err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("gateway error")
		}
	}

	log.Info().Msg("compaqt stopped")
}

// setupLogging configures the global zerolog logger. An empty format in the
// config auto-selects console output when stdout is a terminal.
func setupLogging(cfg monitoring.LoggerConfig, debug bool) {
	if cfg.Format == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			cfg.Format = "console"
		} else {
			cfg.Format = "json"
		}
	}
	if debug {
		cfg.Level = "debug"
	}
	monitoring.Global(cfg)
}

// printHelp prints usage information
func printHelp() {
	printBanner()
	fmt.Println("compaqt - code and prompt compression service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  compaqt [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  (none)       Start the compression server (same as serve)")
	fmt.Println("  serve        Start the compression server")
	fmt.Println("  version      Print version information")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config FILE    Config file (default: embedded config)")
	fmt.Println("  --debug          Enable debug logging")
	fmt.Println("  --no-banner      Suppress startup banner")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  compaqt serve                      Start with the embedded defaults")
	fmt.Println("  compaqt serve --config my.yaml     Start with a custom config")
	fmt.Println("  COMPAQT_PORT=9000 compaqt serve    Override the port via environment")
}
