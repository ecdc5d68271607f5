package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ironsheep/plate-reader/internal/config"
	"github.com/ironsheep/plate-reader/internal/logging"
	"github.com/ironsheep/plate-reader/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("plate-reader-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("plate-reader-mcp - MCP server for license plate recognition")
			fmt.Println()
			fmt.Println("Usage: plate-reader-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  PLATE_LOG_LEVEL=debug        Log level (debug, info, warn, error)")
			fmt.Println("  OCR_BACKEND=tesseract        tesseract, rekognition or none")
			fmt.Println("  DETECTOR_URL=http://...      Enable the learned plate detector")
			fmt.Println("  PLATE_LOCALE=international   Plate rule table")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if os.Getenv("IMAGE_MCP_LOG_LEVEL") == "debug" {
		level = "debug"
	}
	// Logs go to stderr; stdout is for MCP protocol frames.
	log := logging.NewLogger("plate-mcp", logging.ParseLevel(level))
	log.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	rt, err := cfg.BuildRuntime(context.Background(), log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	srv := server.New(rt.Detector, server.WithLogger(log.With("component", "mcp")))
	if err := srv.Run(); err != nil {
		log.Error("server error", "error", err)
		rt.Close()
		os.Exit(1)
	}
}
