package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/pixel-snap-mcp/internal/server"
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
			fmt.Printf("pixel-snap-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("pixel-snap-mcp - MCP server that recovers clean pixel art from photos and screenshots")
			fmt.Println()
			fmt.Println("Usage: pixelsnap-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=debug    Enable debug logging\n", server.EnvLogLevel)
			fmt.Printf("  %s=N       Default palette size (default 32)\n", server.EnvMaxColors)
			fmt.Printf("  %s=N             Fixed seed for palette and calibration sampling\n", server.EnvSeed)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := server.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug {
		log.Printf("Pixel Snap MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Config: max_colors=%d seeded=%v", cfg.MaxColors, cfg.HasSeed)
	}

	if Version != "dev" {
		server.Version = Version
	}

	srv := server.NewWithConfig(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
