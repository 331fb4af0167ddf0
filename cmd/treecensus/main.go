// Command treecensus serves the tree measurement QC API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/arborworks/tree-census/internal/allometry"
	"github.com/arborworks/tree-census/internal/census"
	"github.com/arborworks/tree-census/internal/config"
	"github.com/arborworks/tree-census/internal/measure"
	"github.com/arborworks/tree-census/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath  = flag.String("config", "", "path to JSON config file")
	scale       = flag.Float64("scale", 0, "calibration factor in cm per pixel (overrides config)")
	listenAddr  = flag.String("listen", config.DefaultListenAddr, "HTTP listen address (overrides config)")
	dbPath      = flag.String("db", config.DefaultDBPath, "census database path, empty disables recording (overrides config)")
	speciesPath = flag.String("species", "", "species table JSON, empty uses the embedded table (overrides config)")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("treecensus %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	registry := loadRegistry(cfg)

	measurer, err := measure.New(measure.FromConfig(cfg), registry)
	if err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	var store *census.Store
	if path := cfg.GetDBPath(); path != "" {
		store, err = census.Open(path)
		if err != nil {
			log.Fatalf("Failed to open census database: %v", err)
		}
		defer store.Close()
		log.Printf("Recording measurements to %s", path)
	} else {
		log.Print("Census recording disabled")
	}

	srv := server.NewServer(measurer, registry, store)
	banner(cfg, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpServer := &http.Server{
			Addr:    cfg.GetListenAddr(),
			Handler: srv.Handler(),
		}

		// Start the listener in its own goroutine so shutdown can be driven
		// from the signal context.
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("Graceful shutdown complete")
}

// loadConfig merges the optional config file with command line overrides.
// An explicitly set flag wins over the file value; unset flags leave the
// file value (or the documented default) in place.
func loadConfig() *config.Config {
	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["scale"] {
		cfg.ScaleCmPerPixel = scale
	}
	if set["listen"] {
		cfg.ListenAddr = listenAddr
	}
	if set["db"] {
		cfg.DBPath = dbPath
	}
	if set["species"] {
		cfg.SpeciesPath = speciesPath
	}
	return cfg
}

func loadRegistry(cfg *config.Config) *allometry.Registry {
	if path := cfg.GetSpeciesPath(); path != "" {
		registry, err := allometry.LoadFile(path)
		if err != nil {
			log.Fatalf("Failed to load species table %s: %v", path, err)
		}
		log.Printf("Loaded species table from %s", path)
		return registry
	}

	registry, err := allometry.LoadEmbedded()
	if err != nil {
		log.Fatalf("Failed to load embedded species table: %v", err)
	}
	return registry
}

// banner logs the startup summary crews read to confirm the service came up
// with the calibration and species table they expect.
func banner(cfg *config.Config, registry *allometry.Registry) {
	log.Printf("Starting Tree Census QC Service %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	log.Printf("Calibration: %g cm/pixel, edge thresholds %d/%d, blur kernel %d",
		cfg.GetScaleCmPerPixel(), cfg.GetEdgeThresholdLow(), cfg.GetEdgeThresholdHigh(), cfg.GetBlurKernelSize())
	log.Printf("Available species: %s", strings.Join(registry.Names(), ", "))
	log.Printf("Endpoints: POST /qc, POST /qc/inspect, GET /species, GET /health, GET /census/measurements, GET /census/stats")
	log.Printf("CORS enabled - clients can connect from any origin")
	log.Printf("Listening on %s", cfg.GetListenAddr())
}
