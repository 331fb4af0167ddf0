// Command treebatch measures a manifest of trunk photos in parallel and
// writes the results as CSV, one line per photo in manifest order.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/arborworks/tree-census/internal/allometry"
	"github.com/arborworks/tree-census/internal/census"
	"github.com/arborworks/tree-census/internal/config"
	"github.com/arborworks/tree-census/internal/measure"
	"github.com/arborworks/tree-census/internal/units"
)

var (
	manifestPath = flag.String("manifest", "", "CSV manifest of image_path,species rows (required)")
	outPath      = flag.String("out", "", "output CSV path, default stdout")
	workers      = flag.Int("workers", runtime.NumCPU(), "parallel measurement workers")
	configPath   = flag.String("config", "", "path to JSON config file")
	scale        = flag.Float64("scale", 0, "calibration factor in cm per pixel (overrides config)")
	speciesPath  = flag.String("species", "", "species table JSON, empty uses the embedded table")
	dbPath       = flag.String("db", "", "census database to record successful rows into, empty disables")
)

// row is one manifest line and its outcome. Workers write only their own
// row, so the slice can be shared without locking and the output keeps the
// manifest order whatever order the workers finish in.
type row struct {
	imagePath string
	species   string

	result *measure.Result
	err    error
}

func main() {
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if *manifestPath == "" {
		return errors.New("-manifest is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	measurer, err := measure.New(measure.FromConfig(cfg), registry)
	if err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}

	rows, err := readManifest(*manifestPath)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("manifest %s has no measurement rows", *manifestPath)
	}

	log.Printf("Measuring %d photos across %d workers", len(rows), *workers)
	measureAll(measurer, rows, *workers)

	if *dbPath != "" {
		store, err := census.Open(*dbPath)
		if err != nil {
			return fmt.Errorf("open census database: %w", err)
		}
		defer store.Close()
		recordAll(store, rows)
	}

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	failed, err := writeResults(out, rows)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rows failed", failed, len(rows))
	}

	log.Printf("All %d rows measured", len(rows))
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", *configPath, err)
		}
		cfg = loaded
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["scale"] {
		cfg.ScaleCmPerPixel = scale
	}
	if set["species"] {
		cfg.SpeciesPath = speciesPath
	}
	return cfg, nil
}

func loadRegistry(cfg *config.Config) (*allometry.Registry, error) {
	if path := cfg.GetSpeciesPath(); path != "" {
		registry, err := allometry.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load species table %s: %w", path, err)
		}
		return registry, nil
	}
	return allometry.LoadEmbedded()
}

// readManifest parses the CSV manifest. Each record is image_path followed
// by an optional species; a first record whose first field is "image_path"
// is treated as a header and skipped.
func readManifest(path string) ([]*row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	var rows []*row
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		first := strings.TrimSpace(record[0])
		if i == 0 && strings.EqualFold(first, "image_path") {
			continue
		}
		if first == "" {
			return nil, fmt.Errorf("manifest row %d: empty image_path", i+1)
		}

		r := &row{imagePath: first}
		if len(record) > 1 {
			r.species = strings.TrimSpace(record[1])
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// measureAll fans the rows out across a fixed worker pool. Rows are
// independent and the Measurer is safe for concurrent use.
func measureAll(measurer *measure.Measurer, rows []*row, workers int) {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *row)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				r.result, r.err = measurer.Measure(r.imagePath, r.species)
			}
		}()
	}

	for _, r := range rows {
		jobs <- r
	}
	close(jobs)
	wg.Wait()
}

// recordAll inserts the successful rows into the census store. Failures are
// logged and do not fail the batch; the CSV output is the source of truth.
func recordAll(store *census.Store, rows []*row) {
	for _, r := range rows {
		if r.err != nil {
			continue
		}
		m := &census.Measurement{
			ImagePath:     r.imagePath,
			Species:       r.result.Species,
			PixelDiameter: r.result.PixelDiameter,
			DBHCm:         r.result.DBHCm,
			GirthCm:       r.result.GirthCm,
			HeightM:       r.result.HeightM,
			CanopyM:       r.result.CanopyM,
		}
		if err := store.Insert(m); err != nil {
			log.Printf("failed to record %s: %v", r.imagePath, err)
		}
	}
}

// writeResults writes one CSV line per manifest row, in manifest order, and
// returns how many rows failed.
func writeResults(w io.Writer, rows []*row) (failed int, err error) {
	cw := csv.NewWriter(w)
	cw.Write([]string{"image_path", "species", "dbh_cm", "girth_cm", "height_m", "canopy_m", "error"})

	for _, r := range rows {
		if r.err != nil {
			failed++
			cw.Write([]string{r.imagePath, r.species, "", "", "", "", r.err.Error()})
			continue
		}
		cw.Write([]string{
			r.imagePath,
			r.result.Species,
			formatMetric(r.result.DBHCm),
			formatMetric(r.result.GirthCm),
			formatMetric(r.result.HeightM),
			formatMetric(r.result.CanopyM),
			"",
		})
	}

	cw.Flush()
	return failed, cw.Error()
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(units.Round1(v), 'f', 1, 64)
}
