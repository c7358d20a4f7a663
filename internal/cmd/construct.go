package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/idgen"
	"github.com/tgconstruct/tgconstruct/internal/landclass"
	"github.com/tgconstruct/tgconstruct/internal/store"
	"github.com/tgconstruct/tgconstruct/internal/tiletask"
	"github.com/tgconstruct/tgconstruct/internal/worker"
)

var constructCmd = &cobra.Command{
	Use:   "construct",
	Short: "Run the full per-tile pipeline over a directory of decoded inputs",
	Long: `construct decodes every .geojson file in --input-dir, chops the
resulting polygons against the tile/sub-tile grid, and runs the
seven-step landclass pipeline (ingest, reconcile, triangulate, assign
elevations, compute normals and texture coordinates, persist) for
every touched tile, in parallel across --workers goroutines.`,
	RunE: runConstruct,
}

func init() {
	rootCmd.AddCommand(constructCmd)

	constructCmd.Flags().String("input-dir", "./input", "Directory of .geojson input files")
	constructCmd.Flags().IntP("workers", "w", 0, "Number of parallel tile workers (default: number of CPUs)")
	constructCmd.Flags().Bool("progress", true, "Show a progress bar while tiles build")

	for _, bf := range []struct{ key, flag string }{
		{"construct.input_dir", "input-dir"},
		{"construct.workers", "workers"},
		{"construct.progress", "progress"},
	} {
		if err := viper.BindPFlag(bf.key, constructCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runConstruct(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inputDir := viper.GetString("construct.input_dir")
	workers := viper.GetInt("construct.workers")
	showProgress := viper.GetBool("construct.progress")
	storePath := viper.GetString("store")

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	ids := idgen.New(0)
	if restored, ok, err := s.RestoreCounter(); err != nil {
		return fmt.Errorf("restore polygon id counter: %w", err)
	} else if ok {
		ids = idgen.New(restored)
	}

	files, err := geojsonFiles(inputDir)
	if err != nil {
		return fmt.Errorf("scan input dir: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .geojson files found in %s", inputDir)
	}

	c := chopper.New()
	var filed int
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		n, err := tiletask.DecodeAndChop(c, ids, data, classifyByProperties)
		if err != nil {
			return fmt.Errorf("decode %s: %w", f, err)
		}
		filed += n
	}
	logger.Info("Chopped input polygons", "files", len(files), "polygons", filed)

	if err := s.CheckpointCounter(ids.Current()); err != nil {
		return fmt.Errorf("checkpoint polygon id counter: %w", err)
	}

	builder, err := tiletask.New(c, s, flatElevation, logger)
	if err != nil {
		return fmt.Errorf("init tile builder: %w", err)
	}

	tiles := tileIDsOf(c)
	tasks := make([]worker.Task, 0, len(tiles))
	for _, t := range tiles {
		tasks = append(tasks, worker.Task{Tile: t})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, cancelling...")
		cancel()
	}()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Builder:    builder,
		OnProgress: progress.Callback(),
	})

	logger.Info("Building tiles", "count", len(tasks), "workers", workers)
	results := runPoolRecovering(pool, ctx, tasks)
	progress.Done()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("Tile build failed", "tile", r.Task.Tile.String(), "error", r.Err)
		}
	}
	logger.Info(progress.Summary())

	if failed > 0 {
		return fmt.Errorf("%d tiles failed to build", failed)
	}
	return nil
}

// runPoolRecovering runs pool.Run and logs any panic that reaches this
// goroutine before re-panicking, so the process exits non-zero. Tile
// builds run on the pool's worker goroutines, so a panic raised inside
// BuildTile (such as tiletask's *tgerr.Invariant panic) does not pass
// through this recover: it ends the process from the worker goroutine,
// without this log line.
func runPoolRecovering(pool *worker.Pool, ctx context.Context, tasks []worker.Task) (results []worker.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("invariant violation, aborting", "detail", r)
			panic(r)
		}
	}()
	return pool.Run(ctx, tasks)
}

func geojsonFiles(dir string) ([]string, error) {
	var out []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".geojson") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// classifyByProperties is the default GeoJSON feature classifier: it
// reads area_type/material/width/z_order/type_tag properties, falling
// back to the "default" area type when area_type is absent.
func classifyByProperties(props map[string]interface{}) (areaType, material string, width, zOrder float64, typeTag string) {
	areaType = stringProp(props, "area_type", string(landclass.AreaDefault))
	material = stringProp(props, "material", "")
	width = floatProp(props, "width")
	zOrder = floatProp(props, "z_order")
	typeTag = stringProp(props, "type_tag", areaType)
	return
}

func stringProp(props map[string]interface{}, key, fallback string) string {
	if v, ok := props[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatProp(props map[string]interface{}, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	default:
		return 0
	}
}

func flatElevation(geod.Geod) float64 { return 0 }

func tileIDsOf(c *chopper.Chopper) []chopper.TileID {
	seen := make(map[chopper.TileID]bool)
	var out []chopper.TileID
	for _, b := range c.Buckets() {
		t := b.SubTile.Tile
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
