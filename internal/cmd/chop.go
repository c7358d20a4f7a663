package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
	"github.com/tgconstruct/tgconstruct/internal/idgen"
	"github.com/tgconstruct/tgconstruct/internal/store"
	"github.com/tgconstruct/tgconstruct/internal/tiletask"
)

var chopCmd = &cobra.Command{
	Use:   "chop",
	Short: "Run only the chopper over a directory of inputs and persist the buckets",
	Long: `chop decodes every .geojson file in --input-dir and files the
resulting polygons into the tile/sub-tile grid, persisting each
(sub_tile, area_type) bucket to the store without running the
triangulation pipeline -- useful for inspecting how input data
distributes across the grid before committing to a full construct run.`,
	RunE: runChop,
}

func init() {
	rootCmd.AddCommand(chopCmd)

	chopCmd.Flags().String("input-dir", "./input", "Directory of .geojson input files")

	if err := viper.BindPFlag("chop.input_dir", chopCmd.Flags().Lookup("input-dir")); err != nil {
		panic(fmt.Sprintf("failed to bind flag input-dir: %v", err))
	}
}

func runChop(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inputDir := viper.GetString("chop.input_dir")
	storePath := viper.GetString("store")

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

	var savedBuckets int
	for _, b := range c.Buckets() {
		if err := s.SaveBucket(b); err != nil {
			return fmt.Errorf("save bucket %s/%s: %w", b.SubTile, b.AreaType, err)
		}
		savedBuckets++
	}

	if err := s.CheckpointCounter(ids.Current()); err != nil {
		return fmt.Errorf("checkpoint polygon id counter: %w", err)
	}

	logger.Info("Chop complete",
		"files", len(files),
		"polygons", filed,
		"buckets", savedBuckets,
		"tiles", len(tileIDsOf(c)),
	)
	return nil
}
