package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/intersect"
)

var intersectCmd = &cobra.Command{
	Use:   "intersect",
	Short: "Run only the intersection generator over a road-segment file",
	Long: `intersect reads a road-segment file (one
"lon1,lat1,lon2,lat2,width_m,z_order,type_tag" line per directed
segment), runs the six-phase ribbon-network generator (spec §4.F), and
prints the resulting ribbon polygon count -- useful for validating road
input data independently of the full construct pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runIntersect,
}

func init() {
	rootCmd.AddCommand(intersectCmd)

	intersectCmd.Flags().String("default-material", "asphalt", "Material assigned to every ribbon")
	if err := viper.BindPFlag("intersect.default_material", intersectCmd.Flags().Lookup("default-material")); err != nil {
		panic(fmt.Sprintf("failed to bind flag default-material: %v", err))
	}
}

func runIntersect(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	segs, err := readSegments(args[0])
	if err != nil {
		return fmt.Errorf("read segments: %w", err)
	}
	if len(segs) == 0 {
		return fmt.Errorf("no segments found in %s", args[0])
	}

	material := viper.GetString("intersect.default_material")

	net := intersect.BuildNetwork(segs)
	net.AddEndpointCaps()
	net.ConstrainCorners()
	net.CompleteRibbons()
	net.ResolveMultiSegment()
	net.AssignTextures(func(typeTag string, isCap bool) (string, float64, float64, float64, float64, float64) {
		return material, 0, 1, 0, 5, 1
	})

	for _, err := range net.Dropped() {
		logger.Warn("segment/edge dropped", "error", err)
	}

	if err := net.CheckInvariants(); err != nil {
		panic(err)
	}

	ribbons := net.Edges()
	logger.Info("Intersection generation complete", "segments", len(segs), "ribbons", len(ribbons))
	fmt.Println(len(ribbons))
	return nil
}

func readSegments(path string) ([]intersect.InputSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segs []intersect.InputSegment
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 7 {
			return nil, fmt.Errorf("expected 7 comma-separated fields, got %d in line %q", len(parts), line)
		}
		lon1, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon1: %w", err)
		}
		lat1, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat1: %w", err)
		}
		lon2, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon2: %w", err)
		}
		lat2, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat2: %w", err)
		}
		widthM, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse width_m: %w", err)
		}
		zOrder, err := strconv.Atoi(strings.TrimSpace(parts[5]))
		if err != nil {
			return nil, fmt.Errorf("parse z_order: %w", err)
		}
		typeTag := strings.TrimSpace(parts[6])

		segs = append(segs, intersect.InputSegment{
			A:       geod.Geod{Lon: lon1, Lat: lat1},
			B:       geod.Geod{Lon: lon2, Lat: lat2},
			WidthM:  widthM,
			ZOrder:  zOrder,
			TypeTag: typeTag,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segs, nil
}
