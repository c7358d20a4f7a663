// Package tiletask wires the chopper, landclass, and store packages
// into one worker.TileBuilder: everything a tile-processing goroutine
// needs to turn a chopper's filed buckets for one 1°x1° tile into
// persisted, triangulated meshes (spec §5). It plays the orchestrator
// role the teacher's internal/pipeline.Generator played for PNG
// rendering -- same Options-struct/logger-field/constructor-validation
// shape, new domain.
package tiletask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/idgen"
	"github.com/tgconstruct/tgconstruct/internal/ioadapt"
	"github.com/tgconstruct/tgconstruct/internal/landclass"
	"github.com/tgconstruct/tgconstruct/internal/store"
	"github.com/tgconstruct/tgconstruct/internal/tgerr"
)

// NodeEpsilon is the default 2-D equality epsilon for a tile's
// landclass node set (tighter than internal/intersect's, since polygon
// boundaries are already canonified by the time they reach here).
const NodeEpsilon = 1e-9

// Builder implements worker.TileBuilder: it builds and persists every
// sub-tile a Chopper has buckets for within a given 1° TileID.
type Builder struct {
	Chopper *chopper.Chopper
	Store   *store.TileStore
	Elev    landclass.ElevationCallback
	logger  *slog.Logger
}

// New checks that c and s are non-nil, fills in defaults for a nil elev
// or logger, and returns a ready Builder.
func New(c *chopper.Chopper, s *store.TileStore, elev landclass.ElevationCallback, logger *slog.Logger) (*Builder, error) {
	if c == nil {
		return nil, fmt.Errorf("tiletask: nil chopper")
	}
	if s == nil {
		return nil, fmt.Errorf("tiletask: nil store")
	}
	if elev == nil {
		elev = func(geod.Geod) float64 { return 0 }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Chopper: c, Store: s, Elev: elev, logger: logger}, nil
}

func (b *Builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}

// BuildTile runs the full landclass pipeline (spec §4.H) for every
// sub-tile of id that the Chopper filed buckets under, then persists
// each resulting mesh. A per-sub-tile error is logged at WARN and does
// not stop the other sub-tiles; an *tgerr.Invariant is re-raised as a
// panic, which ends the process (spec §7). Under worker.Pool that panic
// happens on a worker goroutine.
func (b *Builder) BuildTile(ctx context.Context, id chopper.TileID) error {
	subTiles := b.subTilesFor(id)
	if len(subTiles) == 0 {
		return nil
	}

	var failed int
	for _, sub := range subTiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := b.buildSubTile(sub); err != nil {
			var inv *tgerr.Invariant
			if errors.As(err, &inv) {
				panic(inv)
			}
			b.log().Warn("sub-tile build failed", "sub_tile", sub.String(), "error", err)
			failed++
		}
	}
	if failed == len(subTiles) {
		return fmt.Errorf("tiletask: all %d sub-tiles of %s failed", failed, id)
	}
	return nil
}

// subTilesFor returns the distinct SubTileIDs the Chopper has any
// bucket for within id.
func (b *Builder) subTilesFor(id chopper.TileID) []chopper.SubTileID {
	seen := make(map[chopper.SubTileID]bool)
	var out []chopper.SubTileID
	for _, bucket := range b.Chopper.Buckets() {
		if bucket.SubTile.Tile != id {
			continue
		}
		if !seen[bucket.SubTile] {
			seen[bucket.SubTile] = true
			out = append(out, bucket.SubTile)
		}
	}
	return out
}

// buildSubTile runs the seven-step landclass pipeline for one sub-tile
// and persists the resulting mesh and its source buckets.
func (b *Builder) buildSubTile(sub chopper.SubTileID) error {
	lb := landclass.New(NodeEpsilon, b.log())

	var incoming []landclass.IncomingPolygon
	for _, at := range landclass.PriorityOrder {
		bucket := b.Chopper.Lookup(sub, string(at))
		if bucket == nil {
			continue
		}
		if err := b.Store.SaveBucket(bucket); err != nil {
			return fmt.Errorf("tiletask: save bucket %s/%s: %w", sub, at, err)
		}
		for _, p := range bucket.Polygons {
			incoming = append(incoming, landclass.IncomingPolygon{Poly: p, AreaType: at})
		}
	}
	if len(incoming) == 0 {
		return nil
	}

	lb.Ingest(incoming)
	mesh := lb.Finish(b.Elev)
	uvs := lb.ComputeTextureCoordinates()

	if err := b.Store.SaveMesh(sub.String(), mesh, uvs); err != nil {
		return fmt.Errorf("tiletask: save mesh %s: %w", sub, err)
	}
	return nil
}

// DecodeAndChop decodes a GeoJSON byte stream via ioadapt, stamps each
// resulting polygon with the next id from ids (spec §5's process-wide
// polygon-id counter), and files it into c -- the step the
// construct/chop subcommands share ahead of the per-tile pipeline.
func DecodeAndChop(c *chopper.Chopper, ids *idgen.Counter, data []byte, classify func(props map[string]interface{}) (areaType, material string, width, zOrder float64, typeTag string)) (int, error) {
	ips, err := ioadapt.DecodeFeatureCollection(data, classify)
	if err != nil {
		return 0, fmt.Errorf("tiletask: decode: %w", err)
	}
	var filed int
	for _, ip := range ips {
		p, err := ioadapt.ToPolygon(ip)
		if err != nil {
			continue
		}
		p.ID = int(ids.Next())
		if err := c.Add(p, ip.AreaType); err != nil {
			return filed, fmt.Errorf("tiletask: chop: %w", err)
		}
		filed++
	}
	return filed, nil
}
