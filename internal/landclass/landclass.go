// Package landclass implements the per-tile landclass bucket and its
// strict seven-step pipeline (spec §4.H): accumulate polygons by
// area-type priority, gather boundary nodes into the tile's shared
// node set, triangulate, assign elevations, compute normals, compute
// texture coordinates, and hand off the result for serialisation.
package landclass

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/tgconstruct/tgconstruct/internal/accumulate"
	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/nodeset"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
	"github.com/tgconstruct/tgconstruct/internal/tgerr"
	"github.com/tgconstruct/tgconstruct/internal/triangulate"
)

// AreaType is one of the fixed priority-ordered classes spec §4.H step
// 1 names.
type AreaType string

const (
	AreaWater   AreaType = "water"
	AreaRoads   AreaType = "roads"
	AreaUrban   AreaType = "urban"
	AreaNatural AreaType = "natural"
	AreaDefault AreaType = "default"
)

// PriorityOrder is the fixed processing order spec §4.H step 1 names:
// "water > roads > urban > natural > default". Earlier area types
// occlude later ones through the shared accumulator.
var PriorityOrder = []AreaType{AreaWater, AreaRoads, AreaUrban, AreaNatural, AreaDefault}

// IncomingPolygon is one polygon arriving at the bucket, tagged with
// its area type.
type IncomingPolygon struct {
	Poly     polygon.Polygon
	AreaType AreaType
}

// ElevationCallback resolves a Geod's elevation in metres (spec §6).
type ElevationCallback func(g geod.Geod) float64

// minContourAngleDeg and minContourArea are the shape-degeneracy
// thresholds "remove-bad-contours" drops by (spec §4.H step 1, §7).
const (
	minContourAngleDeg = 0.05
	minContourArea     = polygon.SliverAreaThresholdB
)

// LandclassBucket owns one tile's polygon lists, shared node set,
// accumulator, and final mesh. Never shared across tiles (spec §5).
type LandclassBucket struct {
	logger *slog.Logger

	ns    *nodeset.UniqueNodeSet
	accum *accumulate.Accumulator

	kept    map[AreaType][]polygon.Polygon
	dropped []error
}

// New creates an empty bucket with its own node set and accumulator.
func New(nodeEps float64, logger *slog.Logger) *LandclassBucket {
	if logger == nil {
		logger = slog.Default()
	}
	return &LandclassBucket{
		logger: logger,
		ns:     nodeset.New(nodeEps),
		accum:  accumulate.New(),
		kept:   make(map[AreaType][]polygon.Polygon),
	}
}

// NodeSet exposes the bucket's shared node set.
func (lb *LandclassBucket) NodeSet() *nodeset.UniqueNodeSet { return lb.ns }

// Dropped returns every polygon/contour dropped while ingesting, as
// tgerr errors, for WARN/DEBUG-level logging by the caller.
func (lb *LandclassBucket) Dropped() []error { return lb.dropped }

// Ingest runs step 1: for each area type in PriorityOrder, for each of
// its incoming polygons, snap/dedup/remove-bad-contours/canonify then
// accum.DiffAndAdd, keeping every disjoint residual piece it returns.
func (lb *LandclassBucket) Ingest(incoming []IncomingPolygon) {
	byType := make(map[AreaType][]polygon.Polygon)
	for _, in := range incoming {
		byType[in.AreaType] = append(byType[in.AreaType], in.Poly)
	}

	for _, at := range PriorityOrder {
		for _, p := range byType[at] {
			cleaned, ok := lb.prepare(p)
			if !ok {
				continue
			}
			residuals, ok := lb.accum.DiffAndAdd(cleaned)
			if !ok {
				lb.logger.Debug("polygon fully occluded", "area_type", at, "material", p.Material)
				continue
			}
			lb.kept[at] = append(lb.kept[at], residuals...)
		}
	}
}

// prepare runs snap/remove-dups/remove-bad-contours/canonify on one
// incoming polygon. A degenerate boundary drops the whole polygon; a
// degenerate hole is dropped on its own.
func (lb *LandclassBucket) prepare(p polygon.Polygon) (polygon.Polygon, bool) {
	contours := make([]contour.Contour, 0, len(p.Contours))
	for i, c := range p.Contours {
		c = c.Snap(contour.DefaultSnapStep)
		c = c.RemoveDups(contour.DefaultSnapStep)
		c = c.RemoveSpikes(contour.DefaultSpikeAngleDeg)

		if isBadContour(c) {
			reason := fmt.Sprintf("contour %d of polygon material=%s", i, p.Material)
			lb.dropped = append(lb.dropped, &tgerr.Degenerate{Op: "landclass.prepare", Detail: reason})
			if i == 0 {
				return polygon.Polygon{}, false
			}
			continue
		}
		contours = append(contours, c)
	}
	if len(contours) == 0 {
		return polygon.Polygon{}, false
	}

	canon, err := polygon.Canonify(polygon.Polygon{Contours: contours, Material: p.Material, Tex: p.Tex, ID: p.ID})
	if err != nil {
		lb.dropped = append(lb.dropped, &tgerr.Degenerate{Op: "landclass.prepare", Detail: err.Error()})
		return polygon.Polygon{}, false
	}
	return canon, true
}

func isBadContour(c contour.Contour) bool {
	if c.Size() < 3 {
		return true
	}
	if math.Abs(c.Area()) < minContourArea {
		return true
	}
	return c.MinAngle() < minContourAngleDeg
}

// allPolygons returns every kept polygon across every area type, in
// PriorityOrder.
func (lb *LandclassBucket) allPolygons() []polygon.Polygon {
	var out []polygon.Polygon
	for _, at := range PriorityOrder {
		out = append(out, lb.kept[at]...)
	}
	return out
}

// GatherAndReconcile is step 2: every boundary node of every kept
// polygon is inserted into the shared node set, then every contour is
// re-run through AddColinearNodes against that same gathered list, so
// adjacent polygons that share a border end up with identical vertex
// sequences along it (T-junction elimination across polygon
// boundaries, not just within one).
func (lb *LandclassBucket) GatherAndReconcile() {
	var allNodes []geod.Geod
	for _, p := range lb.allPolygons() {
		for _, c := range p.Contours {
			allNodes = append(allNodes, c.Pts...)
		}
	}

	for at, ps := range lb.kept {
		for pi, p := range ps {
			for ci, c := range p.Contours {
				fixed, _ := c.AddColinearNodes3D(allNodes, contour.DefaultSnapStep, contour.DefaultSnapStep)
				lb.kept[at][pi].Contours[ci] = fixed
			}
		}
	}

	for _, p := range lb.allPolygons() {
		for _, c := range p.Contours {
			for _, pt := range c.Pts {
				lb.ns.Insert(pt)
			}
		}
	}
}

// Triangulate is step 3: triangulate every kept polygon against the
// shared node set (populating its Tri cache slot).
func (lb *LandclassBucket) Triangulate() {
	for at, ps := range lb.kept {
		for i, p := range ps {
			tri, err := triangulate.Build(lb.ns, p)
			if err != nil {
				lb.dropped = append(lb.dropped, err)
				continue
			}
			lb.kept[at][i].Tri = tri
		}
	}
}

// AssignElevations is step 4: every node in the shared set not flagged
// fixed_elevation gets its elevation from elev.
func (lb *LandclassBucket) AssignElevations(elev ElevationCallback) {
	for _, id := range lb.ns.All() {
		if lb.ns.Flags(id).FixedElevation {
			continue
		}
		g := lb.ns.Lookup(id)
		g.Elev = elev(g)
		lb.ns.SetElevation(id, g.Elev)
	}
}

// TileMesh is the per-tile result Finish returns: the shared node set,
// the kept polygons (each carrying its own triangulation and face
// normals; texture coordinates come from ComputeTextureCoordinates),
// and the area-weighted per-vertex normals spec §4.G requires be
// accumulated across every polygon in the tile.
type TileMesh struct {
	NodeSet       *nodeset.UniqueNodeSet
	Polygons      map[AreaType][]polygon.Polygon
	VertexNormals map[int][3]float64
}

// ComputeVertexNormals is step 5: for every node, sum the (area-weighted)
// normal of every triangle incident on it, across every polygon in the
// tile, then normalize.
func (lb *LandclassBucket) ComputeVertexNormals() map[int][3]float64 {
	sums := make(map[int][3]float64)
	for _, p := range lb.allPolygons() {
		if p.Tri == nil {
			continue
		}
		for _, f := range p.Tri.Triangles {
			area := triangleArea(lb.ns, f)
			for _, v := range [3]int{f.A, f.B, f.C} {
				s := sums[v]
				sums[v] = [3]float64{
					s[0] + f.Normal[0]*area,
					s[1] + f.Normal[1]*area,
					s[2] + f.Normal[2]*area,
				}
			}
		}
	}
	out := make(map[int][3]float64, len(sums))
	for id, n := range sums {
		length := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if length == 0 {
			continue
		}
		out[id] = [3]float64{n[0] / length, n[1] / length, n[2] / length}
	}
	return out
}

// triangleArea returns a planar-degrees cross-product magnitude as a
// cheap, locally-consistent area weight for vertex-normal averaging --
// exact metric area is unnecessary, only relative triangle size.
func triangleArea(ns *nodeset.UniqueNodeSet, f polygon.Triangle) float64 {
	a, b, c := ns.Lookup(f.A), ns.Lookup(f.B), ns.Lookup(f.C)
	ux, uy := b.Lon-a.Lon, b.Lat-a.Lat
	vx, vy := c.Lon-a.Lon, c.Lat-a.Lat
	return math.Abs(ux*vy-uy*vx) / 2
}

// ComputeTextureCoordinates is step 6: for every triangle of every
// polygon, run the polygon's texture.Params.Triangle method to get
// per-vertex (u,v). Results are flattened per area type, in the same
// polygon/triangle order Polygons[at][i].Tri.Triangles iterates, so
// internal/store's serializer can zip them back together positionally.
func (lb *LandclassBucket) ComputeTextureCoordinates() map[AreaType][][3]TexCoord {
	out := make(map[AreaType][][3]TexCoord)
	for at, ps := range lb.kept {
		for _, p := range ps {
			if p.Tri == nil {
				continue
			}
			for _, f := range p.Tri.Triangles {
				a, b, c := lb.ns.Lookup(f.A), lb.ns.Lookup(f.B), lb.ns.Lookup(f.C)
				uv := p.Tex.Triangle(a, b, c)
				out[at] = append(out[at], [3]TexCoord{
					{U: uv[0].U, V: uv[0].V},
					{U: uv[1].U, V: uv[1].V},
					{U: uv[2].U, V: uv[2].V},
				})
			}
		}
	}
	return out
}

// TexCoord is one per-triangle-vertex (u,v) pair.
type TexCoord struct{ U, V float64 }

// Finish runs steps 2-5 in order and returns the mesh. Step 6 is
// ComputeTextureCoordinates, called separately after Finish; step 7,
// serialisation itself, is internal/store's concern.
func (lb *LandclassBucket) Finish(elev ElevationCallback) *TileMesh {
	lb.GatherAndReconcile()
	lb.Triangulate()
	lb.AssignElevations(elev)
	vn := lb.ComputeVertexNormals()

	return &TileMesh{
		NodeSet:       lb.ns,
		Polygons:      lb.kept,
		VertexNormals: vn,
	}
}
