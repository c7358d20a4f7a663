// Package chopper splits polygons against a two-level regular lon/lat
// grid (1° top-level buckets, each subdivided 0.125°) and holds the
// resulting per-(tile, area type) buckets for persistence.
package chopper

import (
	"fmt"
	"math"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
)

// SubCellSize is the second-level grid spacing in degrees (spec §4.E).
const SubCellSize = 0.125

// subCellsPerSide is the number of 0.125° cells across one 1° tile.
const subCellsPerSide = int(1.0 / SubCellSize)

// TileID identifies a 1°x1° top-level bucket by its south-west corner.
type TileID struct {
	Lon, Lat int
}

// TileIDFor returns the 1° tile containing (lon, lat).
func TileIDFor(lon, lat float64) TileID {
	return TileID{Lon: int(math.Floor(lon)), Lat: int(math.Floor(lat))}
}

// Bounds returns t's geographic extent.
func (t TileID) Bounds() geod.Rectangle {
	return geod.Rectangle{
		MinLon: float64(t.Lon), MinLat: float64(t.Lat),
		MaxLon: float64(t.Lon + 1), MaxLat: float64(t.Lat + 1),
	}
}

// String renders t in the e/w/n/s tile-id convention the original
// toolchain used for directory naming.
func (t TileID) String() string {
	ew, lon := 'e', t.Lon
	if lon < 0 {
		ew, lon = 'w', -lon
	}
	ns, lat := 'n', t.Lat
	if lat < 0 {
		ns, lat = 's', -lat
	}
	return fmt.Sprintf("%c%03d%c%02d", ew, lon, ns, lat)
}

// SubTileID identifies a 0.125° second-level bucket within a TileID.
type SubTileID struct {
	Tile       TileID
	SubLon     int // 0..subCellsPerSide-1, west to east
	SubLat     int // 0..subCellsPerSide-1, south to north
}

// SubTileIDFor returns the 0.125° sub-cell containing (lon, lat).
func SubTileIDFor(lon, lat float64) SubTileID {
	t := TileIDFor(lon, lat)
	subLon := int(math.Floor((lon - float64(t.Lon)) / SubCellSize))
	subLat := int(math.Floor((lat - float64(t.Lat)) / SubCellSize))
	subLon = clampIndex(subLon)
	subLat = clampIndex(subLat)
	return SubTileID{Tile: t, SubLon: subLon, SubLat: subLat}
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= subCellsPerSide {
		return subCellsPerSide - 1
	}
	return i
}

// Bounds returns s's geographic extent.
func (s SubTileID) Bounds() geod.Rectangle {
	lon0 := float64(s.Tile.Lon) + float64(s.SubLon)*SubCellSize
	lat0 := float64(s.Tile.Lat) + float64(s.SubLat)*SubCellSize
	return geod.Rectangle{
		MinLon: lon0, MinLat: lat0,
		MaxLon: lon0 + SubCellSize, MaxLat: lat0 + SubCellSize,
	}
}

// String renders s as "<tile>_<sublon>_<sublat>", the key used for
// persistence (spec §4.E: "keyed by (tile_id, area_type)" -- SubTileID
// is this module's tile_id).
func (s SubTileID) String() string {
	return fmt.Sprintf("%s_%02d_%02d", s.Tile, s.SubLon, s.SubLat)
}

// Bucket holds every polygon of one area type assigned to one sub-cell.
type Bucket struct {
	SubTile  SubTileID
	AreaType string
	Polygons []polygon.Polygon
}

// Chopper accumulates the sub-cell buckets produced by repeated Add
// calls.
type Chopper struct {
	buckets map[string]*Bucket // keyed by SubTileID.String() + "/" + areaType
}

// New returns an empty Chopper.
func New() *Chopper {
	return &Chopper{buckets: make(map[string]*Bucket)}
}

// Add splits p against every 1° tile and 0.125° sub-cell it overlaps,
// discarding any residue with fewer than 3 vertices, and files each
// surviving piece into the bucket for its (sub-tile, areaType).
func (c *Chopper) Add(p polygon.Polygon, areaType string) error {
	bounds := p.Boundary().Bounds()

	minTileLon, maxTileLon := int(math.Floor(bounds.MinLon)), int(math.Floor(bounds.MaxLon))
	minTileLat, maxTileLat := int(math.Floor(bounds.MinLat)), int(math.Floor(bounds.MaxLat))

	for tlon := minTileLon; tlon <= maxTileLon; tlon++ {
		for tlat := minTileLat; tlat <= maxTileLat; tlat++ {
			tile := TileID{Lon: tlon, Lat: tlat}
			tileRect := tile.Bounds()
			if !tileRect.Intersects(bounds) {
				continue
			}
			tilePieces, err := clipToRect(p, tileRect)
			if err != nil {
				return fmt.Errorf("chopper: tile clip: %w", err)
			}
			for _, tilePiece := range tilePieces {
				c.addSubCells(tilePiece, tile, areaType)
			}
		}
	}
	return nil
}

func (c *Chopper) addSubCells(p polygon.Polygon, tile TileID, areaType string) {
	pieceBounds := p.Boundary().Bounds()
	for sublon := 0; sublon < subCellsPerSide; sublon++ {
		for sublat := 0; sublat < subCellsPerSide; sublat++ {
			sub := SubTileID{Tile: tile, SubLon: sublon, SubLat: sublat}
			subRect := sub.Bounds()
			if !subRect.Intersects(pieceBounds) {
				continue
			}
			pieces, err := clipToRect(p, subRect)
			if err != nil {
				continue
			}
			for _, piece := range pieces {
				c.file(sub, areaType, piece)
			}
		}
	}
}

func (c *Chopper) file(sub SubTileID, areaType string, p polygon.Polygon) {
	key := sub.String() + "/" + areaType
	b, ok := c.buckets[key]
	if !ok {
		b = &Bucket{SubTile: sub, AreaType: areaType}
		c.buckets[key] = b
	}
	b.Polygons = append(b.Polygons, p)
}

// clipToRect intersects p with r, converting r to a polygon via
// rectToPolygon. A non-convex p (a zigzag or dumbbell-shaped landcover
// polygon, say) can legitimately split into multiple disjoint pieces
// within a single grid cell, so every piece the clipper returns is
// kept -- collapsing to one via the single-result polygon.Intersect
// would silently drop every piece but the largest. Residues with fewer
// than 3 vertices in their boundary are dropped (spec §4.E).
func clipToRect(p polygon.Polygon, r geod.Rectangle) ([]polygon.Polygon, error) {
	rectPoly := rectToPolygon(r)
	results, err := polygon.IntersectMany(p, rectPoly)
	if err != nil {
		return nil, err
	}
	out := make([]polygon.Polygon, 0, len(results))
	for _, result := range results {
		if len(result.Contours) == 0 || result.Boundary().Size() < 3 {
			continue
		}
		result.Material = p.Material
		result.Tex = p.Tex
		result.ID = p.ID
		out = append(out, result)
	}
	return out, nil
}

func rectToPolygon(r geod.Rectangle) polygon.Polygon {
	c := contour.New([]geod.Geod{
		{Lon: r.MinLon, Lat: r.MinLat},
		{Lon: r.MaxLon, Lat: r.MinLat},
		{Lon: r.MaxLon, Lat: r.MaxLat},
		{Lon: r.MinLon, Lat: r.MaxLat},
	}, false)
	return polygon.Polygon{Contours: []contour.Contour{c.EnsureOrientation(false)}}
}

// Buckets returns every filed bucket, in no particular order.
func (c *Chopper) Buckets() []*Bucket {
	out := make([]*Bucket, 0, len(c.buckets))
	for _, b := range c.buckets {
		out = append(out, b)
	}
	return out
}

// Lookup returns the bucket for (sub, areaType), or nil if nothing was
// ever filed there.
func (c *Chopper) Lookup(sub SubTileID, areaType string) *Bucket {
	return c.buckets[sub.String()+"/"+areaType]
}
