// Package ioadapt adapts external vector data (GeoJSON, or any
// pluggable VectorSource) into the pipeline's InputPolygon shape (spec
// §6), and declares the two external-collaborator callback shapes
// (ElevationCallback, TextureInfoCallback) of the input interface. The
// pipeline stages that take callbacks, landclass and intersect, each
// declare their own callback type.
package ioadapt

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
	"github.com/tgconstruct/tgconstruct/internal/texture"
)

// RawContour is one decoded ring: ordered points plus a hole flag,
// mirroring orb.Ring before it is lifted into a contour.Contour.
type RawContour struct {
	Points []geod.Geod
	Hole   bool
}

// InputPolygon is one polygon arriving from the outside world, tagged
// with everything the pipeline needs to route and style it (spec §6).
type InputPolygon struct {
	Contours []RawContour
	AreaType string
	Material string
	Width    float64
	ZOrder   float64
	TypeTag  string
}

// TextureInfoCallback resolves ribbon texture parameters by type tag
// (spec §6), with vDistM metres per v=1. internal/intersect's phase 6
// takes its own intersect.TextureInfoCallback, which returns a v0/v1
// envelope instead of vDistM, so a value of this type is not passed to
// it directly.
type TextureInfoCallback func(typeTag string, isCap bool) (material string, u0, u1, vDistM, vRepeat float64)

// ElevationCallback resolves a Geod's elevation in metres (spec §6).
type ElevationCallback func(g geod.Geod) float64

// VectorSource is the pluggable external collaborator that hands input
// polygons to a tile task; a GeoJSON file, a database query, or a test
// fixture can all implement it.
type VectorSource interface {
	Polygons() ([]InputPolygon, error)
}

// ring converts an orb.Ring to a RawContour.
func ring(r orb.Ring, hole bool) RawContour {
	pts := make([]geod.Geod, len(r))
	for i, p := range r {
		pts[i] = geod.Geod{Lon: p[0], Lat: p[1]}
	}
	return RawContour{Points: pts, Hole: hole}
}

// FromGeometry lifts an orb.Geometry into zero or more InputPolygons,
// tagged uniformly with the given routing/styling metadata. Point and
// LineString geometries are skipped (the pipeline has no area to file
// them under); orb.Polygon yields one InputPolygon, orb.MultiPolygon
// yields one per member polygon.
func FromGeometry(g orb.Geometry, areaType, material string, width, zOrder float64, typeTag string) []InputPolygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return []InputPolygon{polygonFrom(geom, areaType, material, width, zOrder, typeTag)}
	case orb.MultiPolygon:
		out := make([]InputPolygon, 0, len(geom))
		for _, p := range geom {
			out = append(out, polygonFrom(p, areaType, material, width, zOrder, typeTag))
		}
		return out
	default:
		return nil
	}
}

func polygonFrom(p orb.Polygon, areaType, material string, width, zOrder float64, typeTag string) InputPolygon {
	contours := make([]RawContour, len(p))
	for i, r := range p {
		contours[i] = ring(r, i > 0)
	}
	return InputPolygon{
		Contours: contours,
		AreaType: areaType,
		Material: material,
		Width:    width,
		ZOrder:   zOrder,
		TypeTag:  typeTag,
	}
}

// ToPolygon lifts an InputPolygon into the pipeline's internal
// polygon.Polygon, the boundary being the first contour and every
// later contour a hole regardless of what RawContour.Hole says for
// index 0 (spec §3's Polygon invariant: at most one non-hole contour).
func ToPolygon(ip InputPolygon) (polygon.Polygon, error) {
	if len(ip.Contours) == 0 {
		return polygon.Polygon{}, fmt.Errorf("ioadapt: input polygon has no contours")
	}
	boundary := contour.New(ip.Contours[0].Points, false)
	holes := make([]contour.Contour, 0, len(ip.Contours)-1)
	for _, rc := range ip.Contours[1:] {
		holes = append(holes, contour.New(rc.Points, true))
	}
	return polygon.New(boundary, holes, ip.Material), nil
}

// DecodeFeatureCollection decodes a GeoJSON FeatureCollection and
// classifies each feature's geometry into InputPolygons via classify,
// which inspects the feature's properties to decide routing/styling.
func DecodeFeatureCollection(data []byte, classify func(props map[string]interface{}) (areaType, material string, width, zOrder float64, typeTag string)) ([]InputPolygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("ioadapt: decode feature collection: %w", err)
	}

	var out []InputPolygon
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		areaType, material, width, zOrder, typeTag := classify(f.Properties)
		out = append(out, FromGeometry(f.Geometry, areaType, material, width, zOrder, typeTag)...)
	}
	return out, nil
}

// RunwayPolygon builds a runway (or taxiway/marking) footprint as an
// InputPolygon plus its uv_by_runway texture.Params, the shape
// original_source/src/Airports/GenAirports850/runway.hxx's
// gen_wgs84_area computes from a threshold point, length, width and
// heading (spec EXPANSION 4.J): a rectangle extending lengthM along
// headingDeg from threshold, widthM wide, centred on the runway axis.
func RunwayPolygon(threshold geod.Geod, lengthM, widthM, headingDeg float64, areaType, material string) (InputPolygon, texture.Params) {
	halfWidth := widthM / 2
	leftAz := headingDeg - 90
	rightAz := headingDeg + 90

	nearLeft := geod.Forward(threshold, leftAz, halfWidth)
	nearRight := geod.Forward(threshold, rightAz, halfWidth)

	farCentre := geod.Forward(threshold, headingDeg, lengthM)
	farLeft := geod.Forward(farCentre, leftAz, halfWidth)
	farRight := geod.Forward(farCentre, rightAz, halfWidth)

	boundary := RawContour{
		Points: []geod.Geod{nearLeft, farLeft, farRight, nearRight},
		Hole:   false,
	}

	ip := InputPolygon{
		Contours: []RawContour{boundary},
		AreaType: areaType,
		Material: material,
		TypeTag:  areaType,
	}
	params := texture.Params{
		Method:     texture.ByRunway,
		Reference:  threshold,
		WidthM:     widthM,
		LengthM:    lengthM,
		HeadingDeg: headingDeg,
	}
	return ip, params
}
