// Package geo provides the bounding-box math used to roll individual asset
// coordinates up into site-level extents, plus geohash labels for the
// resulting boxes.
package geo

import "github.com/mmcloughlin/geohash"

// HashChars is the geohash precision used for box labels. Eight characters
// resolves to roughly 20 meters, well under any site extent.
const HashChars = 8

// Point is one located asset. Depth is meters below surface.
type Point struct {
	Lat   float64
	Lon   float64
	Depth float64
}

// Box is a geospatial bounding box with a depth range.
type Box struct {
	LatNorth float64
	LatSouth float64
	LonEast  float64
	LonWest  float64
	DepthMin float64
	DepthMax float64
}

// BoundPoints returns the smallest box containing every point. ok is false
// when pts is empty.
func BoundPoints(pts []Point) (b Box, ok bool) {
	if len(pts) == 0 {
		return Box{}, false
	}
	b = Box{
		LatNorth: pts[0].Lat, LatSouth: pts[0].Lat,
		LonEast: pts[0].Lon, LonWest: pts[0].Lon,
		DepthMin: pts[0].Depth, DepthMax: pts[0].Depth,
	}
	for _, p := range pts[1:] {
		b.LatNorth = max(b.LatNorth, p.Lat)
		b.LatSouth = min(b.LatSouth, p.Lat)
		b.LonEast = max(b.LonEast, p.Lon)
		b.LonWest = min(b.LonWest, p.Lon)
		b.DepthMin = min(b.DepthMin, p.Depth)
		b.DepthMax = max(b.DepthMax, p.Depth)
	}
	return b, true
}

// BoundBoxes returns the smallest box containing every given box. ok is
// false when boxes is empty.
func BoundBoxes(boxes []Box) (b Box, ok bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	b = boxes[0]
	for _, x := range boxes[1:] {
		b.LatNorth = max(b.LatNorth, x.LatNorth)
		b.LatSouth = min(b.LatSouth, x.LatSouth)
		b.LonEast = max(b.LonEast, x.LonEast)
		b.LonWest = min(b.LonWest, x.LonWest)
		b.DepthMin = min(b.DepthMin, x.DepthMin)
		b.DepthMax = max(b.DepthMax, x.DepthMax)
	}
	return b, true
}

// Center returns the box's midpoint.
func (b Box) Center() (lat, lon float64) {
	return (b.LatNorth + b.LatSouth) / 2, (b.LonEast + b.LonWest) / 2
}

// Hash returns the geohash of the box's center at HashChars precision.
func (b Box) Hash() string {
	lat, lon := b.Center()
	return geohash.EncodeWithPrecision(lat, lon, HashChars)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
