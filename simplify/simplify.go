// Package simplify reduces track geometries with the Ramer-Douglas-Peucker
// algorithm.
//
// The reduction runs on the planar 2D projection of each path through
// github.com/paulmach/orb/simplify. Retained vertices are mapped back onto
// the original positions, so any altitude or measure beyond the second
// ordinate survives.
package simplify

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	orbsimplify "github.com/paulmach/orb/simplify"
)

// Geometry simplifies g in place and reports how many vertices were removed.
// Points, MultiPoints and collections of them are left untouched, as is any
// geometry when tolerance is not positive.
func Geometry(g *geojson.Geometry, tolerance float64) int {
	if g == nil || tolerance <= 0 {
		return 0
	}
	s := orbsimplify.DouglasPeucker(tolerance)

	removed := 0
	switch g.Type {
	case geojson.GeometryLineString:
		g.LineString, removed = path(s, g.LineString, false)
	case geojson.GeometryMultiLineString:
		for i, ls := range g.MultiLineString {
			var n int
			g.MultiLineString[i], n = path(s, ls, false)
			removed += n
		}
	case geojson.GeometryPolygon:
		removed = polygon(s, g.Polygon)
	case geojson.GeometryMultiPolygon:
		for _, p := range g.MultiPolygon {
			removed += polygon(s, p)
		}
	case geojson.GeometryCollection:
		for _, child := range g.Geometries {
			removed += Geometry(child, tolerance)
		}
	}
	return removed
}

func polygon(s *orbsimplify.DouglasPeuckerSimplifier, rings [][][]float64) int {
	removed := 0
	for i, r := range rings {
		var n int
		rings[i], n = path(s, r, true)
		removed += n
	}
	return removed
}

// path simplifies one line or ring. Rings that would collapse below four
// positions are kept as they were.
func path(s *orbsimplify.DouglasPeuckerSimplifier, positions [][]float64, ring bool) ([][]float64, int) {
	if len(positions) <= 2 {
		return positions, 0
	}

	var kept []orb.Point
	if ring {
		r, ok := s.Simplify(toRing(positions)).(orb.Ring)
		if !ok || len(r) < 4 {
			return positions, 0
		}
		kept = r
	} else {
		ls, ok := s.Simplify(toLineString(positions)).(orb.LineString)
		if !ok || len(ls) < 2 {
			return positions, 0
		}
		kept = ls
	}

	out := restore(positions, kept)
	return out, len(positions) - len(out)
}

// restore maps the simplified vertices back onto the original positions.
// Both endpoints always survive Douglas-Peucker, so they are pinned to the
// first and last position. Inner vertices are matched forward between them;
// on a revisited 2D point the earliest candidate is the one the simplifier
// kept.
func restore(positions [][]float64, kept []orb.Point) [][]float64 {
	n := len(positions)
	if len(kept) < 2 || !same(positions[0], kept[0]) || !same(positions[n-1], kept[len(kept)-1]) {
		return positions
	}

	out := make([][]float64, 0, len(kept))
	out = append(out, positions[0])
	i := 1
	for _, p := range kept[1 : len(kept)-1] {
		matched := false
		for i < n-1 {
			pos := positions[i]
			i++
			if same(pos, p) {
				out = append(out, pos)
				matched = true
				break
			}
		}
		if !matched {
			return positions
		}
	}
	return append(out, positions[n-1])
}

func same(pos []float64, p orb.Point) bool {
	return len(pos) >= 2 && pos[0] == p[0] && pos[1] == p[1]
}

func toLineString(positions [][]float64) orb.LineString {
	ls := make(orb.LineString, 0, len(positions))
	for _, p := range positions {
		ls = append(ls, toPoint(p))
	}
	return ls
}

func toRing(positions [][]float64) orb.Ring {
	return orb.Ring(toLineString(positions))
}

func toPoint(p []float64) orb.Point {
	if len(p) < 2 {
		return orb.Point{}
	}
	return orb.Point{p[0], p[1]}
}
