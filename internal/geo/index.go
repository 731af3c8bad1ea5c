package geo

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/model"
)

// ErrEmptyIndex is returned when an index is built from no points.
var ErrEmptyIndex = eris.New("geo: no boundary points to index")

// Index answers exact nearest-boundary queries under the haversine metric.
//
// Points are stored as unit vectors in a static k-d tree laid out implicitly
// over a slice: the node for the range [lo, hi) sits at (lo+hi)/2. Chord
// length grows strictly with central angle, so the chord-nearest point is also
// the great-circle-nearest one. An Index is immutable after NewIndex returns
// and is safe for concurrent use.
type Index struct {
	points []model.BoundaryPoint
	coords []vec3
	axes   []uint8
}

// NewIndex builds an Index over a copy of points.
func NewIndex(points []model.BoundaryPoint) (*Index, error) {
	if len(points) == 0 {
		return nil, ErrEmptyIndex
	}

	idx := &Index{
		points: make([]model.BoundaryPoint, len(points)),
		coords: make([]vec3, len(points)),
		axes:   make([]uint8, len(points)),
	}
	copy(idx.points, points)
	for i, p := range idx.points {
		idx.coords[i] = toUnit(p.Lat, p.Lon)
	}
	idx.build(0, len(points))
	return idx, nil
}

// Len returns the number of indexed points.
func (x *Index) Len() int { return len(x.points) }

// Nearest returns the great-circle distance in kilometers from (lat, lon) to
// the closest indexed point, and that point.
func (x *Index) Nearest(lat, lon float64) (float64, model.BoundaryPoint) {
	s := searcher{x: x, q: toUnit(lat, lon), best: -1, bestD2: math.Inf(1)}
	s.search(0, len(x.coords))
	p := x.points[s.best]
	return HaversineKM(lat, lon, p.Lat, p.Lon), p
}

// NearestKM returns only the distance part of Nearest.
func (x *Index) NearestKM(lat, lon float64) float64 {
	d, _ := x.Nearest(lat, lon)
	return d
}

func (x *Index) build(lo, hi int) {
	if hi-lo <= 1 {
		return
	}
	axis, spread := x.widestAxis(lo, hi)
	mid := (lo + hi) / 2
	x.axes[mid] = uint8(axis)
	// Zero spread means every point in the range is identical; any order works.
	if spread > 0 {
		x.selectNth(lo, hi-1, mid, axis)
	}
	x.build(lo, mid)
	x.build(mid+1, hi)
}

func (x *Index) widestAxis(lo, hi int) (int, float64) {
	minV := x.coords[lo]
	maxV := x.coords[lo]
	for _, c := range x.coords[lo+1 : hi] {
		for a := 0; a < 3; a++ {
			minV[a] = math.Min(minV[a], c[a])
			maxV[a] = math.Max(maxV[a], c[a])
		}
	}
	axis := 0
	for a := 1; a < 3; a++ {
		if maxV[a]-minV[a] > maxV[axis]-minV[axis] {
			axis = a
		}
	}
	return axis, maxV[axis] - minV[axis]
}

// selectNth partially orders [lo, hi] so that position n holds the element
// that a full sort on axis would put there.
func (x *Index) selectNth(lo, hi, n, axis int) {
	for lo < hi {
		p := x.partition(lo, hi, (lo+hi)/2, axis)
		switch {
		case p == n:
			return
		case n < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func (x *Index) partition(lo, hi, pivot, axis int) int {
	pv := x.coords[pivot][axis]
	x.swap(pivot, hi)
	i := lo
	for j := lo; j < hi; j++ {
		if x.coords[j][axis] < pv {
			x.swap(i, j)
			i++
		}
	}
	x.swap(i, hi)
	return i
}

func (x *Index) swap(i, j int) {
	x.coords[i], x.coords[j] = x.coords[j], x.coords[i]
	x.points[i], x.points[j] = x.points[j], x.points[i]
}

type searcher struct {
	x      *Index
	q      vec3
	best   int
	bestD2 float64
}

func (s *searcher) search(lo, hi int) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	c := s.x.coords[mid]
	if d2 := chord2(s.q, c); d2 < s.bestD2 {
		s.best = mid
		s.bestD2 = d2
	}

	axis := s.x.axes[mid]
	diff := s.q[axis] - c[axis]
	if diff < 0 {
		s.search(lo, mid)
		if diff*diff < s.bestD2 {
			s.search(mid+1, hi)
		}
		return
	}
	s.search(mid+1, hi)
	if diff*diff < s.bestD2 {
		s.search(lo, mid)
	}
}
