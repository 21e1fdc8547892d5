package geo

import (
	"math"
	"testing"
)

// A ~1km straight line heading north through Barcelona.
var northLine = [][2]float64{
	{2.15, 41.400},
	{2.15, 41.409},
}

func TestPointAtEndpoints(t *testing.T) {
	cum := CumulativeDistances(northLine)

	if got := PointAt(northLine, cum, -0.5); got != northLine[0] {
		t.Errorf("p <= 0 should return first coordinate, got %v", got)
	}
	if got := PointAt(northLine, cum, 0); got != northLine[0] {
		t.Errorf("p = 0 should return first coordinate, got %v", got)
	}
	if got := PointAt(northLine, cum, 1); got != northLine[1] {
		t.Errorf("p = 1 should return last coordinate, got %v", got)
	}
	if got := PointAt(northLine, cum, 2); got != northLine[1] {
		t.Errorf("p >= 1 should return last coordinate, got %v", got)
	}
}

func TestPointAtMidway(t *testing.T) {
	cum := CumulativeDistances(northLine)
	got := PointAt(northLine, cum, 0.5)
	wantLat := (northLine[0][1] + northLine[1][1]) / 2
	if math.Abs(got[1]-wantLat) > 1e-9 || got[0] != 2.15 {
		t.Errorf("midpoint = %v, want [2.15 %v]", got, wantLat)
	}
}

func TestPointAtDegenerateInputs(t *testing.T) {
	single := [][2]float64{{2.15, 41.4}}
	for _, frac := range []float64{-1, 0, 0.5, 1, 2} {
		if got := PointAt(single, nil, frac); got != single[0] {
			t.Errorf("single-point polyline at %v = %v, want %v", frac, got, single[0])
		}
	}
	if got := PointAt(nil, nil, 0.5); got != [2]float64{} {
		t.Errorf("empty polyline = %v, want zero value", got)
	}
	// Repeated coordinate: zero total length returns the first vertex.
	dup := [][2]float64{{2.15, 41.4}, {2.15, 41.4}}
	if got := PointAt(dup, nil, 0.7); got != dup[0] {
		t.Errorf("zero-length polyline = %v, want %v", got, dup[0])
	}
}

func TestPointAtWalksSegments(t *testing.T) {
	// Two equal-length legs: north then more north. 75% lands midway
	// through the second leg.
	line := [][2]float64{
		{2.15, 41.400},
		{2.15, 41.410},
		{2.15, 41.420},
	}
	cum := CumulativeDistances(line)
	got := PointAt(line, cum, 0.75)
	if math.Abs(got[1]-41.415) > 1e-6 {
		t.Errorf("75%% along = %v, want lat 41.415", got)
	}
}

func TestCumulativeDistances(t *testing.T) {
	cum := CumulativeDistances(northLine)
	if len(cum) != 2 || cum[0] != 0 {
		t.Fatalf("unexpected cumulative distances: %v", cum)
	}
	// 0.009 degrees of latitude is almost exactly 1km.
	if cum[1] < 950 || cum[1] > 1050 {
		t.Errorf("line length = %v m, want ~1000 m", cum[1])
	}
}

func TestBearingAt(t *testing.T) {
	cum := CumulativeDistances(northLine)
	if b := BearingAt(northLine, cum, 0.5); math.Abs(b) > 0.5 && math.Abs(b-360) > 0.5 {
		t.Errorf("northbound bearing = %v, want ~0", b)
	}

	east := [][2]float64{{2.15, 41.4}, {2.16, 41.4}}
	if b := BearingAt(east, nil, 0.5); math.Abs(b-90) > 0.5 {
		t.Errorf("eastbound bearing = %v, want ~90", b)
	}
}

func TestDistanceMetersAgreesWithHaversine(t *testing.T) {
	a := [2]float64{2.15, 41.400}
	b := [2]float64{2.151, 41.401}
	planar := DistanceMeters(a, b)
	sphere := Haversine(a[1], a[0], b[1], b[0])
	if math.Abs(planar-sphere) > sphere*0.01 {
		t.Errorf("planar %v vs haversine %v differ by more than 1%%", planar, sphere)
	}
}

func TestOffsetPerpendicular(t *testing.T) {
	p := [2]float64{2.15, 41.4}

	// Heading north, side +1 shifts east, side -1 shifts west.
	right := OffsetPerpendicular(p, 0, 30, +1)
	left := OffsetPerpendicular(p, 0, 30, -1)
	if right[0] <= p[0] {
		t.Errorf("side +1 of a northbound track should move east, got %v", right)
	}
	if left[0] >= p[0] {
		t.Errorf("side -1 of a northbound track should move west, got %v", left)
	}

	// The shift magnitude holds within rounding.
	if d := DistanceMeters(p, right); math.Abs(d-30) > 1 {
		t.Errorf("offset distance = %v m, want ~30 m", d)
	}

	// Opposite sides are symmetric about the original point.
	if math.Abs((right[0]-p[0])+(left[0]-p[0])) > 1e-12 {
		t.Errorf("offsets not symmetric: right %v left %v", right, left)
	}
}
