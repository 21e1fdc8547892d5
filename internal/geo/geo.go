// Package geo provides the planar polyline math the train engines rely on:
// cumulative lengths, fractional interpolation, and local bearings.
// Coordinates are [lng, lat] pairs. Interpolation is planar with a haversine
// length metric, which is accurate enough at city scale.
package geo

import "math"

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Bearing returns the initial bearing from point 1 to point 2 in degrees (0-360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// CumulativeDistances returns the running length in meters at each vertex of
// the polyline. The first entry is always 0.
func CumulativeDistances(coords [][2]float64) []float64 {
	n := len(coords)
	if n == 0 {
		return nil
	}
	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + Haversine(
			coords[i-1][1], coords[i-1][0],
			coords[i][1], coords[i][0],
		)
	}
	return cum
}

// PointAt returns the coordinate at fractional position frac along the
// polyline. frac <= 0 yields the first vertex, frac >= 1 the last, and a
// single-vertex polyline yields that vertex for any frac. cum may be nil, in
// which case it is computed on the fly.
func PointAt(coords [][2]float64, cum []float64, frac float64) [2]float64 {
	n := len(coords)
	if n == 0 {
		return [2]float64{}
	}
	if n == 1 {
		return coords[0]
	}
	if len(cum) != n {
		cum = CumulativeDistances(coords)
	}
	total := cum[n-1]
	if total == 0 {
		return coords[0]
	}
	if frac <= 0 {
		return coords[0]
	}
	if frac >= 1 {
		return coords[n-1]
	}
	target := frac * total
	i := 1
	for i < n && cum[i] < target {
		i++
	}
	if i >= n {
		return coords[n-1]
	}
	d0 := cum[i-1]
	d1 := cum[i]
	if d1 == d0 {
		return coords[i-1]
	}
	t := (target - d0) / (d1 - d0)
	return [2]float64{
		coords[i-1][0] + (coords[i][0]-coords[i-1][0])*t,
		coords[i-1][1] + (coords[i][1]-coords[i-1][1])*t,
	}
}

// BearingAt returns the direction of travel in degrees at fractional
// position frac, taken from the polyline segment containing that position.
func BearingAt(coords [][2]float64, cum []float64, frac float64) float64 {
	n := len(coords)
	if n < 2 {
		return 0
	}
	if len(cum) != n {
		cum = CumulativeDistances(coords)
	}
	total := cum[n-1]
	i := 1
	if total > 0 && frac > 0 {
		target := frac * total
		if target >= total {
			i = n - 1
		} else {
			for i < n && cum[i] < target {
				i++
			}
			if i >= n {
				i = n - 1
			}
		}
	}
	a := coords[i-1]
	b := coords[i]
	return Bearing(a[1], a[0], b[1], b[0])
}

// DistanceMeters approximates the planar distance between two [lng, lat]
// points using an equirectangular projection centered on the first point.
// Cheap enough for the pairwise collision pass.
func DistanceMeters(a, b [2]float64) float64 {
	latRad := a[1] * math.Pi / 180
	dx := (b[0] - a[0]) * math.Pi / 180 * earthRadiusMeters * math.Cos(latRad)
	dy := (b[1] - a[1]) * math.Pi / 180 * earthRadiusMeters
	return math.Sqrt(dx*dx + dy*dy)
}

// OffsetPerpendicular shifts a [lng, lat] point sideways from a direction of
// travel. bearingDeg is the track direction, meters the shift magnitude, and
// side +1 or -1 picks which side of the track.
func OffsetPerpendicular(p [2]float64, bearingDeg, meters float64, side float64) [2]float64 {
	perp := (bearingDeg + 90*side) * math.Pi / 180
	latRad := p[1] * math.Pi / 180
	dLat := meters * math.Cos(perp) / earthRadiusMeters * 180 / math.Pi
	dLng := meters * math.Sin(perp) / (earthRadiusMeters * math.Cos(latRad)) * 180 / math.Pi
	return [2]float64{p[0] + dLng, p[1] + dLat}
}
