package engine

import (
	"sort"
	"strings"

	"transitsim/internal/geo"
)

const (
	// CollisionThresholdMeters is the planar distance below which two
	// trains on shared rails are considered visually overlapping.
	CollisionThresholdMeters = 50.0
	// separationOffsetMeters is the perpendicular shift applied to each
	// train of a colliding pair.
	separationOffsetMeters = 30.0
)

// separate runs the collision & separation pass over a freshly built
// snapshot. Route variants that share rails over defined station ranges
// would otherwise draw overlapping markers for trains that are not in a
// real-world conflict; each colliding pair is nudged to opposite sides of
// the track.
//
// The pass is a single sweep over positions as built by Update: it mutates
// only Position, Collided, and Offset, and re-running it over its own
// output does not compound offsets (an already-offset train is not paired
// again within the sweep).
func (e *Engine) separate(trains []Train) {
	// Group candidates by travel direction; only trains whose current or
	// next station lies on a shared segment can conflict.
	groups := make(map[string][]*Train)
	for i := range trains {
		t := &trains[i]
		stations, ok := e.shared[t.TrackID]
		if !ok {
			continue
		}
		if !stations[t.FromStationID] && !stations[t.NextStationID] {
			continue
		}
		dir := trackDirection(t.TrackID)
		groups[dir] = append(groups[dir], t)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		// Stable 2D ordering keeps offset assignment deterministic
		// across ticks.
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.Position[0] != b.Position[0] {
				return a.Position[0] < b.Position[0]
			}
			if a.Position[1] != b.Position[1] {
				return a.Position[1] < b.Position[1]
			}
			return a.TrainID < b.TrainID
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.Collided || b.Collided {
					continue
				}
				// A real station legitimately holds multiple
				// trains on separate platforms.
				if a.Status == StatusStopped && b.Status == StatusStopped {
					continue
				}
				if geo.DistanceMeters(a.Position, b.Position) >= CollisionThresholdMeters {
					continue
				}
				e.offsetTrain(a, -1)
				e.offsetTrain(b, +1)
			}
		}
	}
}

// offsetTrain shifts a train perpendicular to its own track's local bearing
// and records the collision flag and offset vector.
func (e *Engine) offsetTrain(t *Train, side float64) {
	bearing := t.Bearing
	if track, ok := e.tracks[t.TrackID]; ok {
		bearing = geo.BearingAt(track.Coordinates, e.cum[t.TrackID], t.Progress)
	}
	shifted := geo.OffsetPerpendicular(t.Position, bearing, separationOffsetMeters, side)
	t.Collided = true
	t.Offset = [2]float64{shifted[0] - t.Position[0], shifted[1] - t.Position[1]}
	t.Position = shifted
}

// trackDirection derives the travel direction from the track id's trailing
// suffix ("L1-0" and "L1-express-0" run the same way). Ids without a suffix
// form their own group.
func trackDirection(trackID string) string {
	if i := strings.LastIndex(trackID, "-"); i >= 0 && i+1 < len(trackID) {
		return trackID[i+1:]
	}
	return trackID
}
