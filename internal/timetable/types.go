package timetable

// Track is one directional, single-route polyline.
// Coordinates are [lng, lat] pairs, read-only after load.
type Track struct {
	ID          string
	Coordinates [][2]float64
}

// StationVisit is one scheduled stop within a departure. Offsets are
// seconds relative to the departure time and non-decreasing along the list.
type StationVisit struct {
	StationID          string
	ArrivalOffsetSec   int
	DepartureOffsetSec int
}

// Departure is one scheduled run of a train along a track.
type Departure struct {
	TrainID        string
	DepartureTime  string // "HH:MM:SS", may exceed 24h for overnight runs
	DepartureSec   int    // seconds since midnight (can exceed 24h)
	TotalTravelSec int
	Stations       []StationVisit
}

// Schedule holds every departure for a single track.
type Schedule struct {
	TrackID    string
	Departures []Departure
}

// ProgressTable maps track id -> station id -> fractional position [0,1]
// along the track polyline. Entries may be missing for any station.
type ProgressTable map[string]map[string]float64

// StationFraction resolves a station's fractional position along its track,
// falling back to uniform spacing (index / (count-1)) when the progress
// table has no entry.
func StationFraction(table ProgressTable, trackID, stationID string, index, count int) float64 {
	if table != nil {
		if stops, ok := table[trackID]; ok {
			if frac, ok := stops[stationID]; ok {
				return clampFrac(frac)
			}
		}
	}
	if count <= 1 {
		return 0
	}
	return clampFrac(float64(index) / float64(count-1))
}

func clampFrac(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
