// Package engine computes simulated train positions from static timetables.
// One generic engine serves every network; per-agency behavior (extended-day
// arithmetic, collision separation, terminal dwell) is a configuration, not
// a subclass.
package engine

import (
	"log"
	"sort"
	"sync"

	"transitsim/internal/geo"
	"transitsim/internal/timetable"
)

// RejectSlackSec is the tolerance of the cheap activity window used to skip
// obviously inactive departures before running the segment locator. It is a
// tunable heuristic, not a correctness bound.
const RejectSlackSec = 60

// Options selects per-agency behavior for an otherwise shared algorithm.
type Options struct {
	// Agency names the network, used for logging, stats, and subjects.
	Agency string
	// UseExtendedDay compares query and departure times on the extended
	// 06:00 -> ~30:00 service-day timeline, for networks whose operating
	// day crosses midnight.
	UseExtendedDay bool
	// EnableCollision runs the separation pass over shared track segments
	// after each update.
	EnableCollision bool
	// TerminalDwellSec keeps arrived trains visible (as stopped) for this
	// many seconds past their final arrival. Zero drops them immediately.
	TerminalDwellSec int
	// SharedSegments maps a directional track id to the ordered station
	// ids over which it shares rails with sibling tracks. Only consulted
	// when EnableCollision is set.
	SharedSegments map[string][]string
}

// Engine rebuilds the full active-train set for one network on every
// Update call. It holds no per-train state across ticks; the schedule and
// track tables are read-only after construction.
//
// Update requires exclusive access: a single Engine must not be updated
// from two goroutines at once. Independent engines may run in parallel.
type Engine struct {
	opts      Options
	schedules map[string]timetable.Schedule
	tracks    map[string]timetable.Track
	progress  timetable.ProgressTable

	trackIDs []string             // sorted schedule keys, for deterministic output
	cum      map[string][]float64 // per-track cumulative polyline lengths
	shared   map[string]map[string]bool

	mu       sync.Mutex
	snapshot []Train
	badTrack map[string]bool // track ids already reported missing
}

// New builds an engine over the given schedule and track tables. progress
// may be nil, in which case station positions fall back to uniform spacing.
func New(opts Options, schedules map[string]timetable.Schedule, tracks map[string]timetable.Track, progress timetable.ProgressTable) *Engine {
	ids := make([]string, 0, len(schedules))
	for id := range schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cum := make(map[string][]float64, len(tracks))
	for id, tr := range tracks {
		cum[id] = geo.CumulativeDistances(tr.Coordinates)
	}

	shared := make(map[string]map[string]bool, len(opts.SharedSegments))
	for trackID, stations := range opts.SharedSegments {
		set := make(map[string]bool, len(stations))
		for _, s := range stations {
			set[s] = true
		}
		shared[trackID] = set
	}

	return &Engine{
		opts:      opts,
		schedules: schedules,
		tracks:    tracks,
		progress:  progress,
		trackIDs:  ids,
		cum:       cum,
		shared:    shared,
		badTrack:  make(map[string]bool),
	}
}

// Agency returns the network name this engine simulates.
func (e *Engine) Agency() string { return e.opts.Agency }

// Update recomputes the active-train set for the given time-of-day. Calling
// it twice with the same input yields value-identical output. It never
// panics on partial data: departures referencing unknown tracks are skipped.
func (e *Engine) Update(currentSec int) []Train {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := normalizeDaySec(currentSec)
	if e.opts.UseExtendedDay {
		cur = timetable.ToExtendedDay(cur)
	}

	trains := make([]Train, 0, len(e.snapshot))
	seen := make(map[string]bool)
	for _, trackID := range e.trackIDs {
		sched := e.schedules[trackID]
		track, ok := e.tracks[trackID]
		if !ok {
			if !e.badTrack[trackID] {
				e.badTrack[trackID] = true
				log.Printf("engine %s: schedule references unknown track %q, skipping", e.opts.Agency, trackID)
			}
			continue
		}
		cum := e.cum[trackID]
		for _, dep := range sched.Departures {
			if seen[dep.TrainID] {
				continue
			}
			t, ok := e.buildTrain(track, cum, dep, cur)
			if !ok {
				continue
			}
			seen[dep.TrainID] = true
			trains = append(trains, t)
		}
	}

	if e.opts.EnableCollision {
		e.separate(trains)
	}

	e.snapshot = trains
	return trains
}

// buildTrain evaluates one departure against the current instant. The
// second return value is false when the train is not visible.
func (e *Engine) buildTrain(track timetable.Track, cum []float64, dep timetable.Departure, cur int) (Train, bool) {
	depSec := normalizeDaySec(dep.DepartureSec)
	if e.opts.UseExtendedDay {
		depSec = timetable.ToExtendedDay(depSec)
	}
	elapsed := cur - depSec

	if elapsed < -RejectSlackSec || elapsed > dep.TotalTravelSec+e.opts.TerminalDwellSec+RejectSlackSec {
		return Train{}, false
	}

	loc := locate(dep.Stations, elapsed)
	switch loc.status {
	case StatusWaiting:
		return Train{}, false
	case StatusArrived:
		if loc.fromIdx < 0 {
			return Train{}, false // empty visit list
		}
		final := dep.Stations[loc.fromIdx].ArrivalOffsetSec
		if e.opts.TerminalDwellSec <= 0 || elapsed >= final+e.opts.TerminalDwellSec {
			return Train{}, false
		}
		// Shown dwelling at the terminus until the dwell window closes.
		loc.status = StatusStopped
	}

	count := len(dep.Stations)
	from := dep.Stations[loc.fromIdx]
	fromFrac := timetable.StationFraction(e.progress, track.ID, from.StationID, loc.fromIdx, count)

	overall := fromFrac
	t := Train{
		TrainID:         dep.TrainID,
		TrackID:         track.ID,
		Agency:          e.opts.Agency,
		DepartureTime:   timetable.FormatDaySeconds(dep.DepartureSec),
		TotalTravelSec:  dep.TotalTravelSec,
		Status:          loc.status,
		FromStationID:   from.StationID,
		SegmentProgress: loc.segProgress,
		Origin:          dep.Stations[0].StationID,
		Destination:     dep.Stations[count-1].StationID,
		PrevDeparture:   timetable.FormatDaySeconds(dep.DepartureSec + from.DepartureOffsetSec),
	}
	if loc.nextIdx >= 0 {
		next := dep.Stations[loc.nextIdx]
		nextFrac := timetable.StationFraction(e.progress, track.ID, next.StationID, loc.nextIdx, count)
		if loc.status == StatusRunning {
			overall = fromFrac + (nextFrac-fromFrac)*loc.segProgress
		}
		t.NextStationID = next.StationID
		t.NextArrival = timetable.FormatDaySeconds(dep.DepartureSec + next.ArrivalOffsetSec)
	}

	t.Progress = overall
	t.Position = geo.PointAt(track.Coordinates, cum, overall)
	t.Bearing = geo.BearingAt(track.Coordinates, cum, overall)
	return t, true
}

// ActiveTrains returns the last computed snapshot without recomputation.
func (e *Engine) ActiveTrains() []Train {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Train, len(e.snapshot))
	copy(out, e.snapshot)
	return out
}

// Stats summarizes the last computed snapshot.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{Total: len(e.snapshot), ByTrack: make(map[string]int)}
	for _, t := range e.snapshot {
		switch t.Status {
		case StatusRunning:
			s.Running++
		case StatusStopped:
			s.Stopped++
		}
		s.ByTrack[t.TrackID]++
	}
	return s
}

func normalizeDaySec(sec int) int {
	sec %= 86400
	if sec < 0 {
		sec += 86400
	}
	return sec
}
