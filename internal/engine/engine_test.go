package engine

import (
	"reflect"
	"testing"

	"transitsim/internal/geo"
	"transitsim/internal/timetable"
)

// testTrack is a straight ~1km northbound line.
func testTrack(id string) timetable.Track {
	return timetable.Track{
		ID: id,
		Coordinates: [][2]float64{
			{2.15, 41.400},
			{2.15, 41.409},
		},
	}
}

func testSchedule(trackID, trainID string, depTime string, visits []timetable.StationVisit) timetable.Schedule {
	total := 0
	if len(visits) > 0 {
		total = visits[len(visits)-1].ArrivalOffsetSec
	}
	return timetable.Schedule{
		TrackID: trackID,
		Departures: []timetable.Departure{{
			TrainID:        trainID,
			DepartureTime:  depTime,
			DepartureSec:   timetable.ParseDaySeconds(depTime),
			TotalTravelSec: total,
			Stations:       visits,
		}},
	}
}

func newTestEngine(opts Options, schedules map[string]timetable.Schedule, tracks map[string]timetable.Track, progress timetable.ProgressTable) *Engine {
	if opts.Agency == "" {
		opts.Agency = "test"
	}
	return New(opts, schedules, tracks, progress)
}

func TestUpdateIsDeterministic(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	at := 12*3600 + 80
	first := e.Update(at)
	second := e.Update(at)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two updates at the same instant differ:\n%+v\n%+v", first, second)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 train, got %d", len(first))
	}
}

func TestUpdateVisibilityWindow(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	dep := 12 * 3600
	arrival := dep + 260
	dwell := 120
	e := newTestEngine(Options{TerminalDwellSec: dwell}, schedules, tracks, nil)

	tests := []struct {
		name    string
		at      int
		visible bool
		status  Status
	}{
		{name: "before departure", at: dep - 1, visible: false},
		{name: "departure instant", at: dep, visible: true, status: StatusStopped},
		{name: "mid run", at: dep + 80, visible: true, status: StatusRunning},
		{name: "terminal dwell", at: arrival + dwell - 1, visible: true, status: StatusStopped},
		{name: "dwell expired", at: arrival + dwell, visible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trains := e.Update(tt.at)
			if tt.visible != (len(trains) == 1) {
				t.Fatalf("visible = %v, want %v (%d trains)", len(trains) == 1, tt.visible, len(trains))
			}
			if tt.visible && trains[0].Status != tt.status {
				t.Errorf("status = %s, want %s", trains[0].Status, tt.status)
			}
		})
	}
}

func TestUpdateZeroDwellDropsArrivedImmediately(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	if trains := e.Update(12*3600 + 260); len(trains) != 0 {
		t.Errorf("arrived train visible with zero dwell: %+v", trains)
	}
}

func TestUpdateMonotonicProgress(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{TerminalDwellSec: 60}, schedules, tracks, nil)

	prev := -1.0
	for at := 12 * 3600; at <= 12*3600+260; at++ {
		trains := e.Update(at)
		if len(trains) != 1 {
			t.Fatalf("train missing at t=%d", at)
		}
		if trains[0].Progress < prev {
			t.Fatalf("progress decreased at t=%d: %v -> %v", at, prev, trains[0].Progress)
		}
		prev = trains[0].Progress
	}
	if prev != 1 {
		t.Errorf("final progress = %v, want 1", prev)
	}
}

func TestUpdateExtendedDayCrossesMidnight(t *testing.T) {
	// Departs 23:50 with 2400s of travel; queried at 00:10, the train is
	// halfway, not a wraparound artifact.
	visits := []timetable.StationVisit{
		{StationID: "A", ArrivalOffsetSec: 0, DepartureOffsetSec: 0},
		{StationID: "B", ArrivalOffsetSec: 2400, DepartureOffsetSec: 2400},
	}
	tracks := map[string]timetable.Track{"N1-0": testTrack("N1-0")}
	schedules := map[string]timetable.Schedule{
		"N1-0": testSchedule("N1-0", "NIGHT1", "23:50:00", visits),
	}

	e := newTestEngine(Options{UseExtendedDay: true}, schedules, tracks, nil)
	trains := e.Update(600) // 00:10:00
	if len(trains) != 1 {
		t.Fatalf("expected the overnight train, got %d trains", len(trains))
	}
	tr := trains[0]
	if tr.Status != StatusRunning {
		t.Errorf("status = %s, want running", tr.Status)
	}
	if tr.Progress != 0.5 {
		t.Errorf("progress = %v, want 0.5", tr.Progress)
	}

	// Without extended-day handling the naive elapsed is hugely negative
	// and the train invisible.
	naive := newTestEngine(Options{}, schedules, tracks, nil)
	if trains := naive.Update(600); len(trains) != 0 {
		t.Errorf("naive engine should not see the overnight train, got %d", len(trains))
	}
}

func TestUpdateSkipsUnknownTrack(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0":  testSchedule("L1-0", "T1", "12:00:00", threeStops),
		"GHOST": testSchedule("GHOST", "T2", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	trains := e.Update(12*3600 + 80)
	if len(trains) != 1 || trains[0].TrainID != "T1" {
		t.Errorf("expected only T1 to survive the missing track, got %+v", trains)
	}
}

func TestUpdateDeduplicatesTrainIDs(t *testing.T) {
	tracks := map[string]timetable.Track{
		"L1-0": testTrack("L1-0"),
		"L2-0": testTrack("L2-0"),
	}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
		"L2-0": testSchedule("L2-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	trains := e.Update(12*3600 + 80)
	if len(trains) != 1 {
		t.Errorf("train id should appear at most once per tick, got %d entries", len(trains))
	}
}

func TestUpdatePositionUsesProgressTable(t *testing.T) {
	track := testTrack("L1-0")
	tracks := map[string]timetable.Track{"L1-0": track}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	progress := timetable.ProgressTable{
		"L1-0": {"A": 0.0, "B": 0.8, "C": 1.0},
	}
	e := newTestEngine(Options{}, schedules, tracks, progress)

	// Dwelling at B: position is exactly B's table fraction.
	trains := e.Update(12*3600 + 140)
	if len(trains) != 1 {
		t.Fatalf("expected 1 train, got %d", len(trains))
	}
	want := geo.PointAt(track.Coordinates, nil, 0.8)
	if trains[0].Position != want {
		t.Errorf("stopped position = %v, want %v", trains[0].Position, want)
	}
	if trains[0].Progress != 0.8 {
		t.Errorf("overall progress = %v, want 0.8", trains[0].Progress)
	}
}

func TestUpdateUniformFallbackPosition(t *testing.T) {
	// 5 stations, no table: station index 2 resolves to fraction 0.5.
	visits := []timetable.StationVisit{
		{StationID: "S0", ArrivalOffsetSec: 0, DepartureOffsetSec: 10},
		{StationID: "S1", ArrivalOffsetSec: 100, DepartureOffsetSec: 110},
		{StationID: "S2", ArrivalOffsetSec: 200, DepartureOffsetSec: 210},
		{StationID: "S3", ArrivalOffsetSec: 300, DepartureOffsetSec: 310},
		{StationID: "S4", ArrivalOffsetSec: 400, DepartureOffsetSec: 400},
	}
	track := testTrack("L1-0")
	tracks := map[string]timetable.Track{"L1-0": track}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", visits),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	trains := e.Update(12*3600 + 205) // dwelling at S2
	if len(trains) != 1 {
		t.Fatalf("expected 1 train, got %d", len(trains))
	}
	if trains[0].Progress != 0.5 {
		t.Errorf("progress at middle station = %v, want 0.5", trains[0].Progress)
	}
	want := geo.PointAt(track.Coordinates, nil, 0.5)
	if trains[0].Position != want {
		t.Errorf("position = %v, want track midpoint %v", trains[0].Position, want)
	}
}

func TestUpdateBoundaryContinuity(t *testing.T) {
	// Crossing B's arrival instant: running -> stopped, segment progress
	// resets, and the position step stays within one second of travel.
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	before := e.Update(12*3600 + 129)
	after := e.Update(12*3600 + 130)
	if len(before) != 1 || len(after) != 1 {
		t.Fatal("train missing around the arrival boundary")
	}
	if before[0].Status != StatusRunning || after[0].Status != StatusStopped {
		t.Fatalf("statuses = %s -> %s, want running -> stopped", before[0].Status, after[0].Status)
	}
	if after[0].SegmentProgress != 0 {
		t.Errorf("segment progress after arrival = %v, want 0", after[0].SegmentProgress)
	}
	// The 100s leg covers half the 1km track: one second is ~5m.
	step := geo.DistanceMeters(before[0].Position, after[0].Position)
	if step > 10 {
		t.Errorf("position discontinuity of %v m at arrival boundary", step)
	}
}

func TestUpdateInformationalFields(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{Agency: "commuter"}, schedules, tracks, nil)

	trains := e.Update(12*3600 + 80) // running A -> B
	if len(trains) != 1 {
		t.Fatalf("expected 1 train, got %d", len(trains))
	}
	tr := trains[0]
	if tr.Agency != "commuter" || tr.TrackID != "L1-0" {
		t.Errorf("identity fields wrong: %+v", tr)
	}
	if tr.Origin != "A" || tr.Destination != "C" {
		t.Errorf("origin/destination = %s/%s, want A/C", tr.Origin, tr.Destination)
	}
	if tr.FromStationID != "A" || tr.NextStationID != "B" {
		t.Errorf("from/next = %s/%s, want A/B", tr.FromStationID, tr.NextStationID)
	}
	if tr.PrevDeparture != "12:00:30" {
		t.Errorf("prev departure = %s, want 12:00:30", tr.PrevDeparture)
	}
	if tr.NextArrival != "12:02:10" {
		t.Errorf("next arrival = %s, want 12:02:10", tr.NextArrival)
	}
	if tr.DepartureTime != "12:00:00" {
		t.Errorf("departure time = %s, want 12:00:00", tr.DepartureTime)
	}
}

func TestActiveTrainsReturnsLastSnapshot(t *testing.T) {
	tracks := map[string]timetable.Track{"L1-0": testTrack("L1-0")}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "T1", "12:00:00", threeStops),
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	if got := e.ActiveTrains(); len(got) != 0 {
		t.Errorf("snapshot before any update should be empty, got %d", len(got))
	}
	updated := e.Update(12*3600 + 80)
	cached := e.ActiveTrains()
	if !reflect.DeepEqual(updated, cached) {
		t.Errorf("ActiveTrains differs from last update")
	}
	// Mutating the returned slice must not leak into the engine.
	cached[0].TrainID = "MUTATED"
	if e.ActiveTrains()[0].TrainID != "T1" {
		t.Error("snapshot aliasing: caller mutation visible in engine state")
	}
}

func TestStats(t *testing.T) {
	tracks := map[string]timetable.Track{
		"L1-0": testTrack("L1-0"),
		"L2-0": testTrack("L2-0"),
	}
	schedules := map[string]timetable.Schedule{
		"L1-0": testSchedule("L1-0", "RUNNING1", "12:00:00", threeStops),
		"L2-0": testSchedule("L2-0", "DWELLING1", "12:01:20", threeStops), // at origin dwell
	}
	e := newTestEngine(Options{}, schedules, tracks, nil)

	e.Update(12*3600 + 80)
	stats := e.Stats()
	if stats.Total != 2 || stats.Running != 1 || stats.Stopped != 1 {
		t.Errorf("stats = %+v, want total 2, running 1, stopped 1", stats)
	}
	if stats.ByTrack["L1-0"] != 1 || stats.ByTrack["L2-0"] != 1 {
		t.Errorf("by-track counts = %v", stats.ByTrack)
	}
}
