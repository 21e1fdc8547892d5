package store

import (
	"context"
	"database/sql"
	"fmt"

	"transitsim/internal/timetable"
)

// LoadTracks returns every track polyline for an agency, keyed by track id.
// Points are ordered by sequence within each track.
func LoadTracks(ctx context.Context, db *sql.DB, agency string) (map[string]timetable.Track, error) {
	q := `SELECT track_id, lng, lat
          FROM track_points
          WHERE agency = $1
          ORDER BY track_id, seq`
	rows, err := db.QueryContext(ctx, q, agency)
	if err != nil {
		return nil, fmt.Errorf("query track_points: %w", err)
	}
	defer rows.Close()

	tracks := make(map[string]timetable.Track)
	for rows.Next() {
		var id string
		var lng, lat float64
		if err := rows.Scan(&id, &lng, &lat); err != nil {
			return nil, err
		}
		tr := tracks[id]
		tr.ID = id
		tr.Coordinates = append(tr.Coordinates, [2]float64{lng, lat})
		tracks[id] = tr
	}
	return tracks, rows.Err()
}

// LoadSchedules returns the per-track timetables for an agency. Departure
// times are stored as "HH:MM:SS" text, possibly with hours >= 24 for
// overnight runs.
func LoadSchedules(ctx context.Context, db *sql.DB, agency string) (map[string]timetable.Schedule, error) {
	q := `SELECT track_id, train_id, departure_time, total_travel_sec
          FROM departures
          WHERE agency = $1
          ORDER BY track_id, departure_time, train_id`
	rows, err := db.QueryContext(ctx, q, agency)
	if err != nil {
		return nil, fmt.Errorf("query departures: %w", err)
	}
	defer rows.Close()

	schedules := make(map[string]timetable.Schedule)
	depIdx := make(map[depKey]int)
	for rows.Next() {
		var trackID string
		var dep timetable.Departure
		if err := rows.Scan(&trackID, &dep.TrainID, &dep.DepartureTime, &dep.TotalTravelSec); err != nil {
			return nil, err
		}
		dep.DepartureSec = timetable.ParseDaySeconds(dep.DepartureTime)
		appendDeparture(schedules, depIdx, trackID, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadStationVisits(ctx, db, agency, schedules, depIdx); err != nil {
		return nil, err
	}
	return schedules, nil
}

// depKey identifies a departure within its track. Train ids alone are not
// unique across tracks, so visits must resolve against the track they were
// scheduled on.
type depKey struct {
	trackID string
	trainID string
}

func appendDeparture(schedules map[string]timetable.Schedule, depIdx map[depKey]int, trackID string, dep timetable.Departure) {
	s := schedules[trackID]
	s.TrackID = trackID
	depIdx[depKey{trackID, dep.TrainID}] = len(s.Departures)
	s.Departures = append(s.Departures, dep)
	schedules[trackID] = s
}

func attachVisit(schedules map[string]timetable.Schedule, depIdx map[depKey]int, trackID, trainID string, visit timetable.StationVisit) {
	s, ok := schedules[trackID]
	if !ok {
		return
	}
	i, ok := depIdx[depKey{trackID, trainID}]
	if !ok || i >= len(s.Departures) {
		return
	}
	s.Departures[i].Stations = append(s.Departures[i].Stations, visit)
}

func loadStationVisits(ctx context.Context, db *sql.DB, agency string, schedules map[string]timetable.Schedule, depIdx map[depKey]int) error {
	q := `SELECT d.track_id, v.train_id, v.station_id, v.arrival_offset_sec, v.departure_offset_sec
          FROM station_visits v
          JOIN departures d ON d.train_id = v.train_id AND d.agency = $1
          ORDER BY d.track_id, v.train_id, v.seq`
	rows, err := db.QueryContext(ctx, q, agency)
	if err != nil {
		return fmt.Errorf("query station_visits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID, trainID string
		var visit timetable.StationVisit
		if err := rows.Scan(&trackID, &trainID, &visit.StationID, &visit.ArrivalOffsetSec, &visit.DepartureOffsetSec); err != nil {
			return err
		}
		attachVisit(schedules, depIdx, trackID, trainID, visit)
	}
	return rows.Err()
}

// LoadProgressTable returns the precomputed fractional station positions for
// an agency. The table is optional; when absent every station falls back to
// uniform spacing.
func LoadProgressTable(ctx context.Context, db *sql.DB, agency string) (timetable.ProgressTable, error) {
	exists, err := tableExists(ctx, db, "station_progress")
	if err != nil {
		return nil, fmt.Errorf("introspect station_progress: %w", err)
	}
	if !exists {
		return timetable.ProgressTable{}, nil
	}
	q := `SELECT track_id, station_id, progress
          FROM station_progress
          WHERE agency = $1`
	rows, err := db.QueryContext(ctx, q, agency)
	if err != nil {
		return nil, fmt.Errorf("query station_progress: %w", err)
	}
	defer rows.Close()

	table := make(timetable.ProgressTable)
	for rows.Next() {
		var trackID, stationID string
		var progress float64
		if err := rows.Scan(&trackID, &stationID, &progress); err != nil {
			return nil, err
		}
		if table[trackID] == nil {
			table[trackID] = make(map[string]float64)
		}
		table[trackID][stationID] = progress
	}
	return table, rows.Err()
}
