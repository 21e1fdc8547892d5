package engine

// Status describes a train's motion state at the queried instant.
type Status string

const (
	// StatusWaiting means the departure has not happened yet. Waiting
	// trains are never part of an update snapshot.
	StatusWaiting Status = "waiting"
	// StatusStopped means the train is dwelling at a station.
	StatusStopped Status = "stopped"
	// StatusRunning means the train is between two stations.
	StatusRunning Status = "running"
	// StatusArrived means the train reached its final station. Arrived
	// trains are shown as stopped during the terminal dwell window, then
	// dropped.
	StatusArrived Status = "arrived"
)

// Train is one simulated train at a single instant. Snapshots are rebuilt
// from scratch on every update; a Train value is never mutated across ticks.
type Train struct {
	TrainID        string     `json:"trainId"`
	TrackID        string     `json:"trackId"`
	Agency         string     `json:"agency"`
	DepartureTime  string     `json:"departureTime"`
	TotalTravelSec int        `json:"totalTravelSeconds"`
	Status         Status     `json:"status"`
	Progress       float64    `json:"progress"`
	Position       [2]float64 `json:"position"` // [lng, lat]
	Bearing        float64    `json:"bearing"`

	FromStationID   string  `json:"fromStationId"`
	NextStationID   string  `json:"nextStationId,omitempty"`
	SegmentProgress float64 `json:"segmentProgress"`

	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	PrevDeparture   string `json:"prevDeparture,omitempty"` // "HH:MM:SS" left the previous station
	NextArrival     string `json:"nextArrival,omitempty"`   // "HH:MM:SS" due at the next station

	// Collision fields, set only by the separation pass of engines with
	// collision detection enabled.
	Collided bool       `json:"collided,omitempty"`
	Offset   [2]float64 `json:"offset"` // [dLng, dLat] applied to Position
}

// Stats summarizes the last computed snapshot for diagnostics and UI
// counters.
type Stats struct {
	Total   int            `json:"total"`
	Running int            `json:"running"`
	Stopped int            `json:"stopped"`
	ByTrack map[string]int `json:"byTrack"`
}
