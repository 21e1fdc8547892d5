package engine

import "transitsim/internal/timetable"

// location is the segment locator's answer: where along its visit list a
// train is at a given elapsed time.
type location struct {
	status      Status
	fromIdx     int // station index the train is at or has left
	nextIdx     int // following station index, -1 at journey's end
	segProgress float64
}

// locate finds which inter-station segment or station dwell a train occupies
// elapsed seconds after its departure. Dwell windows take precedence over
// inter-station windows at identical boundary instants: an arrival instant
// reads as stopped, not running.
func locate(visits []timetable.StationVisit, elapsed int) location {
	if elapsed < 0 {
		return location{status: StatusWaiting, fromIdx: -1, nextIdx: -1}
	}
	n := len(visits)
	if n == 0 {
		return location{status: StatusArrived, fromIdx: -1, nextIdx: -1}
	}
	if elapsed >= visits[n-1].ArrivalOffsetSec {
		return location{status: StatusArrived, fromIdx: n - 1, nextIdx: -1}
	}
	for i := 0; i < n; i++ {
		v := visits[i]
		if elapsed >= v.ArrivalOffsetSec && elapsed < v.DepartureOffsetSec {
			next := i + 1
			if next >= n {
				next = -1
			}
			return location{status: StatusStopped, fromIdx: i, nextIdx: next}
		}
		if i+1 == n {
			break
		}
		nv := visits[i+1]
		if elapsed >= v.DepartureOffsetSec && elapsed < nv.ArrivalOffsetSec {
			p := 0.0
			if span := nv.ArrivalOffsetSec - v.DepartureOffsetSec; span > 0 {
				p = float64(elapsed-v.DepartureOffsetSec) / float64(span)
				if p < 0 {
					p = 0
				}
				if p > 1 {
					p = 1
				}
			}
			return location{status: StatusRunning, fromIdx: i, nextIdx: i + 1, segProgress: p}
		}
	}
	// Before the first station's arrival offset (unusual but possible with
	// padded timetables): hold the train at its origin platform.
	next := -1
	if n > 1 {
		next = 1
	}
	return location{status: StatusStopped, fromIdx: 0, nextIdx: next}
}
