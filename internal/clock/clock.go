// Package clock implements the virtual time source driving the train
// engines: a simulated time-of-day that can be played, paused, accelerated,
// and jumped, with a tick fan-out to subscribers.
package clock

import (
	"sync"
	"time"

	"transitsim/internal/timetable"
)

const (
	// MinSpeed and MaxSpeed bound the simulation speed multiplier.
	MinSpeed = 0.1
	MaxSpeed = 600.0

	daySeconds = 86400
)

// Clock holds a single simulated instant. While playing, a background loop
// advances simulated time by real elapsed time times the speed multiplier,
// so wall-clock drift does not accumulate beyond timer resolution.
//
// A Clock must not be copied. Subscribers are invoked without the internal
// lock held; a callback calling Pause or Destroy on its own clock will
// deadlock.
type Clock struct {
	mu        sync.Mutex
	sec       float64
	speed     float64
	playing   bool
	destroyed bool
	interval  time.Duration
	nextSubID int
	subs      map[int]func(sec int)
	stop      chan struct{}
	loopDone  chan struct{}
}

// New returns a paused clock at the given time-of-day. interval is the real
// tick period of the advancement loop; values <= 0 default to 100ms.
func New(startSec int, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Clock{
		sec:      float64(normalizeDaySec(startSec)),
		speed:    1.0,
		interval: interval,
		subs:     make(map[int]func(sec int)),
	}
}

// Play starts real-time advancement. Calling Play on a playing or destroyed
// clock is a no-op.
func (c *Clock) Play() {
	c.mu.Lock()
	if c.playing || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.playing = true
	c.stop = make(chan struct{})
	c.loopDone = make(chan struct{})
	stop, done := c.stop, c.loopDone
	c.mu.Unlock()

	go c.run(stop, done)
}

// Pause halts advancement. It is synchronous: once Pause returns, no
// further tick callback fires until Play is called again.
func (c *Clock) Pause() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = false
	close(c.stop)
	done := c.loopDone
	c.mu.Unlock()

	<-done
}

// Toggle switches between playing and paused.
func (c *Clock) Toggle() {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// Playing reports whether the clock is currently advancing.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// SetSpeed sets the simulation speed multiplier, clamped to
// [MinSpeed, MaxSpeed].
func (c *Clock) SetSpeed(mult float64) {
	if mult < MinSpeed {
		mult = MinSpeed
	}
	if mult > MaxSpeed {
		mult = MaxSpeed
	}
	c.mu.Lock()
	c.speed = mult
	c.mu.Unlock()
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetTimeOfDay jumps the clock to an absolute time-of-day in seconds,
// normalized into [0, 86399], and notifies subscribers immediately.
func (c *Clock) SetTimeOfDay(sec int) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.sec = float64(normalizeDaySec(sec))
	subs, cur := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(cur)
	}
}

// JumpTo parses a "HH:MM:SS" string and jumps to it. Malformed input jumps
// to midnight, matching the lenient timetable parser.
func (c *Clock) JumpTo(timeStr string) {
	c.SetTimeOfDay(timetable.ParseDaySeconds(timeStr))
}

// TimeOfDaySeconds returns the current simulated time-of-day in [0, 86399].
func (c *Clock) TimeOfDaySeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return normalizeDaySec(int(c.sec))
}

// FormattedTime returns the current simulated time as "HH:MM:SS".
func (c *Clock) FormattedTime() string {
	return timetable.FormatDaySeconds(c.TimeOfDaySeconds())
}

// OnTick registers a callback fired on every advancement and every absolute
// jump. The returned function unsubscribes; it is safe to call more than
// once.
func (c *Clock) OnTick(fn func(sec int)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	if !c.destroyed {
		c.subs[id] = fn
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Destroy pauses the clock and releases all subscribers. No callback fires
// after Destroy returns, and the clock cannot be restarted.
func (c *Clock) Destroy() {
	c.Pause()
	c.mu.Lock()
	c.destroyed = true
	c.subs = make(map[int]func(sec int))
	c.mu.Unlock()
}

func (c *Clock) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			c.advance(delta)
		}
	}
}

func (c *Clock) advance(delta time.Duration) {
	c.mu.Lock()
	c.sec += delta.Seconds() * c.speed
	for c.sec >= daySeconds {
		c.sec -= daySeconds
	}
	subs, cur := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(cur)
	}
}

// snapshotLocked copies the subscriber list and current second while the
// lock is held, so callbacks run unlocked.
func (c *Clock) snapshotLocked() ([]func(sec int), int) {
	subs := make([]func(sec int), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs, normalizeDaySec(int(c.sec))
}

func normalizeDaySec(sec int) int {
	sec %= daySeconds
	if sec < 0 {
		sec += daySeconds
	}
	return sec
}
