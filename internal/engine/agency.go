package engine

// Default per-network configurations. Every network runs the same engine;
// these differ only in extended-day handling, collision separation, and how
// long an arrived train lingers at its terminus.

// CommuterRail is the heavy-rail network: service runs past midnight,
// several route variants share rails, and trains stay visible for two
// minutes after reaching the terminus.
func CommuterRail(shared map[string][]string) Options {
	return Options{
		Agency:           "commuter",
		UseExtendedDay:   true,
		EnableCollision:  true,
		TerminalDwellSec: 120,
		SharedSegments:   shared,
	}
}

// HighSpeed is the high-speed rail network. Long dwell at the terminus,
// daytime-only service.
func HighSpeed() Options {
	return Options{
		Agency:           "highspeed",
		TerminalDwellSec: 300,
	}
}

// Metro is the primary metro network. Runs past midnight; arrived trains
// disappear immediately.
func Metro() Options {
	return Options{
		Agency:         "metro",
		UseExtendedDay: true,
	}
}

// LightRail is the light-rail/tram network.
func LightRail() Options {
	return Options{
		Agency: "lightrail",
	}
}

// Suburban is the secondary metro variant: overnight service with a short
// terminal dwell.
func Suburban() Options {
	return Options{
		Agency:           "suburban",
		UseExtendedDay:   true,
		TerminalDwellSec: 60,
	}
}
