package simulator

import (
	"math"
	"math/rand/v2"
	"time"
)

// Profile is a driving style.
type Profile string

// Driving styles.
const (
	ProfileCalm       Profile = "calm"
	ProfileAggressive Profile = "aggressive"
	ProfileDistracted Profile = "distracted"
)

// Profiles lists every style in assignment order.
var Profiles = []Profile{ProfileCalm, ProfileAggressive, ProfileDistracted}

// Kinematics of a generated trip.
const (
	gravity         = 9.81
	metersPerDegLat = 111_320.0
	cruiseMPS       = 16.0
	minSpeedMPS     = 4.0
	cruiseGain      = 0.2
	cruiseMaxAccel  = 0.8
	accelNoise      = 0.15

	brakeMPS2      = -5.0
	launchMPS2     = 4.0
	cornerG        = 0.45
	maneuverSecs   = 4
	screenSecs     = 20
	edgeMarginSecs = 60
)

// Maneuvers per trip for each profile.
var maneuvers = map[Profile]Maneuvers{
	ProfileCalm:       {},
	ProfileAggressive: {Brakes: 3, Launches: 2, Corners: 2},
	ProfileDistracted: {Brakes: 1, ScreenBursts: 2},
}

// Maneuvers counts the scripted incidents of a trip.
type Maneuvers struct {
	Brakes       int
	Launches     int
	Corners      int
	ScreenBursts int
}

// Trip is a generated trip ready for upload.
type Trip struct {
	Profile   Profile
	Start     time.Time
	Samples   []Sample
	Maneuvers Maneuvers
}

type step struct {
	long, lat float64
	scripted  bool
	screen    bool
}

// GenerateTrip builds a 1 Hz trip of the given length starting at start.
// Scripted incidents are placed away from both trip ends so endpoint trimming
// keeps them.
func GenerateTrip(rng *rand.Rand, profile Profile, start time.Time, minutes int) Trip {
	n := minutes * 60
	plan := make([]step, n)
	m := maneuvers[profile]

	place := func(count, secs int, apply func(*step)) {
		for range count {
			at := edgeMarginSecs + rng.IntN(max(n-2*edgeMarginSecs-secs, 1))
			for i := at; i < at+secs && i < n; i++ {
				apply(&plan[i])
			}
		}
	}
	place(m.Brakes, maneuverSecs, func(s *step) { s.long, s.scripted = brakeMPS2, true })
	place(m.Launches, maneuverSecs, func(s *step) { s.long, s.scripted = launchMPS2, true })
	place(m.Corners, maneuverSecs, func(s *step) { s.lat, s.scripted = cornerG*gravity, true })
	place(m.ScreenBursts, screenSecs, func(s *step) { s.screen = true })

	lat := 52.0 + rng.Float64()
	lon := 4.0 + rng.Float64()
	heading := rng.Float64() * 2 * math.Pi
	speed := cruiseMPS

	samples := make([]Sample, n)
	for i := range n {
		long := plan[i].long
		if !plan[i].scripted {
			long = clamp((cruiseMPS-speed)*cruiseGain, -cruiseMaxAccel, cruiseMaxAccel) +
				(rng.Float64()*2-1)*accelNoise
		}
		latAcc := plan[i].lat

		// Inverse of the road-frame projection.
		sin, cos := math.Sincos(heading)
		samples[i] = Sample{
			TS:         start.Add(time.Duration(i) * time.Second).UTC().Format(time.RFC3339),
			Lat:        lat,
			Lon:        lon,
			SpeedMPS:   speed,
			HeadingDeg: math.Mod(heading*180/math.Pi+360, 360),
			HDOP:       0.5 + rng.Float64()*0.4,
			Accel: Accel{
				AX: long*cos - latAcc*sin,
				AY: long*sin + latAcc*cos,
				AZ: gravity,
			},
			ScreenOn: plan[i].screen,
		}

		lat += speed * math.Cos(heading) / metersPerDegLat
		lon += speed * math.Sin(heading) / (metersPerDegLat * math.Cos(lat*math.Pi/180))
		heading = math.Mod(heading+latAcc/speed, 2*math.Pi)
		speed = math.Max(speed+long, minSpeedMPS)
	}

	return Trip{Profile: profile, Start: start, Samples: samples, Maneuvers: m}
}

// Batches splits samples into chunks of at most size.
func Batches(samples []Sample, size int) [][]Sample {
	if size <= 0 {
		size = len(samples)
	}
	var out [][]Sample
	for start := 0; start < len(samples); start += size {
		out = append(out, samples[start:min(start+size, len(samples))])
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
