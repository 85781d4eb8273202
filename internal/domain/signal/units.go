package signal

// Unit conversion constants.
const (
	StandardGravity = 9.80665 // m/s²
	mpsToMph        = 2.2369362920544
	mpsToKmh        = 3.6
)

// MPSToMPH converts metres per second to miles per hour.
func MPSToMPH(v float64) float64 { return v * mpsToMph }

// MPSToKmh converts metres per second to kilometres per hour.
func MPSToKmh(v float64) float64 { return v * mpsToKmh }

// ToG converts an acceleration in m/s² to multiples of standard gravity.
func ToG(a float64) float64 { return a / StandardGravity }
