package telemetrygen

import "time"

// DefaultFrameInterval matches a 60 Hz sampler.
const DefaultFrameInterval = 16 * time.Millisecond

// DefaultTracks are the stock tracks sessions are spread over.
var DefaultTracks = []string{
	"abyss", "black_forest", "cocoa_temple", "hacienda", "lighthouse",
	"snowmountain", "volcano_island", "zengarden",
}

// DefaultKarts are the karts a session may use.
var DefaultKarts = []string{"tux", "gnu", "nolok", "pidgin", "kiki", "suzanne"}

// Profile shapes how a synthetic driver behaves.
type Profile int

// Driver profiles, drawn with the weights in profileWeights.
const (
	ProfileSmooth Profile = iota
	ProfileAverage
	ProfileJittery
	ProfileAirborne
	ProfileCrashy
	profileCount
)

var profileNames = [...]string{
	ProfileSmooth:   "smooth",
	ProfileAverage:  "average",
	ProfileJittery:  "jittery",
	ProfileAirborne: "airborne",
	ProfileCrashy:   "crashy",
}

func (p Profile) String() string {
	if p < 0 || p >= profileCount {
		return "unknown"
	}
	return profileNames[p]
}

// profileWeights are relative draw weights; average drivers are most common.
var profileWeights = [profileCount]int{
	ProfileSmooth:   2,
	ProfileAverage:  4,
	ProfileJittery:  2,
	ProfileAirborne: 1,
	ProfileCrashy:   1,
}

// behaviour holds the per-frame probabilities of a profile.
type behaviour struct {
	steerFlip  float64 // chance steering changes direction
	airborne   float64 // chance a frame is off the ground
	crash      float64 // chance of a sudden speed loss
	cruise     float64 // target speed
	brakeProb  float64
	energyGain float64
}

var behaviours = [profileCount]behaviour{
	ProfileSmooth:   {steerFlip: 0.02, airborne: 0.01, crash: 0.002, cruise: 26, brakeProb: 0.02, energyGain: 0.05},
	ProfileAverage:  {steerFlip: 0.08, airborne: 0.04, crash: 0.01, cruise: 22, brakeProb: 0.05, energyGain: 0.04},
	ProfileJittery:  {steerFlip: 0.35, airborne: 0.05, crash: 0.02, cruise: 20, brakeProb: 0.1, energyGain: 0.03},
	ProfileAirborne: {steerFlip: 0.1, airborne: 0.4, crash: 0.03, cruise: 21, brakeProb: 0.05, energyGain: 0.02},
	ProfileCrashy:   {steerFlip: 0.15, airborne: 0.08, crash: 0.12, cruise: 18, brakeProb: 0.15, energyGain: 0.02},
}
