package telemetrygen

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/kartscore/internal/domain/model"
)

const (
	maxStartOffsetMS = 60_000
	maxSessionID     = 1 << 53
	crashSpeedFactor = 0.3
	accelResponse    = 0.1
	turnRate         = 0.05
	maxAirborneRun   = 12
)

// Generator turns a seed into a telemetry log. The same Config always yields
// the same records.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator for cfg. cfg must have been validated.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // reproducible fixtures, not security
	}
}

// Generate returns every record of the log in emission order.
func (g *Generator) Generate() ([]model.TelemetryRecord, Stats) {
	start := time.Now()
	stats := Stats{StartTime: start, ByProfile: make(map[Profile]int)}

	seen := make(map[int64]bool, g.cfg.Sessions)
	records := make([]model.TelemetryRecord, 0, g.cfg.Sessions*g.cfg.Frames)
	for i := 0; i < g.cfg.Sessions; i++ {
		id := g.sessionID(seen)
		p := g.profile()
		stats.ByProfile[p]++
		records = append(records, g.session(id, p)...)
	}

	if g.cfg.Interleave {
		sort.SliceStable(records, func(a, b int) bool {
			return records[a].TimestampMS < records[b].TimestampMS
		})
	}

	stats.Sessions = g.cfg.Sessions
	stats.Records = len(records)
	stats.Duration = time.Since(start)
	return records, stats
}

func (g *Generator) sessionID(seen map[int64]bool) int64 {
	for {
		id := g.rng.Int63n(maxSessionID)
		if !seen[id] {
			seen[id] = true
			return id
		}
	}
}

func (g *Generator) profile() Profile {
	total := 0
	for _, w := range profileWeights {
		total += w
	}
	n := g.rng.Intn(total)
	for p, w := range profileWeights {
		if n < w {
			return Profile(p)
		}
		n -= w
	}
	return ProfileAverage
}

// session simulates one race attempt of profile p.
func (g *Generator) session(id int64, p Profile) []model.TelemetryRecord {
	b := behaviours[p]
	track := g.cfg.Tracks[g.rng.Intn(len(g.cfg.Tracks))]
	kart := DefaultKarts[g.rng.Intn(len(DefaultKarts))]
	difficulty := model.Difficulty(g.rng.Intn(int(model.SuperTux) + 1))
	ts := g.rng.Int63n(maxStartOffsetMS)
	step := g.cfg.FrameInterval.Milliseconds()
	if step < 1 {
		step = 1
	}

	var (
		speed, heading, energy float64
		x, y, z                float64
		steerDir               = 0
		airborneLeft           = 0
	)

	out := make([]model.TelemetryRecord, g.cfg.Frames)
	for f := range out {
		if g.rng.Float64() < b.steerFlip {
			steerDir = g.rng.Intn(3) - 1
		}
		steer := float64(steerDir) * (0.2 + 0.8*g.rng.Float64())

		accel := 1.0
		brake := g.rng.Float64() < b.brakeProb
		if brake {
			accel = 0
		}
		speed += (b.cruise - speed) * accelResponse * accel
		if brake {
			speed *= 0.9
		}
		if g.rng.Float64() < b.crash {
			speed *= crashSpeedFactor
		}
		speed = math.Max(0, speed+g.rng.NormFloat64()*0.3)

		if airborneLeft == 0 && g.rng.Float64() < b.airborne {
			airborneLeft = 1 + g.rng.Intn(maxAirborneRun)
		}
		onGround := airborneLeft == 0
		if airborneLeft > 0 {
			airborneLeft--
			z += 0.2
		} else {
			z = 0
		}

		heading += steer * turnRate
		dt := float64(step) / 1000
		x += speed * dt * math.Cos(heading)
		y += speed * dt * math.Sin(heading)
		energy = math.Min(20, energy+b.energyGain)

		d := difficulty
		if g.cfg.DifficultyDrift > 0 && g.rng.Float64() < g.cfg.DifficultyDrift {
			d = model.Difficulty((int(difficulty) + 1) % (int(model.SuperTux) + 1))
		}

		out[f] = model.TelemetryRecord{
			SessionID:   id,
			TimestampMS: ts,
			Track:       track,
			Difficulty:  d,
			KartType:    kart,
			Steer:       round3(steer),
			Accel:       accel,
			Speed:       round3(speed),
			Brake:       brake,
			OnGround:    onGround,
			Position:    [3]float64{round3(x), round3(y), round3(z)},
			Energy:      round3(energy),
		}
		ts += step
	}
	return out
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0 // no negative zero in the log
	}
	return r
}
