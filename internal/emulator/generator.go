package emulator

import (
	"math"
	"math/rand/v2"

	"aquaponics_monitor/internal/models"
)

// random-mode probabilities per tick
const (
	faultChance     = 0.02
	excursionChance = 0.10
)

// Generator produces sensor values for one tick.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a generator drawing from rnd, or a time-seeded source when nil.
func NewGenerator(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rnd: rnd}
}

// Next computes temperature and level for cfg. Random walks move
// SensorRanges[..].Current in place; spikes and faults do not.
func (g *Generator) Next(cfg *models.EmulatorConfig) (temp, level float64) {
	switch cfg.Mode {
	case models.EmulatorStable:
		return cfg.SensorRanges[models.SensorTemperature].Current, cfg.SensorRanges[models.SensorLevel].Current
	case models.EmulatorRandom:
		temp = g.randomValue(cfg, models.SensorTemperature)
		level = g.randomValue(cfg, models.SensorLevel)
		if g.rnd.Float64() < faultChance {
			temp = models.TemperatureFault
		}
		return temp, level
	default:
		// fluctuating, and scenario which walks around the preset ranges
		return g.walk(cfg, models.SensorTemperature), g.walk(cfg, models.SensorLevel)
	}
}

func (g *Generator) walk(cfg *models.EmulatorConfig, sensor string) float64 {
	r := cfg.SensorRanges[sensor]
	if r.Fluctuation > 0 {
		r.Current = clamp(r.Current+(g.rnd.Float64()*2-1)*r.Fluctuation, r.Min, r.Max)
		r.Current = round2(r.Current)
		cfg.SensorRanges[sensor] = r
	}
	return r.Current
}

func (g *Generator) randomValue(cfg *models.EmulatorConfig, sensor string) float64 {
	if g.rnd.Float64() < excursionChance {
		r := cfg.SensorRanges[sensor]
		return round2(r.Min + g.rnd.Float64()*(r.Max-r.Min))
	}
	return g.walk(cfg, sensor)
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
