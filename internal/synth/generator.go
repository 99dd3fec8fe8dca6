// Package synth fabricates farm records with internally consistent yield and
// suitability values, for demo and training datasets.
package synth

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/sells-group/agri-cli/internal/model"
)

// Uniform draw ranges. Bounds are inclusive after rounding to 2 decimals.
var (
	FarmAreaRange   = Range{Min: 1, Max: 50}
	FertilizerRange = Range{Min: 0.1, Max: 5.0}
	PesticideRange  = Range{Min: 0.5, Max: 20.0}
	WaterRange      = Range{Min: 100, Max: 10000}
	YieldJitter     = Range{Min: 0.6, Max: 1.4}
)

// Range is a closed interval of reals.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Generator draws synthetic farm records from a pseudo-random source.
// It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator. A zero seed draws a seed from the clock; any other
// seed makes the output reproducible.
func New(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns n records with identifiers FARM_0001 through FARM_n.
func (g *Generator) Generate(n int) []model.FarmRecord {
	if n <= 0 {
		return []model.FarmRecord{}
	}
	out := make([]model.FarmRecord, n)
	for i := range out {
		out[i] = g.Record(i + 1)
	}
	return out
}

// Record draws the i-th record (1-based identifier).
func (g *Generator) Record(i int) model.FarmRecord {
	r := model.FarmRecord{
		FarmID:         model.FarmID(i),
		CropType:       g.pick(model.CropTypes),
		SoilType:       g.pick(model.SoilTypes),
		IrrigationType: g.pick(model.IrrigationTypes),
		Season:         g.pick(model.Seasons),
	}
	r.FarmArea = Round2(g.uniform(FarmAreaRange))
	r.Fertilizer = Round2(g.uniform(FertilizerRange))
	r.Pesticide = Round2(g.uniform(PesticideRange))
	r.WaterUsage = Round2(g.uniform(WaterRange))
	r.Yield = Round2(model.BaseYield[r.CropType] * r.FarmArea * g.uniform(YieldJitter))
	r.Suitability = model.SuitabilityLabel(model.IsSuitable(r))
	return r
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

func (g *Generator) uniform(r Range) float64 {
	return r.Min + (r.Max-r.Min)*g.rng.Float64()
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
