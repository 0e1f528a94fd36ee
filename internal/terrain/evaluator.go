package terrain

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// NumBiomes is the number of biome weight channels emitted per sample.
const NumBiomes = 3

// Biome channel indices within a weight vector.
const (
	BiomeLowland = iota
	BiomeUpland
	BiomeAlpine
)

// Params configures the terrain evaluator. The same Params must be used for
// mesh displacement and for rock height sampling or clutter drifts off the
// surface.
type Params struct {
	Seed       int64
	Octaves    int
	Frequency  float64 // base spatial frequency in 1/world-units
	Amplitude  float64 // amplitude of the first octave
	Lacunarity float64 // per-octave frequency multiplier
	Gain       float64 // per-octave amplitude multiplier
	Offset     float64 // raises how much of the range sits above the sea-level reference

	// Raw octave sums land in an empirically observed range; they are remapped
	// linearly from [RangeMin, RangeMax] onto [0,1].
	RangeMin float64
	RangeMax float64

	// HeightStrength converts the remapped [0,1] height to world-space Y.
	HeightStrength float32
}

// DefaultParams returns the standard generation parameters for a seed.
func DefaultParams(seed int64) Params {
	return Params{
		Seed:           seed,
		Octaves:        5,
		Frequency:      1.0 / 900.0,
		Amplitude:      1.0,
		Lacunarity:     2.0,
		Gain:           0.5,
		Offset:         0.12,
		RangeMin:       -0.4,
		RangeMax:       0.9,
		HeightStrength: 120,
	}
}

// Evaluator maps world (x,z) to a height and biome weight vector,
// deterministically for a fixed seed.
type Evaluator struct {
	params   Params
	octaves  []opensimplex.Noise
	moisture opensimplex.Noise
}

// NewEvaluator builds an evaluator from generation parameters. Each octave gets
// its own seeded noise instance so octaves stay decorrelated.
func NewEvaluator(p Params) *Evaluator {
	if p.Octaves < 1 {
		p.Octaves = 1
	}
	if p.RangeMax <= p.RangeMin {
		p.RangeMin, p.RangeMax = -1, 1
	}
	e := &Evaluator{
		params:   p,
		octaves:  make([]opensimplex.Noise, p.Octaves),
		moisture: opensimplex.New(p.Seed + 977),
	}
	for i := range e.octaves {
		e.octaves[i] = opensimplex.New(p.Seed + int64(i)*131)
	}
	return e
}

// Params returns the parameters the evaluator was built with.
func (e *Evaluator) Params() Params { return e.params }

// Height01 returns the remapped height in [0,1] at world (x,z).
func (e *Evaluator) Height01(x, z float64) float32 {
	p := e.params
	amp := p.Amplitude
	freq := p.Frequency
	sum := p.Offset
	for i := range e.octaves {
		sum += amp * e.octaves[i].Eval2(x*freq, z*freq)
		freq *= p.Lacunarity
		amp *= p.Gain
	}
	v := (sum - p.RangeMin) / (p.RangeMax - p.RangeMin)
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return float32(v)
}

// HeightAt returns the displaced world-space height at (x,z).
func (e *Evaluator) HeightAt(x, z float64) float32 {
	return e.Height01(x, z) * e.params.HeightStrength
}

// HeightAndBiomes returns the remapped height and a normalized biome weight
// vector at world (x,z).
func (e *Evaluator) HeightAndBiomes(x, z float64) (float32, [NumBiomes]float32) {
	h := float64(e.Height01(x, z))

	// Moisture shifts the biome band edges so boundaries meander instead of
	// following height contours exactly.
	m := e.moisture.Eval2(x*e.params.Frequency*0.5, z*e.params.Frequency*0.5)
	shift := m * 0.08

	low := 1 - smoothstep(0.35+shift, 0.55+shift, h)
	alp := smoothstep(0.60+shift, 0.85+shift, h)
	up := 1 - low - alp
	if up < 0 {
		up = 0
	}

	var w [NumBiomes]float32
	total := low + up + alp
	w[BiomeLowland] = float32(low / total)
	w[BiomeUpland] = float32(up / total)
	w[BiomeAlpine] = float32(alp / total)
	return float32(h), w
}

// smoothstep is the usual cubic Hermite ramp from 0 at e0 to 1 at e1.
func smoothstep(e0, e1, x float64) float64 {
	if e1 <= e0 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := (x - e0) / (e1 - e0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
