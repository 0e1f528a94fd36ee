package config

import "sync"

// TerrainGenSettings holds terrain and rock generation configuration
type TerrainGenSettings struct {
	mu              sync.RWMutex
	seed            int64
	chunkWorldSize  float64
	heightStrength  float32
	lodResolutions  []int
	lodThresholds   []float32 // screen-space pixel size required for each LOD
	minScreenPixels float32   // below this a chunk is not worth building at all
}

var globalTerrainGenSettings = &TerrainGenSettings{
	seed:           1337,
	chunkWorldSize: 256,
	heightStrength: 120,
	lodResolutions: []int{8, 16, 32, 64, 128},
	lodThresholds:  []float32{0, 220, 440, 880, 1760},
	minScreenPixels: 12,
}

// GetSeed returns the world seed
func GetSeed() int64 {
	globalTerrainGenSettings.mu.RLock()
	defer globalTerrainGenSettings.mu.RUnlock()
	return globalTerrainGenSettings.seed
}

// SetSeed sets the world seed
func SetSeed(seed int64) {
	globalTerrainGenSettings.mu.Lock()
	defer globalTerrainGenSettings.mu.Unlock()
	globalTerrainGenSettings.seed = seed
}

// GetChunkWorldSize returns the edge length of one chunk in world units
func GetChunkWorldSize() float64 {
	globalTerrainGenSettings.mu.RLock()
	defer globalTerrainGenSettings.mu.RUnlock()
	return globalTerrainGenSettings.chunkWorldSize
}

// GetHeightStrength returns the world-space multiplier applied to the
// evaluator's [0,1] height output.
func GetHeightStrength() float32 {
	globalTerrainGenSettings.mu.RLock()
	defer globalTerrainGenSettings.mu.RUnlock()
	return globalTerrainGenSettings.heightStrength
}

// GetLODResolutions returns quads-per-edge for each LOD, coarsest first.
func GetLODResolutions() []int {
	globalTerrainGenSettings.mu.RLock()
	defer globalTerrainGenSettings.mu.RUnlock()
	out := make([]int, len(globalTerrainGenSettings.lodResolutions))
	copy(out, globalTerrainGenSettings.lodResolutions)
	return out
}

// GetLODThresholds returns the minimum screen-space pixel size for each LOD.
func GetLODThresholds() []float32 {
	globalTerrainGenSettings.mu.RLock()
	defer globalTerrainGenSettings.mu.RUnlock()
	out := make([]float32, len(globalTerrainGenSettings.lodThresholds))
	copy(out, globalTerrainGenSettings.lodThresholds)
	return out
}

// GetMinScreenPixels returns the pixel size below which chunks are skipped entirely.
func GetMinScreenPixels() float32 {
	globalTerrainGenSettings.mu.RLock()
	defer globalTerrainGenSettings.mu.RUnlock()
	return globalTerrainGenSettings.minScreenPixels
}

// RockSettings holds surface clutter generation configuration
type RockSettings struct {
	mu              sync.RWMutex
	baseMinDiameter float64
	maxDiameter     float64
	densityConst    float64
	exponent        float64
	lodScale        []float64
	buryFraction    float64
	librarySize     int
	detailLevels    int
	bufferCapacity  int
	minScreenPixels float32
}

var globalRockSettings = &RockSettings{
	baseMinDiameter: 4.0,
	maxDiameter:     22.0,
	densityConst:    0.15,
	exponent:        -2.5,
	lodScale:        []float64{4.0, 2.5, 1.6, 1.0, 0.6},
	buryFraction:    0.3,
	librarySize:     8,
	detailLevels:    3,
	bufferCapacity:  8192,
	minScreenPixels: 6,
}

// GetRockBaseMinDiameter returns the LOD-0 minimum visible rock diameter
func GetRockBaseMinDiameter() float64 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.baseMinDiameter
}

// GetRockMaxDiameter returns the largest rock diameter ever placed
func GetRockMaxDiameter() float64 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.maxDiameter
}

// GetRockDensityConst returns A in N(>D) = A*D^exponent
func GetRockDensityConst() float64 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.densityConst
}

// GetRockExponent returns the power-law exponent (negative)
func GetRockExponent() float64 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.exponent
}

// GetRockLODScale returns the per-LOD multiplier on the minimum diameter
func GetRockLODScale() []float64 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	out := make([]float64, len(globalRockSettings.lodScale))
	copy(out, globalRockSettings.lodScale)
	return out
}

// GetRockBuryFraction returns the fraction of a rock's diameter sunk into the ground
func GetRockBuryFraction() float64 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.buryFraction
}

// GetRockLibrarySize returns the number of rock prototypes generated at startup
func GetRockLibrarySize() int {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.librarySize
}

// GetRockDetailLevels returns the number of mesh detail tiers per prototype
func GetRockDetailLevels() int {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.detailLevels
}

// GetRockBufferCapacity returns the fixed instance capacity per (prototype, detail) buffer
func GetRockBufferCapacity() int {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.bufferCapacity
}

// GetRockMinScreenPixels returns the pixel size below which a whole instance
// buffer is hidden.
func GetRockMinScreenPixels() float32 {
	globalRockSettings.mu.RLock()
	defer globalRockSettings.mu.RUnlock()
	return globalRockSettings.minScreenPixels
}
