package config

import "sync"

// StreamSettings holds chunk streaming configuration
type StreamSettings struct {
	mu               sync.RWMutex
	baseViewDistance int // in chunks
	disposeBuffer    int // extra chunks beyond view distance before unload
	altitudeScale    float32
	buildBudget      int
	lodUpgradeBudget int
	fpsLimit         int
}

var globalStreamSettings = &StreamSettings{
	baseViewDistance: 8,
	disposeBuffer:    2,
	altitudeScale:    0.004,
	buildBudget:      4,
	lodUpgradeBudget: 2,
	fpsLimit:         120,
}

// GetBaseViewDistance returns the base view distance in chunks
func GetBaseViewDistance() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.baseViewDistance
}

// SetBaseViewDistance sets the base view distance in chunks
func SetBaseViewDistance(distance int) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()

	// Clamp to reasonable values
	if distance < 2 {
		distance = 2
	}
	if distance > 64 {
		distance = 64
	}

	globalStreamSettings.baseViewDistance = distance
}

// GetDisposeBuffer returns the extra radius kept loaded beyond the view distance
func GetDisposeBuffer() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.disposeBuffer
}

// GetAltitudeScale returns the view-distance-per-altitude multiplier
func GetAltitudeScale() float32 {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.altitudeScale
}

// SetAltitudeScale sets the view-distance-per-altitude multiplier
func SetAltitudeScale(s float32) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()
	if s < 0 {
		s = 0
	}
	globalStreamSettings.altitudeScale = s
}

// GetBuildBudget returns how many new-chunk builds may be dispatched per frame
func GetBuildBudget() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.buildBudget
}

// SetBuildBudget sets the per-frame new-chunk build budget
func SetBuildBudget(n int) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()
	if n < 1 {
		n = 1
	}
	globalStreamSettings.buildBudget = n
}

// GetLODUpgradeBudget returns how many LOD upgrades may be dispatched per frame
func GetLODUpgradeBudget() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.lodUpgradeBudget
}

// SetLODUpgradeBudget sets the per-frame LOD upgrade budget
func SetLODUpgradeBudget(n int) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()
	if n < 0 {
		n = 0
	}
	globalStreamSettings.lodUpgradeBudget = n
}

// GetFPSLimit returns the frame rate cap (0 = uncapped)
func GetFPSLimit() int {
	globalStreamSettings.mu.RLock()
	defer globalStreamSettings.mu.RUnlock()
	return globalStreamSettings.fpsLimit
}

// SetFPSLimit sets the frame rate cap (0 = uncapped)
func SetFPSLimit(limit int) {
	globalStreamSettings.mu.Lock()
	defer globalStreamSettings.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	globalStreamSettings.fpsLimit = limit
}
