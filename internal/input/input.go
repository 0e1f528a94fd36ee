package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action is a logical flight/debug action, decoupled from physical keys.
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionAscend
	ActionDescend
	ActionBoost
	ActionSlow
	ActionPause
	ActionToggleWireframe
	ActionToggleOverlay
	ActionCount // sentinel for array sizing
)

// Manager maps physical keys to logical actions and tracks per-frame edge
// state. GLFW delivers events on the main thread but the mapping tables are
// guarded anyway so rebinding from a menu is safe.
type Manager struct {
	mu sync.RWMutex

	keyToActions map[glfw.Key][]Action

	currentState [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool

	mouseX, mouseY         float64
	lastMouseX, lastMouseY float64
	firstMouse             bool
}

// NewManager creates a manager with the default flight bindings.
func NewManager() *Manager {
	m := &Manager{
		keyToActions: make(map[glfw.Key][]Action),
		firstMouse:   true,
	}
	m.BindKey(glfw.KeyW, ActionMoveForward)
	m.BindKey(glfw.KeyS, ActionMoveBackward)
	m.BindKey(glfw.KeyA, ActionMoveLeft)
	m.BindKey(glfw.KeyD, ActionMoveRight)
	m.BindKey(glfw.KeySpace, ActionAscend)
	m.BindKey(glfw.KeyLeftControl, ActionDescend)
	m.BindKey(glfw.KeyLeftShift, ActionBoost)
	m.BindKey(glfw.KeyLeftAlt, ActionSlow)
	m.BindKey(glfw.KeyEscape, ActionPause)
	m.BindKey(glfw.KeyF, ActionToggleWireframe)
	m.BindKey(glfw.KeyF3, ActionToggleOverlay)
	return m
}

// BindKey binds a physical key to a logical action. Multiple keys may map to
// the same action.
func (m *Manager) BindKey(key glfw.Key, action Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if action < 0 || action >= ActionCount {
		return
	}
	m.keyToActions[key] = append(m.keyToActions[key], action)
}

// HandleKeyEvent feeds a GLFW key event into the manager. Intended as the
// body of the window key callback.
func (m *Manager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	m.mu.RLock()
	actions, ok := m.keyToActions[key]
	m.mu.RUnlock()
	if !ok {
		return
	}

	pressed := action == glfw.Press || action == glfw.Repeat

	m.mu.Lock()
	for _, act := range actions {
		if pressed && !m.currentState[act] {
			m.justPressed[act] = true
		}
		if !pressed && m.currentState[act] {
			m.justReleased[act] = true
		}
		m.currentState[act] = pressed
	}
	m.mu.Unlock()
}

// HandleCursorEvent records the absolute cursor position.
func (m *Manager) HandleCursorEvent(x, y float64) {
	m.mu.Lock()
	m.mouseX, m.mouseY = x, y
	m.mu.Unlock()
}

// MouseDelta returns the cursor movement since the previous call. The first
// call after startup returns zero so the camera does not jump to wherever
// the OS happened to park the cursor.
func (m *Manager) MouseDelta() (dx, dy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.firstMouse {
		m.firstMouse = false
		m.lastMouseX, m.lastMouseY = m.mouseX, m.mouseY
		return 0, 0
	}
	dx = m.mouseX - m.lastMouseX
	dy = m.mouseY - m.lastMouseY
	m.lastMouseX, m.lastMouseY = m.mouseX, m.mouseY
	return dx, dy
}

// IsActive reports whether the action's key is currently held.
func (m *Manager) IsActive(action Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState[action]
}

// JustPressed reports a press edge since the last EndFrame.
func (m *Manager) JustPressed(action Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.justPressed[action]
}

// JustReleased reports a release edge since the last EndFrame.
func (m *Manager) JustReleased(action Action) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.justReleased[action]
}

// EndFrame clears edge flags. Call once per frame after all consumers ran.
func (m *Manager) EndFrame() {
	m.mu.Lock()
	for i := range m.justPressed {
		m.justPressed[i] = false
		m.justReleased[i] = false
	}
	m.mu.Unlock()
}
