// Package tray provides the desktop menu-bar controls for handboard.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the menu-bar icon: tracking toggle, live mode and route labels,
// open board and quit.
type Tray struct {
	mu sync.RWMutex

	onToggle    func(enabled bool)
	onOpenBoard func()
	onQuit      func()
	enabled     bool
	mode        string
	routes      int

	menuToggle *systray.MenuItem
	menuMode   *systray.MenuItem
	menuRoutes *systray.MenuItem
}

// New creates a tray with tracking enabled.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled, mode: "idle"}
}

// OnToggle sets the callback for the tracking toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenBoard sets the callback for "Open Board…".
func (t *Tray) OnOpenBoard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenBoard = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit and must be called from the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Handboard")
	systray.SetTooltip("Handboard gesture whiteboard")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand tracking")
	systray.AddSeparator()
	t.menuMode = systray.AddMenuItem(modeTitle(t.mode), "Current interaction mode")
	t.menuMode.Disable()
	t.menuRoutes = systray.AddMenuItem(routesTitle(t.routes), "Routes on the board")
	t.menuRoutes.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	menuOpen := systray.AddMenuItem("Open Board…", "Open the board in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Handboard")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpenBoard })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func modeTitle(mode string) string { return "Mode: " + mode }

func routesTitle(n int) string { return fmt.Sprintf("Routes: %d", n) }

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetMode updates the mode label. Repeated values are ignored.
func (t *Tray) SetMode(mode string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if mode == t.mode {
		return
	}
	t.mode = mode
	if t.menuMode != nil {
		t.menuMode.SetTitle(modeTitle(mode))
	}
}

// SetRoutes updates the route count label.
func (t *Tray) SetRoutes(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n == t.routes {
		return
	}
	t.routes = n
	if t.menuRoutes != nil {
		t.menuRoutes.SetTitle(routesTitle(n))
	}
}

// Mode returns the last mode shown.
func (t *Tray) Mode() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// IsEnabled returns the tracking toggle state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
