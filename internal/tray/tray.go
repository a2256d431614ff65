// Package tray provides a system tray control surface for a running
// pipeline: an FPS overlay toggle, a live status line and a Stop item.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	title    string
	onToggle func(show bool)
	onOpen   func()
	onStop   func()
	showFPS  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuFPS    *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a Tray titled with the input being processed.
func New(title string, showFPS bool) *Tray {
	return &Tray{
		title:   title,
		showFPS: showFPS,
	}
}

// OnToggleFPS sets the callback called when the overlay is switched.
func (t *Tray) OnToggleFPS(fn func(show bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for "Open Stream...". The item is only shown
// when a callback is set.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnStop sets the callback called when Stop is clicked.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called or Stop is clicked.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("handpose")
	systray.SetTooltip("handpose: " + t.title)

	t.mu.Lock()
	t.menuFPS = systray.AddMenuItemCheckbox("Show FPS", "Toggle the FPS overlay", t.showFPS)
	t.menuStatus = systray.AddMenuItem(statusTitle(0), "Frames processed")
	t.menuStatus.Disable()
	hasOpen := t.onOpen != nil
	t.mu.Unlock()
	systray.AddSeparator()

	openCh := make(chan struct{})
	if hasOpen {
		menuOpen := systray.AddMenuItem("Open Stream...", "Open the live stream in a browser")
		openCh = menuOpen.ClickedCh
		systray.AddSeparator()
	}

	menuStop := systray.AddMenuItem("Stop", "Stop processing and exit")

	go func() {
		for {
			select {
			case <-t.menuFPS.ClickedCh:
				t.handleToggle()
			case <-openCh:
				t.handleOpen()
			case <-menuStop.ClickedCh:
				t.handleStop()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the overlay state and reports it.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.showFPS = !t.showFPS
	show := t.showFPS

	if t.menuFPS != nil {
		if show {
			t.menuFPS.Check()
		} else {
			t.menuFPS.Uncheck()
		}
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(show)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleStop runs the stop callback and then quits the tray.
func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetFrames updates the status line.
func (t *Tray) SetFrames(n int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(n))
	}
}

// ShowFPS returns the current overlay state.
func (t *Tray) ShowFPS() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.showFPS
}

func statusTitle(frames int) string {
	return fmt.Sprintf("Frames: %d", frames)
}
