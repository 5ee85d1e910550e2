// Package tray provides the system tray interface for the CoachT
// training system.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: start/stop the current test, show the
// last score, open the dashboard and quit.
type Tray struct {
	onStartTest func()
	onStopTest  func()
	onDashboard func()
	onQuit      func()
	testing     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuTest      *systray.MenuItem
	menuLastScore *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnStartTest sets the callback for the "Start Test" menu item.
func (t *Tray) OnStartTest(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStartTest = fn
}

// OnStopTest sets the callback for the "Stop Test" menu item.
func (t *Tray) OnStopTest(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStopTest = fn
}

// OnDashboard sets the callback for the dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback for the quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("CoachT")
	systray.SetTooltip("CoachT Training Assistant")

	t.menuTest = systray.AddMenuItem("Start Test", "Start or stop a scored test")
	systray.AddSeparator()

	t.menuLastScore = systray.AddMenuItem("Last score: none", "Score of the last completed test")
	t.menuLastScore.Disable()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit CoachT")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuTest.ClickedCh:
				t.handleTestToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	// Cleanup resources if needed
}

// handleTestToggle flips between starting and stopping a test.
func (t *Tray) handleTestToggle() {
	t.mu.Lock()
	t.testing = !t.testing
	testing := t.testing

	if testing {
		t.menuTest.SetTitle("Stop Test")
	} else {
		t.menuTest.SetTitle("Start Test")
	}

	start := t.onStartTest
	stop := t.onStopTest
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if testing {
		if start != nil {
			start()
		}
	} else if stop != nil {
		stop()
	}
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastScore updates the last score display in the menu.
func (t *Tray) SetLastScore(score int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastScore != nil {
		t.menuLastScore.SetTitle(fmt.Sprintf("Last score: %d%%", score))
	}
}

// TestDone resets the menu back to "Start Test" after a test ended on
// its own, for example when the reference video ran out.
func (t *Tray) TestDone() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.testing = false
	if t.menuTest != nil {
		t.menuTest.SetTitle("Start Test")
	}
}

// IsTesting returns whether the tray believes a test is running.
func (t *Tray) IsTesting() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.testing
}
