package coordinator

import (
	"context"
	"log"

	"tokflow/internal/protocol"
)

// Dimensions of the auxiliary control window.
const (
	persistentWindowWidth  = 450
	persistentWindowHeight = 650
)

// WindowManager creates and controls auxiliary browser windows.
type WindowManager interface {
	Open(ctx context.Context, url string, width, height int) (string, error)
	Focus(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) bool
	PanelURL() string
}

// openPersistentWindow focuses the auxiliary window when it is still
// alive, creating a fresh one otherwise. A stale id (window closed by
// the operator) is discarded first.
func (c *Coordinator) openPersistentWindow(ctx context.Context) protocol.AutomationResult {
	if id := c.session.WindowID(); id != "" {
		if c.windows.Exists(ctx, id) {
			if err := c.windows.Focus(ctx, id); err != nil {
				log.Printf("persistent window: focus failed: %v", err)
			} else {
				return protocol.OK("Focused existing window")
			}
		}
		c.session.SetWindowID("")
	}

	id, err := c.windows.Open(ctx, c.windows.PanelURL(), persistentWindowWidth, persistentWindowHeight)
	if err != nil {
		return protocol.AutomationResult{Success: false, Message: "failed to open window: " + err.Error()}
	}
	c.session.SetWindowID(id)
	return protocol.OK("Opened new window")
}

func (c *Coordinator) closePersistentWindow(ctx context.Context) protocol.AutomationResult {
	id := c.session.WindowID()
	if id == "" || !c.windows.Exists(ctx, id) {
		c.session.SetWindowID("")
		return protocol.OK("No window to close")
	}
	if err := c.windows.Close(ctx, id); err != nil {
		return protocol.AutomationResult{Success: false, Message: "failed to close window: " + err.Error()}
	}
	c.session.SetWindowID("")
	return protocol.OK("Window closed")
}
