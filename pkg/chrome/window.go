package chrome

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
)

// Windows manages auxiliary app windows as separate Chrome instances.
// Satisfies the coordinator's WindowManager.
type Windows struct {
	manager  *Manager
	panelURL string
	seq      atomic.Uint64
}

func NewWindows(manager *Manager, panelURL string) *Windows {
	return &Windows{manager: manager, panelURL: panelURL}
}

func (w *Windows) PanelURL() string {
	return w.panelURL
}

func (w *Windows) Open(_ context.Context, url string, width, height int) (string, error) {
	id := fmt.Sprintf("window-%d", w.seq.Add(1))
	if _, err := w.manager.StartAppWindow(id, url, width, height); err != nil {
		return "", err
	}
	return id, nil
}

// Focus is best-effort: a separate Chrome process cannot be raised
// over the debugging protocol, so an alive window counts as focused.
func (w *Windows) Focus(_ context.Context, id string) error {
	if !w.manager.IsRunning(id) {
		return fmt.Errorf("window %s is not running", id)
	}
	log.Printf("window %s already open", id)
	return nil
}

func (w *Windows) Close(_ context.Context, id string) error {
	w.manager.Stop(id)
	return nil
}

func (w *Windows) Exists(_ context.Context, id string) bool {
	return w.manager.IsRunning(id)
}
