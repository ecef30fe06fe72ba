package chrome

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ConnectPage attaches a chromedp context to the first page target on
// port whose URL contains urlFragment (any page when empty). The
// returned cancel releases the tab context without closing the tab.
func ConnectPage(ctx context.Context, m *Manager, port int, urlFragment string) (context.Context, context.CancelFunc, error) {
	targets, err := m.ListTargets(ctx, port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list targets on port %d: %w", port, err)
	}

	var picked *Target
	for i := range targets {
		if urlFragment == "" || strings.Contains(targets[i].URL, urlFragment) {
			picked = &targets[i]
			break
		}
	}
	if picked == nil {
		return nil, nil, fmt.Errorf("no page target matching %q on port %d", urlFragment, port)
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx,
		fmt.Sprintf("ws://localhost:%d/", port))
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithTargetID(target.ID(picked.ID)))

	cancel := func() {
		tabCancel()
		allocCancel()
	}
	return tabCtx, cancel, nil
}
