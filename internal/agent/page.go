package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Page is the agent's view of the driven page. Everything the agent
// does to the DOM goes through this interface so the heuristics can be
// exercised against a scripted page model in tests.
type Page interface {
	// Eval runs a JavaScript expression in the page and unmarshals the
	// result into out. Pass nil to discard the result.
	Eval(ctx context.Context, js string, out interface{}) error
	Location(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	// SetFileInput attaches a local file to the matching file input.
	SetFileInput(ctx context.Context, selector, path string) error
}

// devtoolsPage drives one tab over the DevTools protocol. The tab
// context is captured at attach time; the per-call ctx only carries
// cancellation.
type devtoolsPage struct {
	tab context.Context
}

// NewDevtoolsPage returns a Page attached to the given chromedp tab
// context.
func NewDevtoolsPage(tab context.Context) Page {
	return devtoolsPage{tab: tab}
}

func (p devtoolsPage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.tab, actions...)
}

func (p devtoolsPage) Eval(ctx context.Context, js string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(js, out))
}

func (p devtoolsPage) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (p devtoolsPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p devtoolsPage) SetFileInput(ctx context.Context, selector, path string) error {
	return p.run(ctx,
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// waitForElement polls for a selector until it appears or the timeout
// elapses.
func (a *PageAgent) waitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := a.clock.Now().Add(timeout)
	js := fmt.Sprintf("!!document.querySelector(%s)", jsString(selector))

	for {
		var found bool
		if err := a.page.Eval(ctx, js, &found); err != nil {
			return err
		}
		if found {
			return nil
		}
		if a.clock.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for element: %s", selector)
		}
		if err := a.clock.Sleep(ctx, 100*time.Millisecond); err != nil {
			return err
		}
	}
}
