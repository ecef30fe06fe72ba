package agent

import (
	"context"
	"log"
	"time"

	"tokflow/internal/protocol"
)

// findAIToggleJS locates the AI-generated-content switch and reports
// its current state. The switch sits inside a collapsible advanced
// settings section; "needExpand" asks the caller to open it first.
const findAIToggleJS = `
(function() {
	function locate() {
		const container = document.querySelector('[data-e2e="aigc_container"]');
		if (!container) return null;
		return container.querySelector('.Switch__content, [role="switch"]');
	}

	let sw = locate();
	if (sw) {
		const checked = sw.getAttribute('aria-checked') === 'true'
			|| sw.getAttribute('data-state') === 'checked';
		return { found: true, checked: checked };
	}

	const advanced = document.querySelector('[data-e2e="advanced_settings_container"]');
	if (advanced) {
		const more = advanced.querySelector('.more-btn');
		if (more && more.textContent.includes('Show more')) {
			more.scrollIntoView({ block: 'center' });
			more.click();
			return { found: false, needExpand: true };
		}
	}
	return { found: false };
})()`

const clickAIToggleJS = `
(function() {
	const container = document.querySelector('[data-e2e="aigc_container"]');
	if (!container) return false;
	const sw = container.querySelector('.Switch__content, [role="switch"]');
	if (!sw) return false;
	sw.scrollIntoView({ block: 'center' });
	const opts = { view: window, bubbles: true, cancelable: true };
	sw.dispatchEvent(new MouseEvent('mousedown', opts));
	sw.dispatchEvent(new MouseEvent('mouseup', opts));
	sw.dispatchEvent(new MouseEvent('click', opts));
	return true;
})()`

type aiToggleProbe struct {
	Found      bool `json:"found"`
	Checked    bool `json:"checked"`
	NeedExpand bool `json:"needExpand"`
}

// ToggleAIContent enables the AI-generated-content disclosure. A
// switch already in the on state is left alone.
func (a *PageAgent) ToggleAIContent(ctx context.Context) protocol.AutomationResult {
	var probe aiToggleProbe
	if err := a.page.Eval(ctx, findAIToggleJS, &probe); err != nil {
		return protocol.AutomationResult{Success: false, Message: "AI toggle probe failed: " + err.Error()}
	}

	if probe.NeedExpand {
		// The settings section animates open.
		if err := a.clock.Sleep(ctx, 1200*time.Millisecond); err != nil {
			return protocol.AutomationResult{Success: false, Message: "interrupted: " + err.Error()}
		}
		if err := a.page.Eval(ctx, findAIToggleJS, &probe); err != nil {
			return protocol.AutomationResult{Success: false, Message: "AI toggle probe failed: " + err.Error()}
		}
	}

	if !probe.Found {
		return protocol.Fail(protocol.ErrElementNotFound, "Could not find the AI content switch")
	}
	if probe.Checked {
		log.Printf("TOGGLE_AI_CONTENT: switch already on")
		return protocol.OK("AI content label already enabled")
	}

	var clicked bool
	if err := a.page.Eval(ctx, clickAIToggleJS, &clicked); err != nil {
		return protocol.AutomationResult{Success: false, Message: "AI toggle click failed: " + err.Error()}
	}
	if !clicked {
		return protocol.Fail(protocol.ErrElementNotFound, "AI content switch disappeared before it could be clicked")
	}
	a.clock.Sleep(ctx, 300*time.Millisecond)
	return protocol.OK("AI content label enabled")
}
