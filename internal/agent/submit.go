package agent

import (
	"context"
	"log"
	"time"

	"tokflow/internal/protocol"
)

const (
	successPollInterval = 2 * time.Second
	successPollTimeout  = 60 * time.Second
)

// postButtonProbeJS inspects the post button without touching it, so a
// disabled button can be reported before any pointer event is sent.
const postButtonProbeJS = `
(function() {
	const button = document.querySelector('[data-e2e="post_video_button"]');
	if (!button || button.offsetParent === null) return { found: false };
	const locked = button.disabled
		|| button.getAttribute('aria-disabled') === 'true'
		|| button.getAttribute('data-disabled') === 'true'
		|| button.classList.contains('Button--disabled')
		|| button.classList.contains('disabled');
	return { found: true, locked: locked };
})()`

const scrollToPostButtonJS = `
(function() {
	const button = document.querySelector('[data-e2e="post_video_button"]');
	if (!button) return false;
	button.scrollIntoView({ block: 'center' });
	return true;
})()`

const clickPostButtonJS = `
(function() {
	const button = document.querySelector('[data-e2e="post_video_button"]');
	if (!button) return false;
	button.focus();
	const opts = { view: window, bubbles: true, cancelable: true };
	button.dispatchEvent(new MouseEvent('mousedown', opts));
	button.dispatchEvent(new MouseEvent('mouseup', opts));
	button.dispatchEvent(new MouseEvent('click', opts));
	const inner = button.querySelector('.Button__content');
	if (inner) inner.dispatchEvent(new MouseEvent('click', opts));
	return true;
})()`

// confirmRepostJS dismisses the "Continue to post?" dialog that
// appears when the account recently posted similar content.
const confirmRepostJS = `
(function() {
	for (const modal of document.querySelectorAll('.common-modal-confirm-modal')) {
		if (!modal.textContent.includes('Continue to post?')) continue;
		for (const button of modal.querySelectorAll('button')) {
			if (button.textContent.trim().includes('Post now')) {
				button.click();
				return true;
			}
		}
	}
	return false;
})()`

// ClickPost submits the video. On success the detection watcher is
// started in the background with the task id captured at click time.
func (a *PageAgent) ClickPost(ctx context.Context, taskID string) protocol.AutomationResult {
	var probe struct {
		Found  bool `json:"found"`
		Locked bool `json:"locked"`
	}
	if err := a.page.Eval(ctx, postButtonProbeJS, &probe); err != nil {
		return protocol.AutomationResult{Success: false, Message: "post button probe failed: " + err.Error()}
	}
	if !probe.Found {
		return protocol.Fail(protocol.ErrElementNotFound, "Could not find the Post button")
	}
	if probe.Locked {
		return protocol.Fail(protocol.ErrStillLocked, "Post button is disabled, the upload has not finished processing")
	}

	if err := a.page.Eval(ctx, scrollToPostButtonJS, nil); err != nil {
		return protocol.AutomationResult{Success: false, Message: "post button scroll failed: " + err.Error()}
	}
	if err := a.clock.Sleep(ctx, 400*time.Millisecond); err != nil {
		return protocol.AutomationResult{Success: false, Message: "interrupted: " + err.Error()}
	}

	var clicked bool
	if err := a.page.Eval(ctx, clickPostButtonJS, &clicked); err != nil {
		return protocol.AutomationResult{Success: false, Message: "post button click failed: " + err.Error()}
	}
	if !clicked {
		return protocol.Fail(protocol.ErrElementNotFound, "Post button disappeared before it could be clicked")
	}

	if err := a.clock.Sleep(ctx, 2*time.Second); err != nil {
		return protocol.AutomationResult{Success: false, Message: "interrupted: " + err.Error()}
	}

	var confirmed bool
	if err := a.page.Eval(ctx, confirmRepostJS, &confirmed); err == nil && confirmed {
		log.Printf("CLICK_POST: dismissed the Continue-to-post confirmation")
	}

	// The watcher must outlive the request that triggered the click,
	// so it runs on its own context.
	go func() {
		if _, fired := a.watchForSuccess(context.Background(), taskID); !fired {
			log.Printf("CLICK_POST: no success signal within %s for task %s", successPollTimeout, taskID)
		}
	}()

	return protocol.OK("Post button clicked, watching for completion")
}

// successProbeJS checks the three completion signals in priority
// order: a redirect to the content listing, a success modal, and
// success phrasing anywhere in the body.
const successProbeJS = `
(function() {
	if (window.location.href.includes('/tiktokstudio/content')) {
		return { method: 'redirect' };
	}

	for (const modal of document.querySelectorAll('.common-modal-confirm-modal, [class*="success"]')) {
		const text = modal.textContent.toLowerCase();
		if (text.includes('successful') || text.includes('uploaded')) {
			return { method: 'modal' };
		}
	}

	const body = document.body ? document.body.textContent : '';
	const phrases = ['Post successful', 'Your video is being uploaded',
		'Manage your posts', 'View post', 'Post another video'];
	for (const phrase of phrases) {
		if (body.includes(phrase)) return { method: 'text' };
	}

	return { method: '' };
})()`

// watchForSuccess polls the page for a completion signal and fires the
// success webhook once when one appears. A full timeout means give up
// silently; no failure webhook exists.
func (a *PageAgent) watchForSuccess(ctx context.Context, taskID string) (string, bool) {
	if taskID == "" {
		if marker, ok := a.markers.Last(); ok {
			taskID = marker
		}
	}

	deadline := a.clock.Now().Add(successPollTimeout)
	for {
		var probe struct {
			Method string `json:"method"`
		}
		if err := a.page.Eval(ctx, successProbeJS, &probe); err != nil {
			log.Printf("success watch: probe failed: %v", err)
		} else if probe.Method != "" {
			if taskID == "" {
				log.Printf("Post detected as successful via %s but no task id is on record, skipping webhook", probe.Method)
				return probe.Method, true
			}
			loc, _ := a.page.Location(ctx)
			log.Printf("Post detected as successful via %s for task %s", probe.Method, taskID)
			a.notifier.NotifySuccess(ctx, taskID, loc, probe.Method)
			return probe.Method, true
		}

		if a.clock.Now().After(deadline) {
			return "", false
		}
		if err := a.clock.Sleep(ctx, successPollInterval); err != nil {
			return "", false
		}
	}
}
