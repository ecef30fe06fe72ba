package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"tokflow/internal/protocol"
)

const fileInputSelector = `input[type="file"]`

const fileInputTimeout = 10 * time.Second

// dispatchFileChangeJS wakes the page's upload handler after the file
// list was attached over the DevTools protocol, which does not fire
// the change event by itself.
const dispatchFileChangeJS = `
(function() {
	const input = document.querySelector('input[type="file"]');
	if (!input) return false;
	input.dispatchEvent(new Event('change', { bubbles: true, cancelable: true }));
	return true;
})()`

const uploadProbeJS = `
(function() {
	return {
		progress: !!document.querySelector('[data-e2e="upload-progress"]'),
		error: !!document.querySelector('[data-e2e="upload-error"]')
	};
})()`

// UploadVideo downloads the video through the fetch relay and attaches
// it to the page's file input. Preconditions: an upload page with a
// logged-in session.
func (a *PageAgent) UploadVideo(ctx context.Context, data protocol.UploadVideoData) protocol.AutomationResult {
	pc := a.PageContext(ctx)
	if pc.PageType == protocol.PageOther {
		return protocol.Fail(protocol.ErrWrongPage,
			fmt.Sprintf("Not on an upload page (current: %s)", pc.URL))
	}
	if pc.LoginState == protocol.LoggedOut {
		return protocol.Fail(protocol.ErrNotLoggedIn, "Not logged in to TikTok")
	}

	log.Printf("UPLOAD_VIDEO: task %s downloading %s", data.TaskID, data.VideoURL)
	path, err := a.videos.Download(ctx, data.VideoURL)
	if err != nil {
		return protocol.Fail(protocol.ErrNetworkError, "Failed to download video: "+err.Error())
	}

	if err := a.waitForElement(ctx, fileInputSelector, fileInputTimeout); err != nil {
		return protocol.Fail(protocol.ErrElementNotFound, "Could not find the video file input")
	}
	if err := a.page.SetFileInput(ctx, fileInputSelector, path); err != nil {
		return protocol.AutomationResult{Success: false, Message: "Failed to attach video file: " + err.Error()}
	}

	var changed bool
	if err := a.page.Eval(ctx, dispatchFileChangeJS, &changed); err != nil || !changed {
		log.Printf("UPLOAD_VIDEO: change dispatch failed (changed=%v err=%v)", changed, err)
	}

	// Let the page start processing before probing for an error banner.
	if err := a.clock.Sleep(ctx, 3*time.Second); err != nil {
		return protocol.AutomationResult{Success: false, Message: "interrupted: " + err.Error()}
	}

	var probe struct {
		Progress bool `json:"progress"`
		Error    bool `json:"error"`
	}
	if err := a.page.Eval(ctx, uploadProbeJS, &probe); err == nil {
		if probe.Error {
			return protocol.AutomationResult{Success: false, Message: "Page reported an upload error"}
		}
		if probe.Progress {
			log.Printf("UPLOAD_VIDEO: task %s upload in progress", data.TaskID)
		}
	}

	return protocol.OK("Video file attached")
}
