package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"tokflow/internal/protocol"
	"tokflow/pkg/clock"
)

// Notifier delivers the success webhook. The implementation clears the
// task marker before the network call so the webhook fires at most
// once per task id.
type Notifier interface {
	NotifySuccess(ctx context.Context, taskID, pageURL, method string)
}

// MarkerStore persists the single last-task marker across navigations.
type MarkerStore interface {
	Last() (string, bool)
	Set(taskID string) error
	Clear() error
}

// VideoFetcher downloads a video to a local file through the
// coordinator's fetch relay.
type VideoFetcher interface {
	Download(ctx context.Context, videoURL string) (string, error)
}

// PageAgent runs against the upload page and performs all DOM work.
// One command is handled at a time; every operation returns an
// AutomationResult, never a raw error.
type PageAgent struct {
	page     Page
	clock    clock.Clock
	videos   VideoFetcher
	notifier Notifier
	markers  MarkerStore
}

func New(page Page, clk clock.Clock, videos VideoFetcher, notifier Notifier, markers MarkerStore) *PageAgent {
	return &PageAgent{
		page:     page,
		clock:    clk,
		videos:   videos,
		notifier: notifier,
		markers:  markers,
	}
}

// RecoverFromRedirect checks whether the page the agent attached to is
// the post-content listing a successful submit navigates to. If a task
// marker survived the navigation the webhook is fired immediately.
// This covers submits that redirect before the success poll can
// observe completion in place.
func (a *PageAgent) RecoverFromRedirect(ctx context.Context) {
	loc, err := a.page.Location(ctx)
	if err != nil {
		log.Printf("redirect recovery: failed to read location: %v", err)
		return
	}
	if !strings.Contains(loc, contentPagePath) {
		return
	}
	taskID, ok := a.markers.Last()
	if !ok {
		return
	}
	log.Printf("Detected redirect to content page for task %s", taskID)
	a.notifier.NotifySuccess(ctx, taskID, loc, "redirect_on_load")
}

// Handle dispatches one protocol request. taskID is the session's
// current task, carried per invocation so long-running detection can
// attribute success without a process-wide variable.
func (a *PageAgent) Handle(ctx context.Context, req protocol.Request, taskID string) (resp interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic recovered in page agent (%s): %v", req.Action, r)
			resp = protocol.AutomationResult{
				Success: false,
				Message: fmt.Sprintf("internal fault during %s: %v", req.Action, r),
			}
		}
	}()

	switch req.Action {
	case protocol.ActionUploadVideo:
		var data protocol.UploadVideoData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return protocol.Fail(protocol.ErrUnknownAction, "invalid UPLOAD_VIDEO payload: "+err.Error())
		}
		if data.TaskID != "" {
			// Persist before any DOM work so a redirect mid-flow can
			// still be attributed to this task.
			if err := a.markers.Set(data.TaskID); err != nil {
				log.Printf("failed to persist task marker %s: %v", data.TaskID, err)
			}
		}
		return a.UploadVideo(ctx, data)

	case protocol.ActionSetCaption:
		var data protocol.SetCaptionData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return protocol.Fail(protocol.ErrUnknownAction, "invalid SET_CAPTION payload: "+err.Error())
		}
		return a.SetCaption(ctx, data.Caption)

	case protocol.ActionAddProduct:
		var data protocol.AddProductData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return protocol.Fail(protocol.ErrUnknownAction, "invalid ADD_PRODUCT payload: "+err.Error())
		}
		return a.AddProduct(ctx, data.ProductID)

	case protocol.ActionClickPost:
		return a.ClickPost(ctx, taskID)

	case protocol.ActionToggleAIContent:
		return a.ToggleAIContent(ctx)

	case protocol.ActionCheckLoginStatus:
		return a.CheckLoginStatus(ctx)

	case protocol.ActionGetPageInfo:
		return a.GetPageInfo(ctx)
	}

	return protocol.Fail(protocol.ErrUnknownAction, "unknown action: "+req.Action)
}
