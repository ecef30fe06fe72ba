package coordinator

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"tokflow/internal/agent"
	"tokflow/internal/bridge"
	"tokflow/internal/protocol"
	"tokflow/pkg/clock"
)

// Session holds per-coordinator mutable state: the auxiliary window id
// and the task currently being driven. Scoped here rather than in
// package variables so multiple coordinators can coexist in one
// process (tests run several side by side).
type Session struct {
	mu            sync.Mutex
	windowID      string
	currentTaskID string
}

func (s *Session) WindowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowID
}

func (s *Session) SetWindowID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowID = id
}

func (s *Session) CurrentTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTaskID
}

func (s *Session) SetCurrentTaskID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTaskID = id
}

// Coordinator routes protocol requests to the page agent, the identity
// bridge, or its own services (fetch relay, cookie broker, window
// management).
type Coordinator struct {
	agent   *agent.PageAgent
	bridge  *bridge.Bridge
	fetch   *FetchRelay
	cookies CookieBroker
	windows WindowManager
	clock   clock.Clock
	session Session
}

func New(pa *agent.PageAgent, br *bridge.Bridge, fetch *FetchRelay, cookies CookieBroker, windows WindowManager, clk clock.Clock) *Coordinator {
	return &Coordinator{
		agent:   pa,
		bridge:  br,
		fetch:   fetch,
		cookies: cookies,
		windows: windows,
		clock:   clk,
	}
}

// Session exposes the mutable session state for callers that start
// tasks (the panel handlers and the scheduler).
func (c *Coordinator) Session() *Session {
	return &c.session
}

// Dispatch handles one request and returns the action's typed
// response. Unknown actions are answered, never dropped.
func (c *Coordinator) Dispatch(ctx context.Context, req protocol.Request) interface{} {
	log.Printf("dispatch: %s", req.Action)

	switch req.Action {
	case protocol.ActionPing:
		return protocol.Pong{
			Success:   true,
			Message:   "pong",
			Timestamp: c.clock.Now().UnixMilli(),
		}

	case protocol.ActionFetchAPI:
		var data protocol.FetchAPIData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return protocol.FetchResponse{Status: 0, Error: "invalid FETCH_API payload: " + err.Error()}
		}
		return c.fetch.Relay(ctx, data)

	case protocol.ActionSetCookies:
		var data protocol.SetCookiesData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return protocol.SetCookiesResponse{Success: false, Message: "invalid SET_COOKIES payload: " + err.Error()}
		}
		return c.setCookies(ctx, data.Cookies)

	case protocol.ActionOpenPersistentWindow:
		return c.openPersistentWindow(ctx)

	case protocol.ActionClosePersistentWindow:
		return c.closePersistentWindow(ctx)

	case protocol.ActionGetUserID:
		return c.bridge.GetUserIdentity(ctx)
	}

	// Everything else is page-agent territory. UPLOAD_VIDEO pins the
	// session's current task before handing over.
	if req.Action == protocol.ActionUploadVideo {
		var data protocol.UploadVideoData
		if err := json.Unmarshal(req.Data, &data); err == nil && data.TaskID != "" {
			c.session.SetCurrentTaskID(data.TaskID)
		}
	}
	return c.agent.Handle(ctx, req, c.session.CurrentTaskID())
}
