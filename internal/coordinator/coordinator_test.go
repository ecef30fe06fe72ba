package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokflow/internal/agent"
	"tokflow/internal/bridge"
	"tokflow/internal/protocol"
	"tokflow/pkg/clock"
)

type stubPage struct {
	location string
}

func (p stubPage) Eval(_ context.Context, js string, out interface{}) error {
	if out == nil {
		return nil
	}
	raw, _ := json.Marshal(true)
	return json.Unmarshal(raw, out)
}
func (p stubPage) Location(context.Context) (string, error)       { return p.location, nil }
func (p stubPage) Navigate(context.Context, string) error         { return nil }
func (p stubPage) SetFileInput(context.Context, string, string) error { return nil }

type stubBridgePage struct {
	identity interface{}
	err      error
}

func (p stubBridgePage) Eval(_ context.Context, js string, out interface{}) error {
	if p.err != nil {
		return p.err
	}
	raw, _ := json.Marshal(p.identity)
	return json.Unmarshal(raw, out)
}

type stubCookieBroker struct {
	mu     sync.Mutex
	names  []string
	failOn string
}

func (b *stubCookieBroker) SetCookie(_ context.Context, c protocol.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.Name == b.failOn {
		return assert.AnError
	}
	b.names = append(b.names, c.Name)
	return nil
}

type stubWindows struct {
	opened  []string
	focused []string
	closed  []string
	alive   map[string]bool
	nextID  string
}

func (w *stubWindows) PanelURL() string { return "http://localhost:8080/panel" }

func (w *stubWindows) Open(_ context.Context, url string, _, _ int) (string, error) {
	w.opened = append(w.opened, url)
	if w.alive == nil {
		w.alive = make(map[string]bool)
	}
	w.alive[w.nextID] = true
	return w.nextID, nil
}

func (w *stubWindows) Focus(_ context.Context, id string) error {
	w.focused = append(w.focused, id)
	return nil
}

func (w *stubWindows) Close(_ context.Context, id string) error {
	w.closed = append(w.closed, id)
	w.alive[id] = false
	return nil
}

func (w *stubWindows) Exists(_ context.Context, id string) bool { return w.alive[id] }

type noopNotifier struct{}

func (noopNotifier) NotifySuccess(context.Context, string, string, string) {}

type memMarkers struct {
	mu sync.Mutex
	id string
}

func (m *memMarkers) Last() (string, bool) { m.mu.Lock(); defer m.mu.Unlock(); return m.id, m.id != "" }
func (m *memMarkers) Set(id string) error  { m.mu.Lock(); defer m.mu.Unlock(); m.id = id; return nil }
func (m *memMarkers) Clear() error         { m.mu.Lock(); defer m.mu.Unlock(); m.id = ""; return nil }

func newTestCoordinator(t *testing.T) (*Coordinator, *stubCookieBroker, *stubWindows, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(time.Unix(1700000000, 0))
	pa := agent.New(stubPage{location: "https://www.tiktok.com/tiktokstudio/upload"},
		clk, nil, noopNotifier{}, &memMarkers{})
	br := bridge.New(stubBridgePage{identity: map[string]interface{}{
		"success": true, "userId": "u-1", "email": "a@b.c",
	}})
	cookies := &stubCookieBroker{}
	windows := &stubWindows{nextID: "win-1"}
	coord := New(pa, br, NewFetchRelay(), cookies, windows, clk)
	return coord, cookies, windows, clk
}

func TestDispatchPing(t *testing.T) {
	coord, _, _, clk := newTestCoordinator(t)

	resp := coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionPing})
	pong, ok := resp.(protocol.Pong)
	require.True(t, ok)
	assert.True(t, pong.Success)
	assert.Equal(t, clk.Now().UnixMilli(), pong.Timestamp)
}

func TestDispatchUnknownActionAnswered(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)

	resp := coord.Dispatch(context.Background(), protocol.Request{Action: "NO_SUCH_THING"})
	result, ok := resp.(protocol.AutomationResult)
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrUnknownAction, result.Error)
}

func TestDispatchGetUserID(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)

	resp := coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionGetUserID})
	identity, ok := resp.(protocol.UserIdentity)
	require.True(t, ok)
	assert.True(t, identity.Success)
	assert.Equal(t, "u-1", identity.UserID)
}

func TestSetCookiesReportsPerCookie(t *testing.T) {
	coord, cookies, _, _ := newTestCoordinator(t)
	cookies.failOn = "broken"

	data, _ := json.Marshal(protocol.SetCookiesData{Cookies: []protocol.Cookie{
		{Name: "sessionid", Value: "abc", Domain: ".tiktok.com"},
		{Name: "broken", Value: "x"},
		{Name: "theme", Value: "dark"},
	}})
	resp := coord.Dispatch(context.Background(), protocol.Request{
		Action: protocol.ActionSetCookies, Data: data,
	})

	out, ok := resp.(protocol.SetCookiesResponse)
	require.True(t, ok)
	assert.True(t, out.Success)
	assert.True(t, out.HasSessionCookie)
	assert.Equal(t, "Set 2 of 3 cookies", out.Message)
	require.Len(t, out.Results, 3)
	assert.True(t, out.Results[0].Success)
	assert.False(t, out.Results[1].Success)
	assert.NotEmpty(t, out.Results[1].Error)
}

func TestPersistentWindowCreateThenFocus(t *testing.T) {
	coord, _, windows, _ := newTestCoordinator(t)

	resp := coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionOpenPersistentWindow})
	result := resp.(protocol.AutomationResult)
	require.True(t, result.Success)
	assert.Equal(t, "Opened new window", result.Message)
	assert.Equal(t, "win-1", coord.Session().WindowID())

	resp = coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionOpenPersistentWindow})
	result = resp.(protocol.AutomationResult)
	require.True(t, result.Success)
	assert.Equal(t, "Focused existing window", result.Message)
	assert.Len(t, windows.opened, 1)
	assert.Equal(t, []string{"win-1"}, windows.focused)
}

func TestPersistentWindowReopensAfterClose(t *testing.T) {
	coord, _, windows, _ := newTestCoordinator(t)

	coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionOpenPersistentWindow})
	// Operator closed it out of band.
	windows.alive["win-1"] = false
	windows.nextID = "win-2"

	resp := coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionOpenPersistentWindow})
	result := resp.(protocol.AutomationResult)
	require.True(t, result.Success)
	assert.Equal(t, "Opened new window", result.Message)
	assert.Equal(t, "win-2", coord.Session().WindowID())
}

func TestCloseWindowClearsSession(t *testing.T) {
	coord, _, windows, _ := newTestCoordinator(t)

	coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionOpenPersistentWindow})
	resp := coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionClosePersistentWindow})
	result := resp.(protocol.AutomationResult)
	require.True(t, result.Success)
	assert.Equal(t, []string{"win-1"}, windows.closed)
	assert.Empty(t, coord.Session().WindowID())
}

func TestDispatchPinsCurrentTask(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)

	data, _ := json.Marshal(protocol.UploadVideoData{TaskID: "task-5", VideoURL: "https://cdn/v.mp4"})
	coord.Dispatch(context.Background(), protocol.Request{Action: protocol.ActionUploadVideo, Data: data})
	assert.Equal(t, "task-5", coord.Session().CurrentTaskID())
}
