package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"tokflow/pkg/clock"
)

// fakePage scripts Eval responses by substring match and records every
// script it was asked to run.
type fakePage struct {
	mu       sync.Mutex
	calls    []string
	location string
	respond  func(js string) (interface{}, error)
	files    []string
}

func newFakePage(location string) *fakePage {
	return &fakePage{location: location}
}

func (p *fakePage) Eval(_ context.Context, js string, out interface{}) error {
	p.mu.Lock()
	p.calls = append(p.calls, js)
	respond := p.respond
	p.mu.Unlock()

	var value interface{} = true
	if respond != nil {
		v, err := respond(js)
		if err != nil {
			return err
		}
		value = v
	}
	if out == nil || value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *fakePage) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = url
	return nil
}

func (p *fakePage) SetFileInput(_ context.Context, _, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, path)
	return nil
}

func (p *fakePage) countCalls(marker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if strings.Contains(call, marker) {
			n++
		}
	}
	return n
}

type notifyCall struct {
	TaskID string
	URL    string
	Method string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) NotifySuccess(_ context.Context, taskID, pageURL, method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{TaskID: taskID, URL: pageURL, Method: method})
}

func (n *fakeNotifier) all() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

type fakeMarkers struct {
	mu     sync.Mutex
	taskID string
}

func (m *fakeMarkers) Last() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taskID, m.taskID != ""
}

func (m *fakeMarkers) Set(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskID = taskID
	return nil
}

func (m *fakeMarkers) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskID = ""
	return nil
}

type fakeVideos struct {
	path string
	err  error
}

func (v *fakeVideos) Download(context.Context, string) (string, error) {
	return v.path, v.err
}

type testAgent struct {
	agent    *PageAgent
	page     *fakePage
	clock    *clock.Manual
	notifier *fakeNotifier
	markers  *fakeMarkers
	videos   *fakeVideos
}

func newTestAgent(location string) *testAgent {
	page := newFakePage(location)
	clk := clock.NewManual(time.Unix(1700000000, 0))
	notifier := &fakeNotifier{}
	markers := &fakeMarkers{}
	videos := &fakeVideos{path: "/tmp/video.mp4"}
	return &testAgent{
		agent:    New(page, clk, videos, notifier, markers),
		page:     page,
		clock:    clk,
		notifier: notifier,
		markers:  markers,
		videos:   videos,
	}
}
