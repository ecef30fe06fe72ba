package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Manager owns the Chrome processes the automation drives: the primary
// browser that hosts the upload and companion tabs, plus any auxiliary
// app windows. ChromeDP v0.9.2 shares one allocator poorly across
// processes, so every instance gets its own debugging port.
type Manager struct {
	mutex     sync.Mutex
	processes map[string]*Process
	basePort  int
	headless  bool
	binPath   string
}

type Process struct {
	Command *exec.Cmd
	Port    int
	PID     int
}

func NewManager(basePort int, headless bool, binPath string) *Manager {
	return &Manager{
		processes: make(map[string]*Process),
		basePort:  basePort,
		headless:  headless,
		binPath:   binPath,
	}
}

// StartBrowser launches the primary automation browser opened on
// targetURL and returns its debugging port.
func (m *Manager) StartBrowser(key, targetURL string) (int, error) {
	return m.start(key, targetURL, nil)
}

// StartAppWindow launches a minimal-chrome app window of the given
// size. Used for the persistent control window.
func (m *Manager) StartAppWindow(key, url string, width, height int) (int, error) {
	extra := []string{
		"--app=" + url,
		fmt.Sprintf("--window-size=%d,%d", width, height),
	}
	return m.start(key, "", extra)
}

func (m *Manager) start(key, targetURL string, extraArgs []string) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, ok := m.processes[key]; ok {
		if m.isPortResponsive(existing.Port) {
			log.Printf("🔄 Reusing Chrome instance %s on port %d", key, existing.Port)
			return existing.Port, nil
		}
		delete(m.processes, key)
	}

	port := m.findAvailablePort()
	if port == 0 {
		return 0, fmt.Errorf("no available port found")
	}

	chromePath := m.binPath
	if chromePath == "" {
		chromePath = GetChromePath()
	}
	if chromePath == "" {
		return 0, fmt.Errorf("Chrome not found")
	}

	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(port),
		"--user-data-dir=" + fmt.Sprintf("/tmp/tokflow-chrome-%s", key),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-features=VizDisplayCompositor",
	}
	if m.headless {
		args = append(args, "--headless=new")
	}
	args = append(args, extraArgs...)
	if targetURL != "" {
		args = append(args, targetURL)
	}

	log.Printf("🚀 Starting Chrome instance %s on port %d", key, port)
	cmd := exec.Command(chromePath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start Chrome: %v", err)
	}

	process := &Process{
		Command: cmd,
		Port:    port,
		PID:     cmd.Process.Pid,
	}
	m.processes[key] = process

	if err := m.waitForChromeReady(port, 15*time.Second); err != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		delete(m.processes, key)
		return 0, fmt.Errorf("Chrome failed to start properly: %v", err)
	}

	log.Printf("✅ Chrome instance %s ready (PID: %d, Port: %d)", key, process.PID, port)
	return port, nil
}

func (m *Manager) waitForChromeReady(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	debugURL := fmt.Sprintf("http://localhost:%d/json", port)

	for time.Now().Before(deadline) {
		resp, err := http.Get(debugURL)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("Chrome debugging endpoint not ready within %v", timeout)
}

// Target is one entry of the /json target listing.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ListTargets returns the page targets of the instance on port.
func (m *Manager) ListTargets(ctx context.Context, port int) ([]Target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("http://localhost:%d/json", port), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var targets []Target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, err
	}
	pages := targets[:0]
	for _, t := range targets {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// Stop terminates one instance, trying SIGTERM before a kill so Chrome
// can flush its profile.
func (m *Manager) Stop(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	process, exists := m.processes[key]
	if !exists {
		return
	}

	log.Printf("🛑 Stopping Chrome instance %s (PID: %d)", key, process.PID)

	if process.Command.Process != nil {
		err := process.Command.Process.Signal(os.Interrupt)
		if err != nil {
			log.Printf("⚠️ Failed to send SIGTERM to Chrome process %d: %v", process.PID, err)
		} else {
			done := make(chan error, 1)
			go func() {
				done <- process.Command.Wait()
			}()

			select {
			case <-done:
			case <-time.After(3 * time.Second):
				log.Printf("🔨 Graceful shutdown timeout, force killing Chrome process %d", process.PID)
				if killErr := process.Command.Process.Kill(); killErr == nil {
					process.Command.Wait()
				}
			}
		}
	}

	userDataDir := fmt.Sprintf("/tmp/tokflow-chrome-%s", key)
	if err := os.RemoveAll(userDataDir); err != nil {
		log.Printf("⚠️ Failed to cleanup user data dir for %s: %v", key, err)
	}

	delete(m.processes, key)
}

// IsRunning reports whether the instance is alive and its debugging
// endpoint responds.
func (m *Manager) IsRunning(key string) bool {
	m.mutex.Lock()
	process, exists := m.processes[key]
	m.mutex.Unlock()

	if !exists || process.Command == nil {
		return false
	}
	if process.Command.ProcessState != nil && process.Command.ProcessState.Exited() {
		return false
	}
	return m.isPortResponsive(process.Port)
}

func (m *Manager) findAvailablePort() int {
	usedPorts := make(map[int]bool)
	for _, process := range m.processes {
		usedPorts[process.Port] = true
	}

	for port := m.basePort; port <= m.basePort+100; port++ {
		if !usedPorts[port] {
			return port
		}
	}

	return 0
}

func (m *Manager) isPortResponsive(port int) bool {
	debugURL := fmt.Sprintf("http://localhost:%d/json/version", port)
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(debugURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// CleanupAll stops every instance. Called on shutdown.
func (m *Manager) CleanupAll() {
	m.mutex.Lock()
	keys := make([]string, 0, len(m.processes))
	for key := range m.processes {
		keys = append(keys, key)
	}
	m.mutex.Unlock()

	log.Printf("🧹 Cleaning up %d Chrome instance(s)", len(keys))
	for _, key := range keys {
		m.Stop(key)
	}
}
