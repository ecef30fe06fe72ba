package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"tokflow/internal/protocol"
)

const fetchTimeout = 30 * time.Second

// FetchRelay performs HTTP requests on behalf of page-side callers,
// mirroring fetch() semantics: the response body is parsed as JSON
// when the content type declares it, kept as text otherwise.
type FetchRelay struct {
	client *http.Client
}

func NewFetchRelay() *FetchRelay {
	return &FetchRelay{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Relay executes one request. Transport failures are reported inside
// the response shape, not as errors: a timeout maps to status 408 and
// a connection failure to status 0, the way a fetch() caller would
// observe them.
func (r *FetchRelay) Relay(ctx context.Context, data protocol.FetchAPIData) protocol.FetchResponse {
	method := data.Options.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if data.Options.Body != "" {
		body = strings.NewReader(data.Options.Body)
	}

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, data.URL, body)
	if err != nil {
		return protocol.FetchResponse{Status: 0, Error: "invalid request: " + err.Error()}
	}
	for name, value := range data.Options.Headers {
		req.Header.Set(name, value)
	}

	log.Printf("FETCH_API: %s %s", method, data.URL)
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return protocol.FetchResponse{
				Status:     408,
				StatusText: "Request Timeout",
				Error:      "Request timeout after 30 seconds",
			}
		}
		return protocol.FetchResponse{
			Status: 0,
			Error:  "Network error: Failed to connect to server",
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.FetchResponse{Status: 0, Error: "failed to read response body: " + err.Error()}
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	out := protocol.FetchResponse{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err == nil {
			out.Data = parsed
			return out
		}
	}
	out.Data = string(raw)
	return out
}

// Download fetches a video to a temporary file for file-input
// injection. Implements agent.VideoFetcher.
func (r *FetchRelay) Download(ctx context.Context, videoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("video download failed: " + resp.Status)
	}

	file, err := tempVideoFile(videoURL)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", err
	}
	log.Printf("downloaded video %s to %s", videoURL, file.Name())
	return file.Name(), nil
}
