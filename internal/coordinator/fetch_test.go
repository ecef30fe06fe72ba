package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokflow/internal/protocol"
)

func TestRelayParsesJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 7, "ok": true}`))
	}))
	defer server.Close()

	relay := NewFetchRelay()
	resp := relay.Relay(context.Background(), protocol.FetchAPIData{
		URL: server.URL,
		Options: protocol.FetchOptions{
			Method:  "POST",
			Headers: map[string]string{"Authorization": "Bearer tok"},
			Body:    `{"name":"x"}`,
		},
	})

	require.True(t, resp.OK)
	assert.Equal(t, 201, resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), data["id"])
}

func TestRelayKeepsTextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain result"))
	}))
	defer server.Close()

	relay := NewFetchRelay()
	resp := relay.Relay(context.Background(), protocol.FetchAPIData{URL: server.URL})

	require.True(t, resp.OK)
	assert.Equal(t, "plain result", resp.Data)
}

func TestRelayNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))
	defer server.Close()

	relay := NewFetchRelay()
	resp := relay.Relay(context.Background(), protocol.FetchAPIData{URL: server.URL})

	assert.False(t, resp.OK)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "Not Found", resp.StatusText)
}

func TestRelayConnectionFailure(t *testing.T) {
	relay := NewFetchRelay()
	resp := relay.Relay(context.Background(), protocol.FetchAPIData{
		URL: "http://127.0.0.1:1/nothing-listens-here",
	})

	assert.False(t, resp.OK)
	assert.Equal(t, 0, resp.Status)
	assert.Contains(t, resp.Error, "Network error")
}

func TestDownloadWritesTempFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer server.Close()

	relay := NewFetchRelay()
	path, err := relay.Download(context.Background(), server.URL+"/clip.mp4")
	require.NoError(t, err)
	defer os.Remove(path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(content))
	assert.Contains(t, path, ".mp4")
}

func TestDownloadRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	relay := NewFetchRelay()
	_, err := relay.Download(context.Background(), server.URL+"/denied.mp4")
	assert.Error(t, err)
}
