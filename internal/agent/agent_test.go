package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokflow/internal/protocol"
)

func request(action string, data interface{}) protocol.Request {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	return protocol.Request{Action: action, Data: raw}
}

func TestHandleUnknownAction(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")

	resp := ta.agent.Handle(context.Background(), request("MAKE_COFFEE", nil), "")
	result, ok := resp.(protocol.AutomationResult)
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrUnknownAction, result.Error)
	assert.Contains(t, result.Message, "MAKE_COFFEE")
}

func TestHandlePersistsMarkerBeforeDOMWork(t *testing.T) {
	// Wrong page: upload will refuse, but the marker must already be
	// stored so a navigation race can still attribute the task.
	ta := newTestAgent("https://www.tiktok.com/@someone")

	resp := ta.agent.Handle(context.Background(), request(protocol.ActionUploadVideo, protocol.UploadVideoData{
		TaskID:   "task-77",
		VideoURL: "https://cdn.example.com/v.mp4",
	}), "")

	result := resp.(protocol.AutomationResult)
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrWrongPage, result.Error)

	marker, ok := ta.markers.Last()
	require.True(t, ok)
	assert.Equal(t, "task-77", marker)
}

func TestHandleRecoversFromPanic(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		panic("page model went away")
	}

	resp := ta.agent.Handle(context.Background(), request(protocol.ActionSetCaption, protocol.SetCaptionData{
		Caption: "hi",
	}), "")

	result, ok := resp.(protocol.AutomationResult)
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "SET_CAPTION")
}

func TestHandleRoutesReadOnlyActions(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		if strings.Contains(js, "hasVideoInput") {
			return map[string]interface{}{"title": "Upload", "hasVideoInput": true, "hasCaptionInput": false}, nil
		}
		return map[string]interface{}{"isLoggedIn": true}, nil
	}

	info, ok := ta.agent.Handle(context.Background(), request(protocol.ActionGetPageInfo, nil), "").(protocol.PageInfo)
	require.True(t, ok)
	assert.Equal(t, protocol.PageRegularUpload, info.PageType)

	status, ok := ta.agent.Handle(context.Background(), request(protocol.ActionCheckLoginStatus, nil), "").(protocol.LoginStatus)
	require.True(t, ok)
	assert.Equal(t, protocol.LoggedIn, status.State)
}

func TestUploadVideoHappyPath(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		switch {
		case strings.Contains(js, "hasVideoInput"):
			return map[string]interface{}{"title": "Upload", "hasVideoInput": true, "hasCaptionInput": true}, nil
		case strings.Contains(js, "isStudioPage"):
			return map[string]interface{}{"isLoggedIn": true}, nil
		case strings.Contains(js, "upload-progress"):
			return map[string]interface{}{"progress": true, "error": false}, nil
		default:
			return true, nil
		}
	}

	result := ta.agent.UploadVideo(context.Background(), protocol.UploadVideoData{
		TaskID:   "task-1",
		VideoURL: "https://cdn.example.com/v.mp4",
	})
	require.True(t, result.Success, result.Message)
	require.Len(t, ta.page.files, 1)
	assert.Equal(t, "/tmp/video.mp4", ta.page.files[0])
}

func TestUploadVideoNotLoggedIn(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		switch {
		case strings.Contains(js, "hasVideoInput"):
			return map[string]interface{}{"title": "Log in"}, nil
		case strings.Contains(js, "isStudioPage"):
			return map[string]interface{}{"isLoggedIn": false, "hasLoginButton": true}, nil
		default:
			return true, nil
		}
	}

	result := ta.agent.UploadVideo(context.Background(), protocol.UploadVideoData{
		TaskID:   "task-1",
		VideoURL: "https://cdn.example.com/v.mp4",
	})
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrNotLoggedIn, result.Error)
	assert.Empty(t, ta.page.files)
}

func TestUploadVideoDownloadFailure(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.videos.err = assert.AnError
	ta.videos.path = ""
	ta.page.respond = func(js string) (interface{}, error) {
		switch {
		case strings.Contains(js, "hasVideoInput"):
			return map[string]interface{}{"title": "Upload"}, nil
		case strings.Contains(js, "isStudioPage"):
			return map[string]interface{}{"isLoggedIn": true}, nil
		default:
			return true, nil
		}
	}

	result := ta.agent.UploadVideo(context.Background(), protocol.UploadVideoData{
		TaskID:   "task-1",
		VideoURL: "https://cdn.example.com/broken.mp4",
	})
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrNetworkError, result.Error)
}
