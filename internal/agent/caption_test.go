package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokflow/internal/protocol"
)

func richTextResponder(caption string) func(js string) (interface{}, error) {
	return func(js string) (interface{}, error) {
		switch {
		case strings.Contains(js, "const probes"):
			return editorHandle{Found: true, Kind: editorRichText,
				Selector: `.public-DraftEditor-content[contenteditable="true"]`}, nil
		case strings.Contains(js, "ClipboardEvent"):
			return map[string]interface{}{"ok": true, "length": len(caption)}, nil
		case strings.Contains(js, "editor.textContent : ''"):
			return caption, nil
		default:
			return true, nil
		}
	}
}

func TestSetCaptionNoEditor(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		if strings.Contains(js, "const probes") {
			return editorHandle{Found: false}, nil
		}
		return true, nil
	}

	result := ta.agent.SetCaption(context.Background(), "hello")
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrElementNotFound, result.Error)
}

func TestSetCaptionRichTextSequence(t *testing.T) {
	caption := "my new video about cooking pasta"
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = richTextResponder(caption)

	result := ta.agent.SetCaption(context.Background(), caption)
	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "rich-text")

	// Three keyed clear passes before the deep clear.
	assert.Equal(t, 3, ta.page.countCalls("execCommand('delete'"))
	assert.Equal(t, 1, ta.page.countCalls(`data-contents`))
	assert.Equal(t, 1, ta.page.countCalls("ClipboardEvent"))
	// Partial typing covers only the first ten characters.
	assert.Equal(t, 10, ta.page.countCalls("charCodeAt"))
	assert.Equal(t, 1, ta.page.countCalls("compositionstart"))
}

func TestSetCaptionPasteEmptyUsesProgrammaticInsert(t *testing.T) {
	caption := "short"
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		switch {
		case strings.Contains(js, "const probes"):
			return editorHandle{Found: true, Kind: editorRichText,
				Selector: `[contenteditable="true"].DraftEditor-content`}, nil
		case strings.Contains(js, "ClipboardEvent"):
			return map[string]interface{}{"ok": true, "length": 0}, nil
		case strings.Contains(js, "editor.textContent : ''"):
			return caption, nil
		default:
			return true, nil
		}
	}

	result := ta.agent.SetCaption(context.Background(), caption)
	require.True(t, result.Success)
	assert.Equal(t, 1, ta.page.countCalls("document.execCommand('insertText'"))
}

func TestSetCaptionFallsBackToTyping(t *testing.T) {
	caption := "fallback caption"
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		switch {
		case strings.Contains(js, "const probes"):
			return editorHandle{Found: true, Kind: editorRichText,
				Selector: `.public-DraftEditor-content[contenteditable="true"]`}, nil
		case strings.Contains(js, "ClipboardEvent"):
			return nil, assert.AnError
		default:
			return true, nil
		}
	}

	result := ta.agent.SetCaption(context.Background(), caption)
	require.True(t, result.Success)
	assert.Contains(t, result.Message, "character-by-character")
	// Every rune typed individually.
	assert.Equal(t, len([]rune(caption)), ta.page.countCalls("charCodeAt"))
}

func TestSetCaptionGenericEditor(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		if strings.Contains(js, "const probes") {
			return editorHandle{Found: true, Kind: editorTextarea, Selector: "textarea"}, nil
		}
		return true, nil
	}

	result := ta.agent.SetCaption(context.Background(), "plain editor text")
	require.True(t, result.Success)
	assert.Contains(t, result.Message, "generic")
	assert.Zero(t, ta.page.countCalls("ClipboardEvent"))
}
