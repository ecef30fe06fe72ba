package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokflow/internal/protocol"
)

func TestAddProductRequiresID(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	result := ta.agent.AddProduct(context.Background(), "")
	assert.False(t, result.Success)
}

func TestAddProductFullWalk(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		return true, nil
	}

	result := ta.agent.AddProduct(context.Background(), "prod-123")
	require.True(t, result.Success, result.Message)
	assert.Contains(t, result.Message, "prod-123")

	// Every step script ran, in order.
	assert.Equal(t, 1, ta.page.countCalls("product-tb-row"))
	assert.Equal(t, 1, ta.page.countCalls("common-modal-footer"))
	assert.Equal(t, 1, ta.page.countCalls("execCommand('selectAll'"))
}

func TestAddProductStopsAtMissingRow(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		if strings.Contains(js, "product-tb-row") {
			return false, nil
		}
		return true, nil
	}

	result := ta.agent.AddProduct(context.Background(), "missing-999")
	assert.False(t, result.Success)
	assert.Equal(t, protocol.ErrElementNotFound, result.Error)
	assert.Contains(t, result.Message, "missing-999")
	// The wizard stopped: nothing after the row step was evaluated.
	assert.Zero(t, ta.page.countCalls("common-modal-footer"))
}

func TestAddProductShowcaseTabOptional(t *testing.T) {
	ta := newTestAgent("https://www.tiktok.com/tiktokstudio/upload")
	ta.page.respond = func(js string) (interface{}, error) {
		if strings.Contains(js, "Showcase products") {
			return false, nil
		}
		return true, nil
	}

	result := ta.agent.AddProduct(context.Background(), "prod-7")
	require.True(t, result.Success, result.Message)
}
