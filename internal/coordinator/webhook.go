package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"tokflow/internal/agent"
	"tokflow/internal/protocol"
	"tokflow/pkg/clock"
)

// WebhookNotifier posts success notifications to the configured
// endpoint. Implements agent.Notifier.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	markers agent.MarkerStore
	clock   clock.Clock
}

func NewWebhookNotifier(url string, markers agent.MarkerStore, clk clock.Clock) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		markers: markers,
		clock:   clk,
	}
}

// NotifySuccess fires the webhook for one completed task. The task
// marker is cleared before the POST so a retry after a crash cannot
// deliver the same task twice; a lost webhook is accepted over a
// duplicate one. Delivery failures are logged and never retried.
func (n *WebhookNotifier) NotifySuccess(ctx context.Context, taskID, pageURL, method string) {
	if err := n.markers.Clear(); err != nil {
		log.Printf("webhook: failed to clear task marker for %s: %v", taskID, err)
	}
	if n.url == "" {
		log.Printf("webhook: no endpoint configured, skipping notification for task %s", taskID)
		return
	}

	payload := protocol.WebhookPayload{
		TaskID:          taskID,
		Status:          "success",
		Timestamp:       n.clock.Now().UTC().Format(time.RFC3339),
		URL:             pageURL,
		DetectionMethod: method,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhook: failed to encode payload for task %s: %v", taskID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("webhook: failed to build request for task %s: %v", taskID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("webhook: delivery failed for task %s: %v", taskID, err)
		return
	}
	resp.Body.Close()
	log.Printf("✅ webhook delivered for task %s (%s, status %d)", taskID, method, resp.StatusCode)
}
