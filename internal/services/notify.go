package services

import (
	"context"
	"log"

	"tokflow/internal/coordinator"
	"tokflow/internal/models"
	"tokflow/pkg/clock"
	"tokflow/pkg/database"
)

// SuccessNotifier records a detected post in the database, pushes the
// panel event, and delegates webhook delivery to the coordinator's
// notifier. Implements agent.Notifier.
type SuccessNotifier struct {
	webhook *coordinator.WebhookNotifier
	clock   clock.Clock
}

func NewSuccessNotifier(webhook *coordinator.WebhookNotifier, clk clock.Clock) *SuccessNotifier {
	return &SuccessNotifier{webhook: webhook, clock: clk}
}

func (n *SuccessNotifier) NotifySuccess(ctx context.Context, taskID, pageURL, method string) {
	if taskID != "" {
		err := database.DB.Model(&models.PostTask{}).
			Where("task_id = ?", taskID).
			Updates(map[string]interface{}{
				"status":           models.TaskStatusPosted,
				"detection_method": method,
				"posted_url":       pageURL,
				"posted_at":        n.clock.Now(),
			}).Error
		if err != nil {
			log.Printf("failed to record posted task %s: %v", taskID, err)
		}
	}

	GlobalEvents.Broadcast("task_posted", map[string]string{
		"taskId": taskID,
		"method": method,
		"url":    pageURL,
	})

	n.webhook.NotifySuccess(ctx, taskID, pageURL, method)
}
