package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tokflow/internal/coordinator"
	"tokflow/internal/models"
	"tokflow/internal/protocol"
	"tokflow/pkg/clock"
	"tokflow/pkg/database"
)

// TaskRunner drives one post task end to end through the coordinator:
// session cookies, video upload, caption, optional product and AI
// label, then the post click. One task at a time; the page can only
// host one upload.
type TaskRunner struct {
	coord *coordinator.Coordinator
	clock clock.Clock
}

var GlobalRunner *TaskRunner

func InitRunner(coord *coordinator.Coordinator, clk clock.Clock) {
	GlobalRunner = &TaskRunner{coord: coord, clock: clk}
	log.Println("Task runner initialized")
}

func (r *TaskRunner) dispatch(ctx context.Context, action string, data interface{}) protocol.AutomationResult {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	resp := r.coord.Dispatch(ctx, protocol.Request{Action: action, Data: raw})
	if result, ok := resp.(protocol.AutomationResult); ok {
		return result
	}
	return protocol.OK("")
}

// Run executes the task and records its outcome. Success here means
// the post was submitted; the "posted" status arrives later from the
// detection watcher.
func (r *TaskRunner) Run(ctx context.Context, task models.PostTask) {
	log.Printf("▶️ Running task %s (video %s)", task.TaskID, task.VideoURL)
	r.setStatus(&task, models.TaskStatusRunning, "")
	GlobalEvents.Broadcast("task_started", map[string]string{"taskId": task.TaskID})

	if task.Account.Cookies != "" {
		var cookies []protocol.Cookie
		if err := json.Unmarshal([]byte(task.Account.Cookies), &cookies); err != nil {
			log.Printf("task %s: account cookies unreadable: %v", task.TaskID, err)
		} else {
			r.dispatch(ctx, protocol.ActionSetCookies, protocol.SetCookiesData{Cookies: cookies})
		}
	}

	if result := r.dispatch(ctx, protocol.ActionUploadVideo, protocol.UploadVideoData{
		TaskID:   task.TaskID,
		VideoURL: task.VideoURL,
	}); !result.Success {
		r.fail(&task, result)
		return
	}

	// The page needs time to process the file before the caption
	// editor accepts input.
	r.clock.Sleep(ctx, 5*time.Second)

	if task.Caption != "" {
		if result := r.dispatch(ctx, protocol.ActionSetCaption, protocol.SetCaptionData{
			Caption: task.Caption,
		}); !result.Success {
			r.fail(&task, result)
			return
		}
	}

	if task.ProductID != "" {
		if result := r.dispatch(ctx, protocol.ActionAddProduct, protocol.AddProductData{
			ProductID: task.ProductID,
		}); !result.Success {
			r.fail(&task, result)
			return
		}
	}

	if task.AIContent {
		if result := r.dispatch(ctx, protocol.ActionToggleAIContent, nil); !result.Success {
			// The label is not worth abandoning the post over.
			log.Printf("task %s: AI label not set: %s", task.TaskID, result.Message)
		}
	}

	result := r.retryClickPost(ctx, task.TaskID)
	if !result.Success {
		r.fail(&task, result)
		return
	}

	log.Printf("✅ Task %s submitted, awaiting detection", task.TaskID)
	GlobalEvents.Broadcast("task_submitted", map[string]string{"taskId": task.TaskID})
}

// retryClickPost polls the post button while the page is still
// processing the upload. STILL_LOCKED is the only retryable outcome.
func (r *TaskRunner) retryClickPost(ctx context.Context, taskID string) protocol.AutomationResult {
	deadline := r.clock.Now().Add(5 * time.Minute)
	for {
		result := r.dispatch(ctx, protocol.ActionClickPost, nil)
		if result.Success || result.Error != protocol.ErrStillLocked {
			return result
		}
		if r.clock.Now().After(deadline) {
			return protocol.Fail(protocol.ErrTimeout, "Post button never unlocked")
		}
		log.Printf("task %s: post button still locked, retrying", taskID)
		if err := r.clock.Sleep(ctx, 5*time.Second); err != nil {
			return protocol.Fail(protocol.ErrTimeout, "interrupted while waiting for the post button")
		}
	}
}

func (r *TaskRunner) fail(task *models.PostTask, result protocol.AutomationResult) {
	log.Printf("❌ Task %s failed: %s (%s)", task.TaskID, result.Message, result.Error)
	r.setStatus(task, models.TaskStatusFailed, result.Message)
	GlobalEvents.Broadcast("task_failed", map[string]string{
		"taskId": task.TaskID,
		"error":  string(result.Error),
		"reason": result.Message,
	})
}

func (r *TaskRunner) setStatus(task *models.PostTask, status, errMsg string) {
	task.Status = status
	task.ErrorMessage = errMsg
	if err := database.DB.Model(&models.PostTask{}).
		Where("task_id = ?", task.TaskID).
		Updates(map[string]interface{}{"status": status, "error_message": errMsg}).Error; err != nil {
		log.Printf("task %s: failed to persist status %s: %v", task.TaskID, status, err)
	}
}
