package handlers

import (
	"context"
	"strconv"

	"tokflow/internal/models"
	"tokflow/internal/services"
	"tokflow/pkg/database"
	"tokflow/pkg/response"
	"tokflow/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskRequest struct {
	AccountID      uint   `json:"account_id" binding:"required"`
	VideoURL       string `json:"video_url" binding:"required,url"`
	Caption        string `json:"caption"`
	ProductID      string `json:"product_id"`
	AIContent      bool   `json:"ai_content"`
	CronExpression string `json:"cron_expression"`
}

func GetTasks(c *gin.Context) {
	userID := c.GetUint("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := database.DB.Model(&models.PostTask{}).Preload("Account")
	if !utils.IsAdmin(userID) {
		query = query.Where("user_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var tasks []models.PostTask
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&tasks).Error; err != nil {
		response.InternalServerError(c, "failed to query tasks")
		return
	}
	response.Page(c, tasks, total, page, pageSize)
}

func GetTask(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	if !utils.HasPermissionOnTask(c.GetUint("user_id"), uint(id)) {
		response.Forbidden(c, "no permission on this task")
		return
	}

	var task models.PostTask
	if err := database.DB.Preload("Account").First(&task, id).Error; err != nil {
		response.NotFound(c, "task not found")
		return
	}
	response.Success(c, task)
}

// CreateTask records a post task. With a cron expression the task is
// scheduled; otherwise it starts immediately.
func CreateTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := c.GetUint("user_id")
	if !utils.HasPermissionOnAccount(userID, req.AccountID) {
		response.Forbidden(c, "no permission on this account")
		return
	}

	task := models.PostTask{
		TaskID:         uuid.New().String(),
		AccountID:      req.AccountID,
		UserID:         userID,
		VideoURL:       req.VideoURL,
		Caption:        req.Caption,
		ProductID:      req.ProductID,
		AIContent:      req.AIContent,
		CronExpression: req.CronExpression,
		Status:         models.TaskStatusPending,
	}
	if req.CronExpression != "" {
		task.Status = models.TaskStatusScheduled
	}

	if err := database.DB.Create(&task).Error; err != nil {
		response.InternalServerError(c, "failed to create task")
		return
	}

	if task.Status == models.TaskStatusScheduled {
		if err := services.GlobalScheduler.AddTaskSchedule(task); err != nil {
			response.BadRequest(c, "invalid cron expression: "+err.Error())
			return
		}
		response.SuccessWithMessage(c, "task scheduled", task)
		return
	}

	if err := database.DB.Preload("Account").First(&task, task.ID).Error; err == nil {
		go services.GlobalRunner.Run(context.Background(), task)
	}
	response.SuccessWithMessage(c, "task started", task)
}

// RunTask re-runs a pending or failed task immediately.
func RunTask(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	if !utils.HasPermissionOnTask(c.GetUint("user_id"), uint(id)) {
		response.Forbidden(c, "no permission on this task")
		return
	}

	var task models.PostTask
	if err := database.DB.Preload("Account").First(&task, id).Error; err != nil {
		response.NotFound(c, "task not found")
		return
	}
	if task.Status == models.TaskStatusRunning {
		response.BadRequest(c, "task is already running")
		return
	}

	go services.GlobalRunner.Run(context.Background(), task)
	response.SuccessWithMessage(c, "task started", task)
}

func DeleteTask(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	if !utils.HasPermissionOnTask(c.GetUint("user_id"), uint(id)) {
		response.Forbidden(c, "no permission on this task")
		return
	}

	services.GlobalScheduler.RemoveTaskSchedule(uint(id))
	if err := database.DB.Delete(&models.PostTask{}, id).Error; err != nil {
		response.InternalServerError(c, "failed to delete task")
		return
	}
	response.SuccessWithMessage(c, "task deleted", nil)
}
