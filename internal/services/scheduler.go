package services

import (
	"context"
	"log"
	"sync"

	"tokflow/internal/models"
	"tokflow/pkg/database"

	"github.com/robfig/cron/v3"
)

// SchedulerService fires scheduled post tasks at their cron times. A
// fired task runs once and its schedule entry is removed.
type SchedulerService struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[uint]cron.EntryID
}

var GlobalScheduler *SchedulerService

func InitScheduler() error {
	GlobalScheduler = &SchedulerService{
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[uint]cron.EntryID),
	}

	if err := GlobalScheduler.loadScheduledTasks(); err != nil {
		return err
	}

	GlobalScheduler.cron.Start()
	log.Println("Scheduler service initialized")

	return nil
}

func (s *SchedulerService) loadScheduledTasks() error {
	var tasks []models.PostTask
	err := database.DB.Preload("Account").
		Where("cron_expression != '' AND status = ?", models.TaskStatusScheduled).
		Find(&tasks).Error
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := s.AddTaskSchedule(task); err != nil {
			log.Printf("Failed to add schedule for task %s: %v", task.TaskID, err)
		}
	}

	log.Printf("Loaded %d scheduled tasks", len(tasks))
	return nil
}

func (s *SchedulerService) AddTaskSchedule(task models.PostTask) error {
	if task.CronExpression == "" {
		return nil
	}

	s.RemoveTaskSchedule(task.ID)

	taskRowID := task.ID
	entryID, err := s.cron.AddFunc(task.CronExpression, func() {
		s.fireScheduledTask(taskRowID)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[task.ID] = entryID
	s.mu.Unlock()

	log.Printf("Added schedule for task %s (entry %d): %s", task.TaskID, entryID, task.CronExpression)
	return nil
}

func (s *SchedulerService) RemoveTaskSchedule(taskRowID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[taskRowID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, taskRowID)
	}
}

func (s *SchedulerService) fireScheduledTask(taskRowID uint) {
	var task models.PostTask
	err := database.DB.Preload("Account").
		Where("id = ? AND status = ?", taskRowID, models.TaskStatusScheduled).
		First(&task).Error
	if err != nil {
		log.Printf("Scheduled task %d no longer runnable: %v", taskRowID, err)
		s.RemoveTaskSchedule(taskRowID)
		return
	}

	// One shot: drop the schedule before running so a long task cannot
	// be fired twice.
	s.RemoveTaskSchedule(taskRowID)

	if GlobalRunner == nil {
		log.Printf("Task runner not available for scheduled task %s", task.TaskID)
		return
	}

	log.Printf("Executing scheduled task %s", task.TaskID)
	go GlobalRunner.Run(context.Background(), task)
}

func (s *SchedulerService) Stop() {
	s.cron.Stop()
	log.Println("Scheduler service stopped")
}
