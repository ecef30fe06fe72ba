package coordinator

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"tokflow/internal/models"
)

// markerRowID pins the marker to a single row; there is at most one
// in-flight task per browser.
const markerRowID = 1

// DBMarkerStore persists the last-task marker in the database so it
// survives page navigations and process restarts. Implements
// agent.MarkerStore.
type DBMarkerStore struct {
	mu sync.Mutex
	db *gorm.DB
}

func NewDBMarkerStore(db *gorm.DB) *DBMarkerStore {
	return &DBMarkerStore{db: db}
}

func (s *DBMarkerStore) Last() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marker models.TaskMarker
	err := s.db.First(&marker, markerRowID).Error
	if err != nil || marker.TaskID == "" {
		return "", false
	}
	return marker.TaskID, true
}

func (s *DBMarkerStore) Set(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var marker models.TaskMarker
	err := s.db.First(&marker, markerRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.TaskMarker{ID: markerRowID, TaskID: taskID}).Error
	}
	if err != nil {
		return err
	}
	marker.TaskID = taskID
	return s.db.Save(&marker).Error
}

func (s *DBMarkerStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Model(&models.TaskMarker{}).Where("id = ?", markerRowID).Update("task_id", "").Error
}
