package models

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type User struct {
	BaseModel
	Username string `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Password string `json:"-" gorm:"size:255;not null"`
	Status   int    `json:"status" gorm:"default:1"` // 1:active, 0:inactive
}

// Account is one TikTok account the system can post for. Cookies hold
// the exported session as a JSON array in the SET_COOKIES wire shape.
type Account struct {
	BaseModel
	Name        string    `json:"name" gorm:"size:100;not null"`
	UserID      uint      `json:"user_id" gorm:"not null"`
	User        User      `json:"user" gorm:"foreignKey:UserID"`
	Cookies     string    `json:"-" gorm:"type:longtext"`
	HasSession  bool      `json:"has_session" gorm:"default:false"`
	LastLoginAt time.Time `json:"last_login_at"`
	Status      int       `json:"status" gorm:"default:1"`
}

// Task statuses.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusPosted    = "posted"
	TaskStatusFailed    = "failed"
	TaskStatusScheduled = "scheduled"
)

// PostTask is one video-posting job. TaskID is the externally visible
// identifier carried through the protocol and the success webhook.
type PostTask struct {
	BaseModel
	TaskID          string    `json:"task_id" gorm:"uniqueIndex;size:64;not null"`
	AccountID       uint      `json:"account_id" gorm:"not null"`
	Account         Account   `json:"account" gorm:"foreignKey:AccountID"`
	UserID          uint      `json:"user_id" gorm:"not null"`
	User            User      `json:"user" gorm:"foreignKey:UserID"`
	VideoURL        string    `json:"video_url" gorm:"size:1000;not null"`
	Caption         string    `json:"caption" gorm:"size:4000"`
	ProductID       string    `json:"product_id" gorm:"size:100"`
	AIContent       bool      `json:"ai_content" gorm:"default:false"`
	CronExpression  string    `json:"cron_expression" gorm:"size:100"`
	Status          string    `json:"status" gorm:"size:20;default:pending"`
	DetectionMethod string    `json:"detection_method" gorm:"size:30"`
	PostedURL       string    `json:"posted_url" gorm:"size:1000"`
	ErrorMessage    string    `json:"error_message" gorm:"size:2000"`
	PostedAt        time.Time `json:"posted_at"`
}

// TaskMarker is the single-row persistence for the last dispatched
// task id. It survives page navigations so a redirect observed on
// attach can still be attributed.
type TaskMarker struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	TaskID    string    `json:"task_id" gorm:"size:64;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}
