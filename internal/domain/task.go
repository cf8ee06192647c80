package domain

import "time"

// SharedTask is visible to every participant. It is never edited after creation.
type SharedTask struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedBy   uint      `json:"createdBy" gorm:"not null;index"`
	Creator     *User     `json:"-" gorm:"foreignKey:CreatedBy;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

func (SharedTask) TableName() string { return "shared_tasks" }

// UserTaskProgress is one participant's state on one task. The composite key
// keeps exactly one row per (task, user) pair.
type UserTaskProgress struct {
	TaskID      uint        `json:"taskId" gorm:"primaryKey;autoIncrement:false"`
	UserID      uint        `json:"userId" gorm:"primaryKey;autoIncrement:false;index"`
	IsCompleted bool        `json:"isCompleted" gorm:"not null"`
	CompletedAt *time.Time  `json:"completedAt"`
	Notes       string      `json:"notes" gorm:"type:text"`
	Task        *SharedTask `json:"-" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	User        *User       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (UserTaskProgress) TableName() string { return "user_task_progress" }

// TaskView is a shared task annotated with the viewer's own progress and the
// completion counts across all participants.
type TaskView struct {
	ID             uint       `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	CreatedBy      uint       `json:"created_by"`
	CreatedByName  string     `json:"created_by_name"`
	CreatedAt      time.Time  `json:"created_at"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	Notes          string     `json:"notes"`
	TotalCompleted int        `json:"total_completed"`
	TotalAssigned  int        `json:"total_assigned"`
}

// FullyCompleted reports whether every assigned participant has completed the task.
func (v TaskView) FullyCompleted() bool {
	return v.TotalAssigned > 0 && v.TotalCompleted == v.TotalAssigned
}
