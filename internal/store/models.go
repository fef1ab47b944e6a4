package store

import (
	"time"
)

// Memory is a free-form fact keyed by a label extracted from the user's
// utterance ("favorite color"). Writing an existing key overwrites the
// value and timestamp. Memories are never auto-expired.
type Memory struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a single to-do item. IDs are assigned by the store and are
// monotonically increasing even across deletions; they are never reused.
// CompletedAt is set if and only if Status is completed.
type Task struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Description string     `json:"description"`
	Status      TaskStatus `gorm:"index" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Counter backs store-assigned sequences. The task id counter is bumped in
// the same transaction that inserts the task, which is what keeps ids
// monotonic across deletes.
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value uint64
}

// TaskFilter selects which tasks ListTasks returns.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterPending   TaskFilter = "pending"
	FilterCompleted TaskFilter = "completed"
)
