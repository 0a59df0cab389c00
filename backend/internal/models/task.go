package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ValidStatus reports whether s is one of the three task states.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ValidPriority reports whether p is one of the three priority levels.
func ValidPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// PriorityRank maps priorities to their severity rank for sorting.
// High outranks medium outranks low regardless of lexical order.
var PriorityRank = map[string]int{
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Status      string     `json:"status" gorm:"not null;default:'pending'"`
	Priority    string     `json:"priority" gorm:"not null;default:'medium'"`
	DueDate     *time.Time `json:"due_date,omitempty" gorm:"type:timestamp"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"type:timestamp"`
	SortOrder   int        `json:"order" gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Populated by queries that join through task_tags.
	Tags []Tag `json:"tags" gorm:"many2many:task_tags;"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// TaskTag links one task to one tag. Rows cascade away with either side.
type TaskTag struct {
	TaskID uuid.UUID `json:"task_id" gorm:"type:uuid;primaryKey"`
	TagID  uuid.UUID `json:"tag_id" gorm:"type:uuid;primaryKey"`
}

func (TaskTag) TableName() string { return "task_tags" }
