package models

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// History action types. Field updates use ActionUpdatePrefix + field name so
// every user-visible change stays individually attributable in the audit log.
const (
	ActionCreate       = "create"
	ActionDelete       = "delete"
	ActionUpdateOrder  = "update_order"
	ActionUpdatePrefix = "update_"
)

// FieldChange is the typed payload behind an update history row. It is only
// serialized at the storage boundary; service code works with the struct.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
	Batch    bool   `json:"batch,omitempty"`
}

type TaskHistory struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID    uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	Action    string    `json:"action" gorm:"not null"`
	Detail    string    `json:"detail" gorm:"type:text"`
	Operator  string    `json:"operator"`
	CreatedAt time.Time `json:"created_at"`
}

func (TaskHistory) TableName() string { return "task_history" }

func (h *TaskHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		h.ID = id
	}
	return nil
}

// SetChange serializes a typed change payload into the detail column.
func (h *TaskHistory) SetChange(change FieldChange) error {
	raw, err := json.Marshal(change)
	if err != nil {
		return err
	}
	h.Detail = string(raw)
	return nil
}

// Change decodes the detail column back into its typed payload.
func (h *TaskHistory) Change() (FieldChange, error) {
	var change FieldChange
	if h.Detail == "" {
		return change, nil
	}
	err := json.Unmarshal([]byte(h.Detail), &change)
	return change, err
}
