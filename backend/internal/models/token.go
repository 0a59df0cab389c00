package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// RefreshToken is one live refresh credential. A user may hold several at
// once (one per device); rotation deletes the old row and inserts a new one.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Token     string    `json:"token" gorm:"uniqueIndex;type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// BlacklistedToken is an access token revoked before its natural expiry.
// Rows are append-only; the sweeper deletes them once the token could no
// longer verify anyway.
type BlacklistedToken struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Token     string    `json:"token" gorm:"uniqueIndex;type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (BlacklistedToken) TableName() string { return "token_blacklist" }

func (t *BlacklistedToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}
