package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationLog is the append-only audit trail a delivery service reads from.
type NotificationLog struct {
	Base
	UserID  string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type    string            `gorm:"type:varchar(64);not null;index" json:"type"`
	Payload datatypes.JSONMap `gorm:"not null" json:"payload"`
	SentAt  time.Time         `gorm:"not null" json:"sent_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
