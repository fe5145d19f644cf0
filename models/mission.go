package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// MissionType tells the matcher which submissions a mission rewards.
type MissionType string

const (
	MissionTypePurchase    MissionType = "PURCHASE"
	MissionTypeDisplay     MissionType = "DISPLAY"
	MissionTypeReferral    MissionType = "REFERRAL"
	MissionTypeLaunch      MissionType = "LAUNCH"
	MissionTypeProductTest MissionType = "PRODUCT_TEST"
)

// Valid reports whether t is one of the known mission types.
func (t MissionType) Valid() bool {
	switch t {
	case MissionTypePurchase, MissionTypeDisplay, MissionTypeReferral, MissionTypeLaunch, MissionTypeProductTest:
		return true
	}
	return false
}

// MissionStatus is shared by mission logs and all submission kinds.
type MissionStatus string

const (
	MissionStatusPending  MissionStatus = "PENDING"
	MissionStatusApproved MissionStatus = "APPROVED"
	MissionStatusRejected MissionStatus = "REJECTED"
)

// ErrTerminalStatus is returned when something tries to move a decided record.
var ErrTerminalStatus = errors.New("status is terminal")

// IsTerminal reports whether no further transition is allowed.
func (s MissionStatus) IsTerminal() bool {
	return s == MissionStatusApproved || s == MissionStatusRejected
}

// TransitionTo validates PENDING -> APPROVED | REJECTED and returns the new status.
func (s MissionStatus) TransitionTo(next MissionStatus) (MissionStatus, error) {
	if s.IsTerminal() {
		return s, fmt.Errorf("%w: %s -> %s", ErrTerminalStatus, s, next)
	}
	if !next.IsTerminal() {
		return s, fmt.Errorf("invalid transition %s -> %s", s, next)
	}
	return next, nil
}

// Mission is an admin-defined reward campaign.
type Mission struct {
	Base
	Code         string      `gorm:"uniqueIndex;not null" json:"code"`
	Title        string      `gorm:"not null" json:"title"`
	Description  string      `gorm:"type:text;not null" json:"description"`
	Type         MissionType `gorm:"type:varchar(32);not null;index" json:"type"`
	IsActive     bool        `gorm:"not null" json:"is_active"`
	StartAt      *time.Time  `json:"start_at,omitempty"`
	EndAt        *time.Time  `json:"end_at,omitempty"`
	RewardPoints int64       `gorm:"not null;default:0" json:"reward_points"`
	RewardStamps int64       `gorm:"not null;default:0" json:"reward_stamps"`
}

// IsEligibleAt is the single definition of "currently running".
func (m *Mission) IsEligibleAt(t time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.StartAt != nil && m.StartAt.After(t) {
		return false
	}
	if m.EndAt != nil && m.EndAt.Before(t) {
		return false
	}
	return true
}

// MissionLog is one user's attempt at one mission.
type MissionLog struct {
	Base
	MissionID string            `gorm:"type:uuid;not null;index" json:"mission_id"`
	UserID    string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Status    MissionStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	Payload   datatypes.JSONMap `gorm:"not null" json:"payload"`
	AdminNote *string           `gorm:"type:text" json:"admin_note,omitempty"`

	Mission *Mission `gorm:"foreignKey:MissionID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
