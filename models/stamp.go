package models

// Stamp is minted by the ledger and never changed afterwards.
type Stamp struct {
	Base
	UserID       string  `gorm:"type:uuid;not null;index" json:"user_id"`
	MissionLogID *string `gorm:"type:uuid;index" json:"mission_log_id,omitempty"`
	Value        int64   `gorm:"not null" json:"value"`

	User       *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	MissionLog *MissionLog `gorm:"foreignKey:MissionLogID;constraint:OnDelete:SET NULL" json:"-"`
}
