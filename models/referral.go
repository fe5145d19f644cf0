package models

// Referral introduces a new store. Its reward is realized when the store's first purchase
// is confirmed, not on intake.
type Referral struct {
	Base
	ReferrerUserID         string  `gorm:"type:uuid;not null;index" json:"referrer_user_id"`
	StoreName              string  `gorm:"not null" json:"store_name"`
	ManagerName            string  `gorm:"not null" json:"manager_name"`
	Phone                  string  `gorm:"not null" json:"phone"`
	City                   string  `gorm:"not null" json:"city"`
	Notes                  *string `gorm:"type:text" json:"notes,omitempty"`
	FirstPurchaseCompleted bool    `gorm:"not null;default:false" json:"first_purchase_completed"`
	SubmissionState

	Referrer   *User       `gorm:"foreignKey:ReferrerUserID;constraint:OnDelete:CASCADE" json:"-"`
	Mission    *Mission    `gorm:"foreignKey:MissionID;constraint:OnDelete:SET NULL" json:"-"`
	MissionLog *MissionLog `gorm:"foreignKey:MissionLogID;constraint:OnDelete:SET NULL" json:"-"`
}

func (r *Referral) Kind() SubmissionKind { return KindReferral }
func (r *Referral) GetID() string        { return r.ID }
func (r *Referral) OwnerID() string      { return r.ReferrerUserID }

func (r *Referral) LogPayload() map[string]any {
	return map[string]any{"referral_id": r.ID}
}
