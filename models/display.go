package models

// Display is a photo of an in-store display submitted for a DISPLAY mission.
type Display struct {
	Base
	UserID          string  `gorm:"type:uuid;not null;index" json:"user_id"`
	Brand           string  `gorm:"not null" json:"brand"`
	LocationDesc    string  `gorm:"not null" json:"location_desc"`
	DisplayImageURL string  `gorm:"not null" json:"display_image_url"`
	Notes           *string `gorm:"type:text" json:"notes,omitempty"`
	SubmissionState

	User       *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Mission    *Mission    `gorm:"foreignKey:MissionID;constraint:OnDelete:SET NULL" json:"-"`
	MissionLog *MissionLog `gorm:"foreignKey:MissionLogID;constraint:OnDelete:SET NULL" json:"-"`
}

func (d *Display) Kind() SubmissionKind { return KindDisplay }
func (d *Display) GetID() string        { return d.ID }
func (d *Display) OwnerID() string      { return d.UserID }

func (d *Display) LogPayload() map[string]any {
	return map[string]any{
		"brand":             d.Brand,
		"location_desc":     d.LocationDesc,
		"display_image_url": d.DisplayImageURL,
	}
}
