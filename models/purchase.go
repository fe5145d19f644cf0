package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Purchase is an invoice submitted as evidence for a PURCHASE mission.
type Purchase struct {
	Base
	UserID          string                      `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount          decimal.Decimal             `gorm:"type:numeric(18,2);not null" json:"amount"`
	PurchaseDate    time.Time                   `gorm:"type:date;not null" json:"purchase_date"`
	InvoiceImageURL string                      `gorm:"not null" json:"invoice_image_url"`
	Description     *string                     `json:"description,omitempty"`
	Brands          datatypes.JSONSlice[string] `json:"brands,omitempty"`
	InvoiceNumber   *string                     `json:"invoice_number,omitempty"`
	ProductCategory *string                     `json:"product_category,omitempty"`
	Barcode         *string                     `json:"barcode,omitempty"`
	SubmissionState

	User       *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Mission    *Mission    `gorm:"foreignKey:MissionID;constraint:OnDelete:SET NULL" json:"-"`
	MissionLog *MissionLog `gorm:"foreignKey:MissionLogID;constraint:OnDelete:SET NULL" json:"-"`
}

func (p *Purchase) Kind() SubmissionKind { return KindPurchase }
func (p *Purchase) GetID() string        { return p.ID }
func (p *Purchase) OwnerID() string      { return p.UserID }

func (p *Purchase) LogPayload() map[string]any {
	amount, _ := p.Amount.Float64()
	brands := []string(p.Brands)
	return map[string]any{
		"amount":           amount,
		"invoice_number":   p.InvoiceNumber,
		"brands":           brands,
		"product_category": p.ProductCategory,
		"barcode":          p.Barcode,
	}
}
