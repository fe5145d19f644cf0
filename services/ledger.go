// services/ledger.go
package services

import (
	"fmt"

	"vip-passport/models"

	"gorm.io/gorm"
)

// RewardLedger is the only writer of users.total_points and of stamps.
// Both methods run inside the caller's transaction.
type RewardLedger struct{}

func NewRewardLedger() *RewardLedger {
	return &RewardLedger{}
}

// CreditPoints adds amount to the user's balance with a single UPDATE so concurrent credits
// never lose increments. A zero amount is a valid no-op credit.
func (l *RewardLedger) CreditPoints(tx *gorm.DB, userID string, amount int64) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("total_points", gorm.Expr("total_points + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("credit points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("credit points for user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// MintStamps creates one stamp worth amount. Nothing is minted for amount <= 0.
func (l *RewardLedger) MintStamps(tx *gorm.DB, userID string, amount int64, missionLogID *string) (*models.Stamp, error) {
	if amount <= 0 {
		return nil, nil
	}
	stamp := &models.Stamp{
		UserID:       userID,
		MissionLogID: missionLogID,
		Value:        amount,
	}
	if err := tx.Create(stamp).Error; err != nil {
		return nil, fmt.Errorf("mint stamp: %w", err)
	}
	return stamp, nil
}
