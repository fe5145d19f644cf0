// services/matcher.go
package services

import (
	"fmt"
	"time"

	"vip-passport/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// findEligibleMission returns the running mission of the given type at now, or nil.
// When several are running the lowest code wins. The time window is checked with
// Mission.IsEligibleAt so every caller shares one definition.
func findEligibleMission(tx *gorm.DB, missionType models.MissionType, now time.Time) (*models.Mission, error) {
	var candidates []models.Mission
	err := tx.Where("type = ? AND is_active = ?", missionType, true).
		Order("code ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("find eligible %s mission: %w", missionType, err)
	}
	for i := range candidates {
		if candidates[i].IsEligibleAt(now) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect has it.
// SQLite already serializes writers for the whole database.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
