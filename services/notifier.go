// services/notifier.go
package services

import (
	"fmt"
	"time"

	"vip-passport/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification types written by the approval workflow, besides the
// <KIND>_APPROVED / <KIND>_REJECTED family.
const NotificationReferralCompleted = "REFERRAL_COMPLETED"

// NotificationRecorder appends audit rows. Delivery is someone else's job.
type NotificationRecorder struct{}

func NewNotificationRecorder() *NotificationRecorder {
	return &NotificationRecorder{}
}

func (r *NotificationRecorder) Record(tx *gorm.DB, userID, notificationType string, payload map[string]any) (*models.NotificationLog, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	entry := &models.NotificationLog{
		UserID:  userID,
		Type:    notificationType,
		Payload: datatypes.JSONMap(payload),
		SentAt:  time.Now().UTC(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record notification %s: %w", notificationType, err)
	}
	return entry, nil
}

// notificationPayload identifies the decided resource and, when known, its mission.
func notificationPayload(resourceID string, mission *models.Mission) map[string]any {
	payload := map[string]any{
		"resource_id":  resourceID,
		"mission_id":   nil,
		"mission_code": nil,
		"mission_type": nil,
	}
	if mission != nil {
		payload["mission_id"] = mission.ID
		payload["mission_code"] = mission.Code
		payload["mission_type"] = string(mission.Type)
	}
	return payload
}
