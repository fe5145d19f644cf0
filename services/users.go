// services/users.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vip-passport/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileInput carries the onboarding fields; nil leaves a field untouched.
type ProfileInput struct {
	StoreName    *string `json:"store_name"`
	ManagerName  *string `json:"manager_name"`
	Phone        *string `json:"phone"`
	City         *string `json:"city"`
	CustomerCode *string `json:"customer_code"`
}

// Dashboard is the home-screen summary for one user.
type Dashboard struct {
	User             *models.User   `json:"user"`
	TotalPoints      int64          `json:"total_points"`
	TotalStamps      int64          `json:"total_stamps"`
	StampValue       int64          `json:"stamp_value"`
	StampRecords     []models.Stamp `json:"stamp_records"`
	MissionsPending  int64          `json:"missions_pending"`
	MissionsApproved int64          `json:"missions_approved"`
	MissionsRejected int64          `json:"missions_rejected"`
}

type UserService struct {
	DB  *gorm.DB
	Log logrus.FieldLogger
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger) *UserService {
	return &UserService{DB: db, Log: log.WithField("component", "users")}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// FindOrCreateByTelegram returns the user for a Telegram account, creating it on first login.
// Concurrent first logins converge on one row through the unique telegram_id index.
func (s *UserService) FindOrCreateByTelegram(ctx context.Context, telegramID int64) (*models.User, error) {
	if telegramID == 0 {
		return nil, invalidInput("telegram id is required")
	}
	db := s.DB.WithContext(ctx)

	candidate := models.User{TelegramID: telegramID}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoNothing: true,
	}).Create(&candidate)
	if res.Error != nil {
		return nil, fmt.Errorf("create user: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.Log.WithFields(logrus.Fields{"user_id": candidate.ID, "telegram_id": telegramID}).Info("user registered")
	}

	var user models.User
	if err := db.First(&user, "telegram_id = ?", telegramID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// CompleteProfile applies the onboarding fields. vip_since is set once, on the first call.
func (s *UserService) CompleteProfile(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&user, "id = ?", id).Error; err != nil {
			return notFound(err, "user")
		}
		updates := map[string]any{}
		set := func(column string, v *string, dst **string) {
			if v == nil {
				return
			}
			trimmed := strings.TrimSpace(*v)
			updates[column] = trimmed
			*dst = &trimmed
		}
		set("store_name", in.StoreName, &user.StoreName)
		set("manager_name", in.ManagerName, &user.ManagerName)
		set("phone", in.Phone, &user.Phone)
		set("city", in.City, &user.City)
		set("customer_code", in.CustomerCode, &user.CustomerCode)

		if user.VIPSince == nil {
			now := time.Now().UTC()
			user.VIPSince = &now
			updates["vip_since"] = now
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Dashboard(ctx context.Context, id string) (*Dashboard, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	d := &Dashboard{User: user, TotalPoints: user.TotalPoints}

	if err := db.Where("user_id = ?", id).Order("created_at DESC").Find(&d.StampRecords).Error; err != nil {
		return nil, err
	}
	d.TotalStamps = int64(len(d.StampRecords))
	for _, st := range d.StampRecords {
		d.StampValue += st.Value
	}

	type statusCount struct {
		Status models.MissionStatus
		N      int64
	}
	var counts []statusCount
	if err := db.Model(&models.MissionLog{}).
		Select("status, COUNT(*) AS n").
		Where("user_id = ?", id).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch c.Status {
		case models.MissionStatusPending:
			d.MissionsPending = c.N
		case models.MissionStatusApproved:
			d.MissionsApproved = c.N
		case models.MissionStatusRejected:
			d.MissionsRejected = c.N
		}
	}
	return d, nil
}

// SearchUsers lists users for admins, optionally filtered by store, manager or phone.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	db := s.DB.WithContext(ctx).Model(&models.User{}).Order("created_at DESC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		term := "%" + strings.ToLower(query) + "%"
		db = db.Where(
			"LOWER(store_name) LIKE ? OR LOWER(manager_name) LIKE ? OR phone LIKE ?",
			term, term, term,
		)
	}
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

// Notifications returns the user's most recent audit entries, newest first.
func (s *UserService) Notifications(ctx context.Context, id string, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.NotificationLog
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", id).
		Order("sent_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
