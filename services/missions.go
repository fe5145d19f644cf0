// services/missions.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vip-passport/models"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MissionInput creates a mission. Code is derived from Title when empty.
type MissionInput struct {
	Code         string             `json:"code"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Type         models.MissionType `json:"type"`
	RewardPoints int64              `json:"reward_points"`
	RewardStamps int64              `json:"reward_stamps"`
	StartAt      *time.Time         `json:"start_at"`
	EndAt        *time.Time         `json:"end_at"`
	IsActive     *bool              `json:"is_active"`
}

// MissionPatch updates only the fields that are set. A nil StartAt/EndAt keeps the current
// bound; ClearStartAt/ClearEndAt remove it and win over a value sent alongside.
type MissionPatch struct {
	Code         *string             `json:"code"`
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	Type         *models.MissionType `json:"type"`
	RewardPoints *int64              `json:"reward_points"`
	RewardStamps *int64              `json:"reward_stamps"`
	StartAt      *time.Time          `json:"start_at"`
	EndAt        *time.Time          `json:"end_at"`
	ClearStartAt bool                `json:"clear_start_at"`
	ClearEndAt   bool                `json:"clear_end_at"`
	IsActive     *bool               `json:"is_active"`
}

// MissionView is a running mission as one user sees it.
type MissionView struct {
	models.Mission
	UserStatus string `json:"user_status"`
}

// UserStatusNone is reported for missions the user has no log for.
const UserStatusNone = "NONE"

type MissionService struct {
	DB  *gorm.DB
	Log logrus.FieldLogger
	Now func() time.Time
}

func NewMissionService(db *gorm.DB, log logrus.FieldLogger) *MissionService {
	return &MissionService{
		DB:  db,
		Log: log.WithField("component", "missions"),
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// FindEligibleMission is the matcher entry point outside a transaction.
func (s *MissionService) FindEligibleMission(ctx context.Context, missionType models.MissionType, now time.Time) (*models.Mission, error) {
	return findEligibleMission(s.DB.WithContext(ctx), missionType, now)
}

func (s *MissionService) CreateMission(ctx context.Context, in MissionInput) (*models.Mission, error) {
	mission := &models.Mission{
		Code:         normalizeCode(in.Code, in.Title),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Type:         in.Type,
		IsActive:     true,
		StartAt:      utcPtr(in.StartAt),
		EndAt:        utcPtr(in.EndAt),
		RewardPoints: in.RewardPoints,
		RewardStamps: in.RewardStamps,
	}
	if in.IsActive != nil {
		mission.IsActive = *in.IsActive
	}
	if err := validateMission(mission); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	if err := ensureCodeFree(db, mission.Code, ""); err != nil {
		return nil, err
	}
	if err := db.Create(mission).Error; err != nil {
		return nil, fmt.Errorf("create mission: %w", err)
	}

	s.Log.WithFields(logrus.Fields{"mission_id": mission.ID, "code": mission.Code, "type": mission.Type}).
		Info("mission created")
	return mission, nil
}

func (s *MissionService) UpdateMission(ctx context.Context, id string, patch MissionPatch) (*models.Mission, error) {
	var mission models.Mission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&mission, "id = ?", id).Error; err != nil {
			return notFound(err, "mission")
		}
		if patch.Code != nil {
			mission.Code = normalizeCode(*patch.Code, mission.Title)
		}
		if patch.Title != nil {
			mission.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			mission.Description = *patch.Description
		}
		if patch.Type != nil {
			mission.Type = *patch.Type
		}
		if patch.RewardPoints != nil {
			mission.RewardPoints = *patch.RewardPoints
		}
		if patch.RewardStamps != nil {
			mission.RewardStamps = *patch.RewardStamps
		}
		if patch.StartAt != nil {
			mission.StartAt = utcPtr(patch.StartAt)
		}
		if patch.EndAt != nil {
			mission.EndAt = utcPtr(patch.EndAt)
		}
		if patch.ClearStartAt {
			mission.StartAt = nil
		}
		if patch.ClearEndAt {
			mission.EndAt = nil
		}
		if patch.IsActive != nil {
			mission.IsActive = *patch.IsActive
		}
		if err := validateMission(&mission); err != nil {
			return err
		}
		if err := ensureCodeFree(tx, mission.Code, mission.ID); err != nil {
			return err
		}
		return tx.Save(&mission).Error
	})
	if err != nil {
		return nil, err
	}
	return &mission, nil
}

// SetActive toggles a mission without touching anything else.
func (s *MissionService) SetActive(ctx context.Context, id string, active bool) (*models.Mission, error) {
	db := s.DB.WithContext(ctx)
	res := db.Model(&models.Mission{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("mission %s: %w", id, ErrNotFound)
	}
	s.Log.WithFields(logrus.Fields{"mission_id": id, "is_active": active}).Info("mission toggled")
	return s.GetMission(ctx, id)
}

func (s *MissionService) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	var mission models.Mission
	if err := s.DB.WithContext(ctx).First(&mission, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "mission")
	}
	return &mission, nil
}

// ListMissions returns every mission for the admin view, newest first.
func (s *MissionService) ListMissions(ctx context.Context) ([]models.Mission, error) {
	var missions []models.Mission
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&missions).Error
	return missions, err
}

// ListForUser returns the missions running now, each with the caller's log status.
func (s *MissionService) ListForUser(ctx context.Context, userID string) ([]MissionView, error) {
	now := s.Now()
	db := s.DB.WithContext(ctx)

	var active []models.Mission
	if err := db.Where("is_active = ?", true).Order("code ASC").Find(&active).Error; err != nil {
		return nil, err
	}

	var logs []models.MissionLog
	if err := db.Select("mission_id", "status", "created_at").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	// Latest log per mission wins.
	statusByMission := make(map[string]models.MissionStatus, len(logs))
	for _, l := range logs {
		statusByMission[l.MissionID] = l.Status
	}

	views := make([]MissionView, 0, len(active))
	for _, m := range active {
		if !m.IsEligibleAt(now) {
			continue
		}
		status := UserStatusNone
		if st, ok := statusByMission[m.ID]; ok {
			status = string(st)
		}
		views = append(views, MissionView{Mission: m, UserStatus: status})
	}
	return views, nil
}

// ListLogs returns mission logs for the admin review queue.
func (s *MissionService) ListLogs(ctx context.Context, missionID string, status models.MissionStatus) ([]models.MissionLog, error) {
	q := s.DB.WithContext(ctx).Where("mission_id = ?", missionID).Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var logs []models.MissionLog
	return logs, q.Find(&logs).Error
}

func validateMission(m *models.Mission) error {
	switch {
	case m.Code == "":
		return invalidInput("code or title is required")
	case m.Title == "":
		return invalidInput("title is required")
	case !m.Type.Valid():
		return invalidInput("unknown mission type %q", m.Type)
	case m.RewardPoints < 0 || m.RewardStamps < 0:
		return invalidInput("rewards must not be negative")
	case m.StartAt != nil && m.EndAt != nil && m.EndAt.Before(*m.StartAt):
		return invalidInput("end_at is before start_at")
	}
	return nil
}

func ensureCodeFree(db *gorm.DB, code, exceptID string) error {
	var existing models.Mission
	q := db.Select("id").Where("code = ?", code)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.First(&existing).Error
	if err == nil {
		return invalidInput("mission code %s already exists", code)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// normalizeCode upper-cases an explicit code, or builds one from the title: "Spring Display" -> SPRING_DISPLAY.
func normalizeCode(code, title string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		code = strings.ReplaceAll(slug.Make(title), "-", "_")
	}
	return strings.ToUpper(code)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
