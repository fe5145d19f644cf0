// services/approval.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vip-passport/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Decision is the outcome of an approve/reject call. Mission and Log are nil when the
// submission was never matched.
type Decision struct {
	Submission models.Submission  `json:"submission,omitempty"`
	Mission    *models.Mission    `json:"mission,omitempty"`
	Log        *models.MissionLog `json:"mission_log,omitempty"`
	Stamp      *models.Stamp      `json:"stamp,omitempty"`
}

type ApprovalService struct {
	DB       *gorm.DB
	Ledger   *RewardLedger
	Notifier *NotificationRecorder
	Log      logrus.FieldLogger
	Metrics  *Metrics
	Now      func() time.Time
}

func NewApprovalService(db *gorm.DB, ledger *RewardLedger, notifier *NotificationRecorder, log logrus.FieldLogger, metrics *Metrics) *ApprovalService {
	return &ApprovalService{
		DB:       db,
		Ledger:   ledger,
		Notifier: notifier,
		Log:      log.WithField("component", "approval"),
		Metrics:  metrics,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Approve moves a pending submission and its log to APPROVED and credits the mission reward.
func (s *ApprovalService) Approve(ctx context.Context, kind models.SubmissionKind, id string) (*Decision, error) {
	return s.decide(ctx, kind, id, models.MissionStatusApproved, nil)
}

// Reject moves a pending submission and its log to REJECTED. note, if given, lands on the log.
func (s *ApprovalService) Reject(ctx context.Context, kind models.SubmissionKind, id string, note *string) (*Decision, error) {
	return s.decide(ctx, kind, id, models.MissionStatusRejected, note)
}

func (s *ApprovalService) decide(ctx context.Context, kind models.SubmissionKind, id string, target models.MissionStatus, note *string) (*Decision, error) {
	sub, ok := models.NewSubmission(kind)
	if !ok {
		return nil, invalidInput("unknown submission kind %q", kind)
	}
	decision := &Decision{Submission: sub}
	name := strings.ToLower(string(kind))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(sub, "id = ?", id).Error; err != nil {
			return notFound(err, name)
		}
		state := sub.State()
		next, err := state.Status.TransitionTo(target)
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, id, ErrInvalidState)
		}

		mission, entry, err := resolveMission(tx, state)
		if err != nil {
			return err
		}
		if entry != nil && entry.Status.IsTerminal() {
			return fmt.Errorf("mission log %s is %s: %w", entry.ID, entry.Status, ErrInvalidState)
		}
		decision.Mission, decision.Log = mission, entry

		if err := tx.Model(sub).Update("status", next).Error; err != nil {
			return fmt.Errorf("update %s status: %w", name, err)
		}
		state.Status = next

		if entry != nil {
			if err := setLogStatus(tx, entry, next, note); err != nil {
				return err
			}
		}

		event := kind.RejectedEvent()
		if next == models.MissionStatusApproved {
			event = kind.ApprovedEvent()
			if mission != nil {
				stamp, err := s.credit(tx, sub.OwnerID(), mission, logID(entry))
				if err != nil {
					return err
				}
				decision.Stamp = stamp
			}
		}

		_, err = s.Notifier.Record(tx, sub.OwnerID(), event, notificationPayload(sub.GetID(), mission))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observe(string(kind), target, decision)
	return decision, nil
}

// CompleteReferral confirms the referred store's first purchase. It approves the referral's
// log (creating one if a mission is linked without a log) and credits the referrer once.
func (s *ApprovalService) CompleteReferral(ctx context.Context, id string) (*Decision, error) {
	referral := &models.Referral{}
	decision := &Decision{Submission: referral}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(referral, "id = ?", id).Error; err != nil {
			return notFound(err, "referral")
		}
		if referral.FirstPurchaseCompleted {
			return fmt.Errorf("referral %s already completed: %w", id, ErrInvalidState)
		}
		next, err := referral.Status.TransitionTo(models.MissionStatusApproved)
		if err != nil {
			return fmt.Errorf("referral %s: %w", id, ErrInvalidState)
		}

		mission, entry, err := resolveMission(tx, &referral.SubmissionState)
		if err != nil {
			return err
		}
		if entry != nil && entry.Status.IsTerminal() {
			return fmt.Errorf("mission log %s is %s: %w", entry.ID, entry.Status, ErrInvalidState)
		}

		switch {
		case entry != nil:
			if err := setLogStatus(tx, entry, next, nil); err != nil {
				return err
			}
		case mission != nil:
			entry = &models.MissionLog{
				MissionID: mission.ID,
				UserID:    referral.ReferrerUserID,
				Status:    models.MissionStatusApproved,
				Payload:   datatypes.JSONMap(referral.LogPayload()),
			}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("create referral mission log: %w", err)
			}
			referral.Link(mission.ID, entry.ID)
		}
		decision.Mission, decision.Log = mission, entry

		referral.FirstPurchaseCompleted = true
		referral.Status = next
		if err := tx.Model(referral).Updates(map[string]any{
			"first_purchase_completed": true,
			"status":                   next,
			"mission_id":               referral.MissionID,
			"mission_log_id":           referral.MissionLogID,
		}).Error; err != nil {
			return fmt.Errorf("update referral: %w", err)
		}

		if mission != nil {
			stamp, err := s.credit(tx, referral.ReferrerUserID, mission, logID(entry))
			if err != nil {
				return err
			}
			decision.Stamp = stamp
		}

		_, err = s.Notifier.Record(tx, referral.ReferrerUserID, NotificationReferralCompleted,
			notificationPayload(referral.ID, mission))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observe(string(models.KindReferral), models.MissionStatusApproved, decision)
	return decision, nil
}

// StartMission opens a PENDING log for a directly-started mission. A user gets one log
// per mission, whatever its outcome.
func (s *ApprovalService) StartMission(ctx context.Context, userID, missionID string) (*models.MissionLog, error) {
	now := s.Now()
	var entry *models.MissionLog

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes concurrent starts by the same user.
		var user models.User
		if err := lockForUpdate(tx).Select("id").First(&user, "id = ?", userID).Error; err != nil {
			return notFound(err, "user")
		}

		var mission models.Mission
		if err := tx.First(&mission, "id = ?", missionID).Error; err != nil {
			return notFound(err, "mission")
		}
		if !mission.IsEligibleAt(now) {
			return fmt.Errorf("mission %s is not available: %w", mission.Code, ErrInvalidState)
		}

		var existing int64
		if err := tx.Model(&models.MissionLog{}).
			Where("mission_id = ? AND user_id = ?", missionID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("mission %s already started: %w", mission.Code, ErrInvalidState)
		}

		entry = &models.MissionLog{
			MissionID: mission.ID,
			UserID:    userID,
			Status:    models.MissionStatusPending,
			Payload:   datatypes.JSONMap{},
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"user_id": userID, "mission_id": missionID, "mission_log_id": entry.ID}).
		Info("mission started")
	return entry, nil
}

func (s *ApprovalService) ApproveMissionLog(ctx context.Context, missionID, logID string) (*Decision, error) {
	return s.decideLog(ctx, missionID, logID, models.MissionStatusApproved, nil)
}

func (s *ApprovalService) RejectMissionLog(ctx context.Context, missionID, logID string, note *string) (*Decision, error) {
	return s.decideLog(ctx, missionID, logID, models.MissionStatusRejected, note)
}

func (s *ApprovalService) decideLog(ctx context.Context, missionID, id string, target models.MissionStatus, note *string) (*Decision, error) {
	decision := &Decision{}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &models.MissionLog{}
		if err := lockForUpdate(tx).
			First(entry, "id = ? AND mission_id = ?", id, missionID).Error; err != nil {
			return notFound(err, "mission log")
		}
		next, err := entry.Status.TransitionTo(target)
		if err != nil {
			return fmt.Errorf("mission log %s: %w", id, ErrInvalidState)
		}

		mission := &models.Mission{}
		if err := tx.First(mission, "id = ?", missionID).Error; err != nil {
			return notFound(err, "mission")
		}
		decision.Mission, decision.Log = mission, entry

		if err := setLogStatus(tx, entry, next, note); err != nil {
			return err
		}

		event := models.KindMission.RejectedEvent()
		if next == models.MissionStatusApproved {
			event = models.KindMission.ApprovedEvent()
			stamp, err := s.credit(tx, entry.UserID, mission, &entry.ID)
			if err != nil {
				return err
			}
			decision.Stamp = stamp
		}

		_, err = s.Notifier.Record(tx, entry.UserID, event, notificationPayload(entry.ID, mission))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observe(string(models.KindMission), target, decision)
	return decision, nil
}

// credit applies the mission reward: points always, a stamp only for a positive stamp reward.
func (s *ApprovalService) credit(tx *gorm.DB, userID string, mission *models.Mission, missionLogID *string) (*models.Stamp, error) {
	if err := s.Ledger.CreditPoints(tx, userID, mission.RewardPoints); err != nil {
		return nil, err
	}
	return s.Ledger.MintStamps(tx, userID, mission.RewardStamps, missionLogID)
}

func (s *ApprovalService) observe(kind string, status models.MissionStatus, d *Decision) {
	s.Metrics.observeDecision(kind, string(status))
	fields := logrus.Fields{"kind": kind, "status": status}
	if d.Submission != nil {
		fields["submission_id"] = d.Submission.GetID()
	}
	if d.Log != nil {
		fields["mission_log_id"] = d.Log.ID
	}
	if d.Mission != nil {
		fields["mission_code"] = d.Mission.Code
		if status == models.MissionStatusApproved {
			s.Metrics.addPoints(d.Mission.RewardPoints)
			s.Metrics.addStamps(d.Mission.RewardStamps)
		}
	}
	s.Log.WithFields(fields).Info("decision recorded")
}

// resolveMission finds the log through mission_log_id first, falling back to mission_id.
// The log row is locked with the submission.
func resolveMission(tx *gorm.DB, state *models.SubmissionState) (*models.Mission, *models.MissionLog, error) {
	var entry *models.MissionLog
	missionID := state.MissionID

	if state.MissionLogID != nil {
		found := &models.MissionLog{}
		err := lockForUpdate(tx).First(found, "id = ?", *state.MissionLogID).Error
		switch {
		case err == nil:
			entry = found
			missionID = &found.MissionID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil, fmt.Errorf("load mission log: %w", err)
		}
	}
	if missionID == nil {
		return nil, entry, nil
	}

	mission := &models.Mission{}
	if err := tx.First(mission, "id = ?", *missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entry, nil
		}
		return nil, nil, fmt.Errorf("load mission: %w", err)
	}
	return mission, entry, nil
}

func setLogStatus(tx *gorm.DB, entry *models.MissionLog, status models.MissionStatus, note *string) error {
	updates := map[string]any{"status": status}
	if note != nil && status == models.MissionStatusRejected {
		updates["admin_note"] = *note
		entry.AdminNote = note
	}
	if err := tx.Model(entry).Updates(updates).Error; err != nil {
		return fmt.Errorf("update mission log %s: %w", entry.ID, err)
	}
	entry.Status = status
	return nil
}

func logID(entry *models.MissionLog) *string {
	if entry == nil {
		return nil
	}
	return &entry.ID
}
