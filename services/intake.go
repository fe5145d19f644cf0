// services/intake.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"vip-passport/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PurchaseInput struct {
	Amount          decimal.Decimal `json:"amount"`
	PurchaseDate    string          `json:"purchase_date"`
	InvoiceImageURL string          `json:"invoice_image_url"`
	Description     *string         `json:"description"`
	Brands          []string        `json:"brands"`
	InvoiceNumber   *string         `json:"invoice_number"`
	ProductCategory *string         `json:"product_category"`
	Barcode         *string         `json:"barcode"`
}

type DisplayInput struct {
	Brand           string  `json:"brand"`
	LocationDesc    string  `json:"location_desc"`
	DisplayImageURL string  `json:"display_image_url"`
	Notes           *string `json:"notes"`
}

type ReferralInput struct {
	StoreName   string  `json:"store_name"`
	ManagerName string  `json:"manager_name"`
	Phone       string  `json:"phone"`
	City        string  `json:"city"`
	Notes       *string `json:"notes"`
}

// IntakeResult is what a submission endpoint returns. MissionLogID is nil when no
// mission was running for the submission's type.
type IntakeResult struct {
	Submission   models.Submission `json:"submission"`
	MissionID    *string           `json:"mission_id"`
	MissionLogID *string           `json:"mission_log_id"`
}

type IntakeService struct {
	DB      *gorm.DB
	Log     logrus.FieldLogger
	Metrics *Metrics
	Now     func() time.Time
}

func NewIntakeService(db *gorm.DB, log logrus.FieldLogger, metrics *Metrics) *IntakeService {
	return &IntakeService{
		DB:      db,
		Log:     log.WithField("component", "intake"),
		Metrics: metrics,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *IntakeService) SubmitPurchase(ctx context.Context, userID string, in PurchaseInput) (*IntakeResult, error) {
	if !in.Amount.IsPositive() {
		return nil, invalidInput("amount must be positive")
	}
	purchaseDate, err := parseDate(in.PurchaseDate)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.InvoiceImageURL) == "" {
		return nil, invalidInput("invoice_image_url is required")
	}
	purchase := &models.Purchase{
		UserID:          userID,
		Amount:          in.Amount.Round(2),
		PurchaseDate:    purchaseDate,
		InvoiceImageURL: strings.TrimSpace(in.InvoiceImageURL),
		Description:     in.Description,
		InvoiceNumber:   in.InvoiceNumber,
		ProductCategory: in.ProductCategory,
		Barcode:         in.Barcode,
	}
	if len(in.Brands) > 0 {
		purchase.Brands = datatypes.JSONSlice[string](in.Brands)
	}
	return s.submit(ctx, purchase)
}

func (s *IntakeService) SubmitDisplay(ctx context.Context, userID string, in DisplayInput) (*IntakeResult, error) {
	if err := required(map[string]string{
		"brand":             in.Brand,
		"location_desc":     in.LocationDesc,
		"display_image_url": in.DisplayImageURL,
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, &models.Display{
		UserID:          userID,
		Brand:           strings.TrimSpace(in.Brand),
		LocationDesc:    strings.TrimSpace(in.LocationDesc),
		DisplayImageURL: strings.TrimSpace(in.DisplayImageURL),
		Notes:           in.Notes,
	})
}

// SubmitReferral stores the referral and opens a log if a REFERRAL mission is running.
// Nothing is credited here; see ApprovalService.CompleteReferral.
func (s *IntakeService) SubmitReferral(ctx context.Context, userID string, in ReferralInput) (*IntakeResult, error) {
	if err := required(map[string]string{
		"store_name":   in.StoreName,
		"manager_name": in.ManagerName,
		"phone":        in.Phone,
		"city":         in.City,
	}); err != nil {
		return nil, err
	}
	return s.submit(ctx, &models.Referral{
		ReferrerUserID: userID,
		StoreName:      strings.TrimSpace(in.StoreName),
		ManagerName:    strings.TrimSpace(in.ManagerName),
		Phone:          strings.TrimSpace(in.Phone),
		City:           strings.TrimSpace(in.City),
		Notes:          in.Notes,
	})
}

// submit persists the submission, matches it and links the new log in one transaction.
func (s *IntakeService) submit(ctx context.Context, sub models.Submission) (*IntakeResult, error) {
	now := s.Now()
	result := &IntakeResult{Submission: sub}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.State().Status = models.MissionStatusPending
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("create %s: %w", strings.ToLower(string(sub.Kind())), err)
		}

		mission, err := findEligibleMission(tx, sub.Kind().MissionType(), now)
		if err != nil || mission == nil {
			return err
		}

		entry := &models.MissionLog{
			MissionID: mission.ID,
			UserID:    sub.OwnerID(),
			Status:    models.MissionStatusPending,
			Payload:   datatypes.JSONMap(sub.LogPayload()),
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("create mission log: %w", err)
		}

		sub.State().Link(mission.ID, entry.ID)
		if err := tx.Model(sub).Updates(map[string]any{
			"mission_id":     mission.ID,
			"mission_log_id": entry.ID,
		}).Error; err != nil {
			return fmt.Errorf("link %s to mission: %w", strings.ToLower(string(sub.Kind())), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	state := sub.State()
	result.MissionID = state.MissionID
	result.MissionLogID = state.MissionLogID
	s.Metrics.observeSubmission(string(sub.Kind()), state.MissionLogID != nil)
	s.Log.WithFields(logrus.Fields{
		"kind":           sub.Kind(),
		"submission_id":  sub.GetID(),
		"user_id":        sub.OwnerID(),
		"mission_log_id": derefString(state.MissionLogID),
	}).Info("submission received")
	return result, nil
}

// GetSubmission loads one submission for its owner or an admin.
func (s *IntakeService) GetSubmission(ctx context.Context, kind models.SubmissionKind, id string, viewer *models.User) (models.Submission, error) {
	sub, ok := models.NewSubmission(kind)
	if !ok {
		return nil, invalidInput("unknown submission kind %q", kind)
	}
	if err := s.DB.WithContext(ctx).First(sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err, strings.ToLower(string(kind)))
	}
	if viewer != nil && !viewer.IsAdmin && viewer.ID != sub.OwnerID() {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(string(kind)), id, ErrForbidden)
	}
	return sub, nil
}

// SubmissionFilter narrows admin listings. Zero values mean "any".
type SubmissionFilter struct {
	Status models.MissionStatus
	UserID string
	Limit  int
	Offset int
}

func (s *IntakeService) ListPurchases(ctx context.Context, f SubmissionFilter) ([]models.Purchase, error) {
	return listSubmissions[models.Purchase](s.DB.WithContext(ctx), "user_id", f)
}

func (s *IntakeService) ListDisplays(ctx context.Context, f SubmissionFilter) ([]models.Display, error) {
	return listSubmissions[models.Display](s.DB.WithContext(ctx), "user_id", f)
}

func (s *IntakeService) ListReferrals(ctx context.Context, f SubmissionFilter) ([]models.Referral, error) {
	return listSubmissions[models.Referral](s.DB.WithContext(ctx), "referrer_user_id", f)
}

func listSubmissions[T any](db *gorm.DB, ownerColumn string, f SubmissionFilter) ([]T, error) {
	q := db.Model(new(T)).Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != "" {
		q = q.Where(ownerColumn+" = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, invalidInput("purchase_date is required")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, invalidInput("purchase_date must be YYYY-MM-DD")
	}
	return t.UTC(), nil
}

func required(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return invalidInput("%s required", strings.Join(missing, ", "))
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
