package models

// SubmissionKind tags the three evidence variants plus directly-started missions.
type SubmissionKind string

const (
	KindPurchase SubmissionKind = "PURCHASE"
	KindDisplay  SubmissionKind = "DISPLAY"
	KindReferral SubmissionKind = "REFERRAL"
	KindMission  SubmissionKind = "MISSION"
)

// MissionType returns the mission type the matcher looks for on intake.
func (k SubmissionKind) MissionType() MissionType {
	switch k {
	case KindPurchase:
		return MissionTypePurchase
	case KindDisplay:
		return MissionTypeDisplay
	case KindReferral:
		return MissionTypeReferral
	}
	return ""
}

// ApprovedEvent / RejectedEvent are the notification tags for a decision.
func (k SubmissionKind) ApprovedEvent() string { return string(k) + "_APPROVED" }
func (k SubmissionKind) RejectedEvent() string { return string(k) + "_REJECTED" }

// SubmissionState is the decision + mission linkage every submission kind shares.
type SubmissionState struct {
	Status       MissionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	MissionID    *string       `gorm:"type:uuid;index" json:"mission_id,omitempty"`
	MissionLogID *string       `gorm:"type:uuid;index" json:"mission_log_id,omitempty"`
}

// State exposes the shared part so the approval workflow can be written once.
func (s *SubmissionState) State() *SubmissionState { return s }

// Link points the submission at a mission and its freshly opened log.
func (s *SubmissionState) Link(missionID, logID string) {
	s.MissionID = &missionID
	s.MissionLogID = &logID
}

// Submission is implemented by *Purchase, *Display and *Referral.
type Submission interface {
	Kind() SubmissionKind
	GetID() string
	OwnerID() string
	State() *SubmissionState
	// LogPayload is the evidence snapshot copied into a mission log.
	LogPayload() map[string]any
}

// NewSubmission returns an empty record of the given kind, ready to be loaded into.
func NewSubmission(kind SubmissionKind) (Submission, bool) {
	switch kind {
	case KindPurchase:
		return &Purchase{}, true
	case KindDisplay:
		return &Display{}, true
	case KindReferral:
		return &Referral{}, true
	}
	return nil, false
}
