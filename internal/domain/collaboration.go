package domain

import "github.com/shopspring/decimal"

type CollabStatus string

const (
	CollabDraft      CollabStatus = "draft"
	CollabOpen       CollabStatus = "open_for_applications"
	CollabInProgress CollabStatus = "in_progress"
	CollabReview     CollabStatus = "review"
	CollabCompleted  CollabStatus = "completed"
	CollabCancelled  CollabStatus = "cancelled"
	CollabDisputed   CollabStatus = "disputed"
	CollabOnHold     CollabStatus = "on_hold"
)

// Terminal reports whether a project can no longer change status.
func (s CollabStatus) Terminal() bool {
	return s == CollabCompleted || s == CollabCancelled
}

func ValidCollabStatus(s CollabStatus) bool {
	switch s {
	case CollabDraft, CollabOpen, CollabInProgress, CollabReview,
		CollabCompleted, CollabCancelled, CollabDisputed, CollabOnHold:
		return true
	}
	return false
}

type ParticipantStatus string

const (
	ParticipantInvited   ParticipantStatus = "invited"
	ParticipantAccepted  ParticipantStatus = "accepted"
	ParticipantDeclined  ParticipantStatus = "declined"
	ParticipantCompleted ParticipantStatus = "completed"
	ParticipantCancelled ParticipantStatus = "cancelled"
)

type Participant struct {
	ID             string            `db:"id"`
	CollabID       string            `db:"collaboration_id"`
	CollaboratorID string            `db:"collaborator_id"`
	Role           string            `db:"role"`
	Status         ParticipantStatus `db:"status"`
	InvitedAt      string            `db:"invited_at"`
	RespondedAt    string            `db:"responded_at"`
	JoinedAt       string            `db:"joined_at"`
	Contribution   string            `db:"contribution"`
	AgreedRate     decimal.Decimal   `db:"agreed_rate"`
	RateType       string            `db:"rate_type"`
}

// SkillNeed is a declared talent role, fillable by exactly one accepted
// participant.
type SkillNeed struct {
	ID              string `db:"id"`
	CollabID        string `db:"collaboration_id"`
	Skill           string `db:"skill"`
	ExperienceLevel string `db:"experience_level"`
	Description     string `db:"description"`
	IsFilled        bool   `db:"is_filled"`
	FilledBy        string `db:"filled_by"`
}

type Milestone struct {
	ID          string `db:"id"`
	CollabID    string `db:"collaboration_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	DueDate     string `db:"due_date"`
	Status      string `db:"status"`
}

// Transfer is one entry of a project's payment sub-ledger.
type Transfer struct {
	ID               string          `db:"id"`
	CollabID         string          `db:"collaboration_id"`
	ToCollaboratorID string          `db:"to_collaborator"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	Status           string          `db:"status"`
	TransactionID    string          `db:"transaction_id"`
	CommissionAmount decimal.Decimal `db:"commission_amount"`
	PaidAt           string          `db:"paid_at"`
	CreatedAt        string          `db:"created_at"`
}

type Budget struct {
	Total             decimal.Decimal
	Currency          string
	CommissionPercent decimal.Decimal
	CommissionAmount  decimal.Decimal
}

// RecalcCommission keeps amount == total * percentage / 100.
func (b *Budget) RecalcCommission() {
	b.CommissionAmount = b.Total.Mul(b.CommissionPercent).Div(decimal.NewFromInt(100))
}

type Collaboration struct {
	ID           string
	Title        string
	Description  string
	ProjectType  string
	Genre        string
	InitiatorID  string
	Participants []Participant
	SkillsNeeded []SkillNeed
	StartDate    string
	EndDate      string
	Milestones   []Milestone
	Budget       Budget
	Status       CollabStatus
	CollabType   string
	Views        int
	Applications int
	Payments     []Transfer
	Version      int
	CreatedAt    string
	UpdatedAt    string
}

// IsFullyStaffed is true iff every skill entry is filled.
func (c *Collaboration) IsFullyStaffed() bool {
	for i := range c.SkillsNeeded {
		if !c.SkillsNeeded[i].IsFilled {
			return false
		}
	}
	return true
}

// HasParticipant reports whether the collaborator already appears in the
// participant list, regardless of status.
func (c *Collaboration) HasParticipant(collaboratorID string) bool {
	for i := range c.Participants {
		if c.Participants[i].CollaboratorID == collaboratorID {
			return true
		}
	}
	return false
}

// OpenSkill returns the first unfilled skill entry matching role, or nil.
func (c *Collaboration) OpenSkill(role string) *SkillNeed {
	for i := range c.SkillsNeeded {
		if c.SkillsNeeded[i].Skill == role && !c.SkillsNeeded[i].IsFilled {
			return &c.SkillsNeeded[i]
		}
	}
	return nil
}
