package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
	"fefe/internal/repos"
)

type SkillNeedInput struct {
	Skill           string
	ExperienceLevel string
	Description     string
}

type MilestoneInput struct {
	Title       string
	Description string
	DueDate     string
}

type CreateProjectInput struct {
	Title       string
	Description string
	ProjectType string
	Genre       string
	StartDate   string
	EndDate     string
	Skills      []SkillNeedInput
	Milestones  []MilestoneInput
	BudgetTotal decimal.Decimal
	Currency    string
	// CommissionPercent negative means "use the platform default".
	CommissionPercent decimal.Decimal
	CollabType        string
	OpenImmediately   bool
}

type BudgetInput struct {
	Total             decimal.Decimal
	Currency          string
	CommissionPercent decimal.Decimal // negative keeps the current percentage
}

// CollabService manages the applicant pipeline for creative projects and
// keeps the commission and staffing invariants consistent.
type CollabService struct {
	Collabs       *repos.CollabRepo
	Collaborators *repos.CollaboratorRepo

	// DefaultCommission is the platform's cut, percent, applied when a
	// project does not name its own.
	DefaultCommission decimal.Decimal
}

func NewCollabService(collabs *repos.CollabRepo, collaborators *repos.CollaboratorRepo, defaultCommission int) *CollabService {
	return &CollabService{
		Collabs:           collabs,
		Collaborators:     collaborators,
		DefaultCommission: decimal.NewFromInt(int64(defaultCommission)),
	}
}

// profile resolves the collaborator profile a workflow actor must have.
func (s *CollabService) profile(userID string) (*domain.Collaborator, error) {
	c, err := s.Collaborators.ByUserID(userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProfileRequired
		}
		return nil, err
	}
	return c, nil
}

func (s *CollabService) CreateProject(ctx context.Context, userID string, in CreateProjectInput) (*domain.Collaboration, error) {
	initiator, err := s.profile(userID)
	if err != nil {
		return nil, err
	}
	if in.Title == "" || in.ProjectType == "" || in.Genre == "" {
		return nil, fmt.Errorf("%w: title, project type and genre are required", domain.ErrValidation)
	}
	if in.BudgetTotal.IsNegative() {
		return nil, fmt.Errorf("%w: budget cannot be negative", domain.ErrValidation)
	}

	pct := in.CommissionPercent
	if pct.IsNegative() {
		pct = s.DefaultCommission
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: commission percentage out of range", domain.ErrValidation)
	}

	status := domain.CollabDraft
	if in.OpenImmediately {
		status = domain.CollabOpen
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	collabType := in.CollabType
	if collabType == "" {
		collabType = "remote"
	}

	c := &domain.Collaboration{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		ProjectType: in.ProjectType,
		Genre:       in.Genre,
		InitiatorID: initiator.ID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Budget: domain.Budget{
			Total:             in.BudgetTotal,
			Currency:          currency,
			CommissionPercent: pct,
		},
		Status:     status,
		CollabType: collabType,
	}
	c.Budget.RecalcCommission()

	for _, sk := range in.Skills {
		c.SkillsNeeded = append(c.SkillsNeeded, domain.SkillNeed{
			ID: uuid.NewString(), CollabID: c.ID,
			Skill: sk.Skill, ExperienceLevel: sk.ExperienceLevel, Description: sk.Description,
		})
	}
	for _, m := range in.Milestones {
		c.Milestones = append(c.Milestones, domain.Milestone{
			ID: uuid.NewString(), CollabID: c.ID,
			Title: m.Title, Description: m.Description, DueDate: m.DueDate,
		})
	}

	if err := s.Collabs.Create(c); err != nil {
		return nil, err
	}
	if err := s.Collaborators.AdjustCounters(initiator.ID, 0, +1); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply adds the collaborator to the applicant pipeline for an open role.
// Idempotent per collaborator: a second application conflicts.
func (s *CollabService) Apply(ctx context.Context, projectID, userID, role string, proposedRate decimal.Decimal, coverMessage string) (*domain.Collaboration, error) {
	applicant, err := s.profile(userID)
	if err != nil {
		return nil, err
	}

	c, err := s.Collabs.Get(projectID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CollabOpen {
		return nil, fmt.Errorf("%w: project is not accepting applications", domain.ErrRoleUnavailable)
	}
	if c.HasParticipant(applicant.ID) {
		return nil, domain.ErrAlreadyApplied
	}
	if c.OpenSkill(role) == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoleUnavailable, role)
	}

	p := &domain.Participant{
		ID:             uuid.NewString(),
		CollabID:       c.ID,
		CollaboratorID: applicant.ID,
		Role:           role,
		Status:         domain.ParticipantInvited,
		Contribution:   coverMessage,
		AgreedRate:     proposedRate,
		RateType:       "project",
	}
	if err := s.Collabs.AddParticipant(p); err != nil {
		return nil, err
	}
	if err := s.Collabs.IncrementApplications(c.ID); err != nil {
		return nil, err
	}
	return s.Collabs.Get(projectID)
}

// Decide accepts or declines an application. Only the initiator may decide.
// Accepting fills the matching skill entry; the project flips to in_progress
// exactly when the last open skill fills.
func (s *CollabService) Decide(ctx context.Context, projectID, participantID, userID string, accept bool) (*domain.Collaboration, error) {
	actor, err := s.profile(userID)
	if err != nil {
		return nil, err
	}
	c, err := s.Collabs.Get(projectID)
	if err != nil {
		return nil, err
	}
	if c.InitiatorID != actor.ID {
		return nil, fmt.Errorf("%w: only the project initiator can manage applications", domain.ErrForbidden)
	}

	var p *domain.Participant
	for i := range c.Participants {
		if c.Participants[i].ID == participantID {
			p = &c.Participants[i]
			break
		}
	}
	if p == nil {
		return nil, fmt.Errorf("participant: %w", domain.ErrNotFound)
	}
	if p.Status != domain.ParticipantInvited {
		return nil, fmt.Errorf("%w: application already decided", domain.ErrInvalidTransition)
	}

	p.RespondedAt = nowStamp()
	if !accept {
		p.Status = domain.ParticipantDeclined
		if err := s.Collabs.UpdateParticipant(p); err != nil {
			return nil, err
		}
		return s.Collabs.Get(projectID)
	}

	p.Status = domain.ParticipantAccepted
	p.JoinedAt = p.RespondedAt

	skill := c.OpenSkill(p.Role)
	if skill == nil {
		// The role filled while this application waited.
		return nil, fmt.Errorf("%w: %s", domain.ErrRoleUnavailable, p.Role)
	}
	skill.IsFilled = true
	skill.FilledBy = p.CollaboratorID

	// Header save first: the version check serializes concurrent accepts so
	// two decisions cannot both fill the last open role.
	if c.IsFullyStaffed() && !c.Status.Terminal() {
		c.Status = domain.CollabInProgress
	}
	if err := s.Collabs.Save(c); err != nil {
		return nil, err
	}
	if err := s.Collabs.UpdateParticipant(p); err != nil {
		return nil, err
	}
	if err := s.Collabs.FillSkill(skill.ID, p.CollaboratorID); err != nil {
		return nil, err
	}
	if err := s.Collaborators.AdjustCounters(p.CollaboratorID, 0, +1); err != nil {
		return nil, err
	}
	return s.Collabs.Get(projectID)
}

// Complete closes the project and settles counters exactly once. The
// reference behavior let a repeated completion double-increment the
// counters; the explicit status guard here closes that gap.
func (s *CollabService) Complete(ctx context.Context, projectID, userID string) (*domain.Collaboration, error) {
	actor, err := s.profile(userID)
	if err != nil {
		return nil, err
	}
	c, err := s.Collabs.Get(projectID)
	if err != nil {
		return nil, err
	}
	if c.InitiatorID != actor.ID {
		return nil, fmt.Errorf("%w: only the project initiator can complete the project", domain.ErrForbidden)
	}
	if c.Status == domain.CollabCompleted {
		return nil, fmt.Errorf("%w: project already completed", domain.ErrInvalidTransition)
	}

	c.Status = domain.CollabCompleted
	if err := s.Collabs.Save(c); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			cur, gerr := s.Collabs.Get(projectID)
			if gerr == nil && cur.Status == domain.CollabCompleted {
				return cur, nil
			}
		}
		return nil, err
	}

	// Counter settlement runs only for the save winner, so a retried
	// completion never double-applies.
	settled := map[string]bool{c.InitiatorID: true}
	if err := s.Collaborators.AdjustCounters(c.InitiatorID, +1, -1); err != nil {
		return nil, err
	}
	for i := range c.Participants {
		p := &c.Participants[i]
		if p.Status != domain.ParticipantAccepted || settled[p.CollaboratorID] {
			continue
		}
		settled[p.CollaboratorID] = true
		if err := s.Collaborators.AdjustCounters(p.CollaboratorID, +1, -1); err != nil {
			return nil, err
		}
		// Open a pending transfer in the payment sub-ledger for each
		// accepted participant.
		commission := p.AgreedRate.Mul(c.Budget.CommissionPercent).Div(decimal.NewFromInt(100))
		if err := s.Collabs.AddTransfer(&domain.Transfer{
			ID:               uuid.NewString(),
			CollabID:         c.ID,
			ToCollaboratorID: p.CollaboratorID,
			Amount:           p.AgreedRate,
			Currency:         c.Budget.Currency,
			Status:           "pending",
			CommissionAmount: commission,
		}); err != nil {
			return nil, err
		}
	}

	return s.Collabs.Get(projectID)
}

// UpdateBudget replaces the budget fields and recomputes the commission so
// amount == total * percentage / 100 always holds afterwards.
func (s *CollabService) UpdateBudget(ctx context.Context, projectID, userID string, in BudgetInput) (*domain.Collaboration, error) {
	actor, err := s.profile(userID)
	if err != nil {
		return nil, err
	}
	c, err := s.Collabs.Get(projectID)
	if err != nil {
		return nil, err
	}
	if c.InitiatorID != actor.ID {
		return nil, fmt.Errorf("%w: only the project initiator can update the budget", domain.ErrForbidden)
	}
	if in.Total.IsNegative() {
		return nil, fmt.Errorf("%w: budget cannot be negative", domain.ErrValidation)
	}

	c.Budget.Total = in.Total
	if in.Currency != "" {
		c.Budget.Currency = in.Currency
	}
	if !in.CommissionPercent.IsNegative() {
		if in.CommissionPercent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%w: commission percentage out of range", domain.ErrValidation)
		}
		c.Budget.CommissionPercent = in.CommissionPercent
	}
	c.Budget.RecalcCommission()

	if err := s.Collabs.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus moves a project to one of the side-exit states (cancelled,
// disputed, on_hold) or into review. Terminal projects stay put.
func (s *CollabService) SetStatus(ctx context.Context, projectID, userID string, status domain.CollabStatus) (*domain.Collaboration, error) {
	actor, err := s.profile(userID)
	if err != nil {
		return nil, err
	}
	switch status {
	case domain.CollabCancelled, domain.CollabDisputed, domain.CollabOnHold,
		domain.CollabOpen, domain.CollabReview, domain.CollabInProgress:
	default:
		return nil, fmt.Errorf("%w: status %s not settable directly", domain.ErrValidation, status)
	}

	c, err := s.Collabs.Get(projectID)
	if err != nil {
		return nil, err
	}
	if c.InitiatorID != actor.ID {
		return nil, fmt.Errorf("%w: only the project initiator can change status", domain.ErrForbidden)
	}
	if c.Status.Terminal() {
		return nil, fmt.Errorf("%w: project is %s", domain.ErrInvalidTransition, c.Status)
	}

	c.Status = status
	if err := s.Collabs.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a project, counting the view unless the viewer initiated it.
func (s *CollabService) Get(projectID, viewerUserID string) (*domain.Collaboration, bool, error) {
	c, err := s.Collabs.Get(projectID)
	if err != nil {
		return nil, false, err
	}

	isParticipant := false
	if viewerUserID != "" {
		if viewer, err := s.Collaborators.ByUserID(viewerUserID); err == nil {
			isParticipant = viewer.ID == c.InitiatorID || c.HasParticipant(viewer.ID)
		}
	}
	if !isParticipant {
		if err := s.Collabs.IncrementViews(projectID); err != nil {
			return nil, false, err
		}
		c.Views++
	}
	return c, isParticipant, nil
}

func (s *CollabService) List(f repos.CollabFilter) ([]*domain.Collaboration, int, error) {
	return s.Collabs.List(f)
}

// MyProjects lists projects the user initiated or participates in.
func (s *CollabService) MyProjects(userID, status string, page, limit int) ([]*domain.Collaboration, int, error) {
	me, err := s.profile(userID)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.Collabs.List(repos.CollabFilter{
		MemberID: me.ID, Status: status, Limit: limit, Offset: (page - 1) * limit,
	})
}

// CreateProfile registers the caller's collaborator profile.
func (s *CollabService) CreateProfile(ctx context.Context, userID string, c domain.Collaborator) (*domain.Collaborator, error) {
	if c.StageName == "" || c.PrimarySkill == "" || c.ExperienceLevel == "" {
		return nil, fmt.Errorf("%w: stage name, primary skill and experience level are required", domain.ErrValidation)
	}
	if _, err := s.Collaborators.ByUserID(userID); err == nil {
		return nil, fmt.Errorf("%w: profile already exists", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	c.ID = uuid.NewString()
	c.UserID = userID
	if err := s.Collaborators.Create(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CollabService) Profile(collaboratorID string) (*domain.Collaborator, error) {
	return s.Collaborators.ByID(collaboratorID)
}
