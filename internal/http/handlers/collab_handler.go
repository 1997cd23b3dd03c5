package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
	applog "fefe/internal/log"
	"fefe/internal/repos"
	"fefe/internal/services"
	"fefe/internal/validate"
)

type CollabHandler struct {
	Collabs *services.CollabService
}

func parseMoney(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, validate.Money(d)
}

func (h *CollabHandler) Create(c *fiber.Ctx) error {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ProjectType string `json:"projectType"`
		Genre       string `json:"genre"`
		StartDate   string `json:"startDate"`
		EndDate     string `json:"endDate"`
		Skills      []struct {
			Skill           string `json:"skill"`
			ExperienceLevel string `json:"experienceLevel"`
			Description     string `json:"description"`
		} `json:"skillsNeeded"`
		Milestones []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			DueDate     string `json:"dueDate"`
		} `json:"milestones"`
		Budget struct {
			Total             string `json:"total"`
			Currency          string `json:"currency"`
			CommissionPercent string `json:"commissionPercentage"`
		} `json:"budget"`
		CollabType string `json:"collabType"`
		Open       bool   `json:"openForApplications"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	total, totalOK := parseMoney(body.Budget.Total)
	if !totalOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid budget total"})
	}
	// Negative percent means "not provided": the service applies the default.
	pct := decimal.NewFromInt(-1)
	if body.Budget.CommissionPercent != "" {
		p, err := decimal.NewFromString(body.Budget.CommissionPercent)
		if err != nil || !validate.Percent(p) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid commission percentage"})
		}
		pct = p
	}

	in := services.CreateProjectInput{
		Title:             body.Title,
		Description:       body.Description,
		ProjectType:       body.ProjectType,
		Genre:             body.Genre,
		StartDate:         body.StartDate,
		EndDate:           body.EndDate,
		BudgetTotal:       total,
		Currency:          body.Budget.Currency,
		CommissionPercent: pct,
		CollabType:        body.CollabType,
		OpenImmediately:   body.Open,
	}
	for _, sk := range body.Skills {
		in.Skills = append(in.Skills, services.SkillNeedInput{
			Skill: sk.Skill, ExperienceLevel: sk.ExperienceLevel, Description: sk.Description,
		})
	}
	for _, m := range body.Milestones {
		in.Milestones = append(in.Milestones, services.MilestoneInput{
			Title: m.Title, Description: m.Description, DueDate: m.DueDate,
		})
	}

	u := currentUser(c)
	proj, err := h.Collabs.CreateProject(c.Context(), u.ID, in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collab.create", map[string]any{"collab_id": proj.ID, "title": proj.Title})
	return created(c, proj)
}

func (h *CollabHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 12)
	if limit < 1 || limit > 50 {
		limit = 12
	}
	projects, total, err := h.Collabs.List(repos.CollabFilter{
		Status:      c.Query("status"),
		ProjectType: c.Query("projectType"),
		Genre:       c.Query("genre"),
		Skill:       c.Query("skill"),
		SortBy:      c.Query("sortBy"),
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"collaborations": projects, "total": total})
}

// Get returns the project; the payment sub-ledger is visible to the initiator
// and participants only.
func (h *CollabHandler) Get(c *fiber.Ctx) error {
	viewerID := ""
	if u := currentUser(c); u != nil {
		viewerID = u.ID
	}
	proj, isParticipant, err := h.Collabs.Get(c.Params("id"), viewerID)
	if err != nil {
		return fail(c, err)
	}
	if !isParticipant {
		proj.Payments = nil
	}
	return ok(c, proj)
}

func (h *CollabHandler) MyProjects(c *fiber.Ctx) error {
	u := currentUser(c)
	projects, total, err := h.Collabs.MyProjects(
		u.ID, c.Query("status"), c.QueryInt("page", 1), c.QueryInt("limit", 10),
	)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"collaborations": projects, "total": total})
}

func (h *CollabHandler) Apply(c *fiber.Ctx) error {
	var body struct {
		Role         string `json:"role"`
		ProposedRate string `json:"proposedRate"`
		CoverMessage string `json:"coverMessage"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	role, roleOK := validate.Enum(body.Role)
	if !roleOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role"})
	}
	rate, rateOK := parseMoney(body.ProposedRate)
	if !rateOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid proposed rate"})
	}

	u := currentUser(c)
	proj, err := h.Collabs.Apply(c.Context(), c.Params("id"), u.ID, role, rate, body.CoverMessage)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collab.apply", map[string]any{"collab_id": proj.ID, "role": role})
	return created(c, proj)
}

func (h *CollabHandler) Decide(c *fiber.Ctx) error {
	var body struct {
		Accept bool `json:"accept"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	u := currentUser(c)
	proj, err := h.Collabs.Decide(c.Context(), c.Params("id"), c.Params("participantId"), u.ID, body.Accept)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collab.decide", map[string]any{
		"collab_id": proj.ID, "participant_id": c.Params("participantId"), "accepted": body.Accept,
	})
	return ok(c, proj)
}

func (h *CollabHandler) Complete(c *fiber.Ctx) error {
	u := currentUser(c)
	proj, err := h.Collabs.Complete(c.Context(), c.Params("id"), u.ID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collab.complete", map[string]any{"collab_id": proj.ID})
	return ok(c, proj)
}

func (h *CollabHandler) UpdateBudget(c *fiber.Ctx) error {
	var body struct {
		Total             string `json:"total"`
		Currency          string `json:"currency"`
		CommissionPercent string `json:"commissionPercentage"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	total, totalOK := parseMoney(body.Total)
	if !totalOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid budget total"})
	}
	pct := decimal.NewFromInt(-1)
	if body.CommissionPercent != "" {
		p, err := decimal.NewFromString(body.CommissionPercent)
		if err != nil || !validate.Percent(p) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid commission percentage"})
		}
		pct = p
	}

	u := currentUser(c)
	proj, err := h.Collabs.UpdateBudget(c.Context(), c.Params("id"), u.ID, services.BudgetInput{
		Total: total, Currency: body.Currency, CommissionPercent: pct,
	})
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collab.budget.update", map[string]any{
		"collab_id": proj.ID, "total": proj.Budget.Total.String(),
	})
	return ok(c, proj)
}

func (h *CollabHandler) SetStatus(c *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	if !domain.ValidCollabStatus(domain.CollabStatus(body.Status)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status"})
	}

	u := currentUser(c)
	proj, err := h.Collabs.SetStatus(c.Context(), c.Params("id"), u.ID, domain.CollabStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collab.status.update", map[string]any{"collab_id": proj.ID, "status": body.Status})
	return ok(c, proj)
}
