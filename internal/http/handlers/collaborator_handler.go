package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fefe/internal/domain"
	applog "fefe/internal/log"
	"fefe/internal/services"
	"fefe/internal/validate"
)

type CollaboratorHandler struct {
	Collabs *services.CollabService
}

func (h *CollaboratorHandler) CreateProfile(c *fiber.Ctx) error {
	var body struct {
		StageName       string `json:"stageName"`
		Bio             string `json:"bio"`
		PrimarySkill    string `json:"primarySkill"`
		ExperienceLevel string `json:"experienceLevel"`
		HourlyRateMin   string `json:"hourlyRateMin"`
		HourlyRateMax   string `json:"hourlyRateMax"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	stageName, nameOK := validate.Name(body.StageName, 60)
	if !nameOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid stage name"})
	}
	rateMin, minOK := parseMoney(body.HourlyRateMin)
	rateMax, maxOK := parseMoney(body.HourlyRateMax)
	if !minOK || !maxOK || rateMax.LessThan(rateMin) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid hourly rate range"})
	}

	u := currentUser(c)
	profile, err := h.Collabs.CreateProfile(c.Context(), u.ID, domain.Collaborator{
		StageName:       stageName,
		Bio:             body.Bio,
		PrimarySkill:    body.PrimarySkill,
		ExperienceLevel: body.ExperienceLevel,
		HourlyRateMin:   rateMin,
		HourlyRateMax:   rateMax,
	})
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "collaborator.profile.create", map[string]any{"collaborator_id": profile.ID})
	return created(c, profile)
}

func (h *CollaboratorHandler) Get(c *fiber.Ctx) error {
	profile, err := h.Collabs.Profile(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, profile)
}

// Me returns the caller's own profile, 404 when none exists yet.
func (h *CollaboratorHandler) Me(c *fiber.Ctx) error {
	u := currentUser(c)
	profile, err := h.Collabs.Collaborators.ByUserID(u.ID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, profile)
}
