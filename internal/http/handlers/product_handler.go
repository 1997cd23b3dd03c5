package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "fefe/internal/log"
	"fefe/internal/services"
	"fefe/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.Catalog.List(
		strings.TrimSpace(c.Query("category")),
		strings.TrimSpace(c.Query("q")),
		c.QueryInt("page", 1),
		c.QueryInt("limit", 12),
	)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"products": products})
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, idOK := validate.ID(c.Params("id"))
	if !idOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	p, err := h.Catalog.Get(id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, p)
}

// Availability answers stock for one SKU of a product.
func (h *ProductHandler) Availability(c *fiber.Ctx) error {
	id, idOK := validate.ID(c.Params("id"))
	if !idOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	sku := strings.TrimSpace(c.Query("sku"))
	if sku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing sku"})
	}
	avail, err := h.Catalog.Availability(id, sku)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, avail)
}

func (h *ProductHandler) Reviews(c *fiber.Ctx) error {
	reviews, err := h.Catalog.Reviews(c.Params("id"), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"reviews": reviews})
}

func (h *ProductHandler) AddReview(c *fiber.Ctx) error {
	var body struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	u := currentUser(c)
	rev, err := h.Catalog.AddReview(c.Params("id"), u.ID, body.Rating, body.Comment)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "product.review.add", map[string]any{"product_id": c.Params("id"), "rating": body.Rating})
	return created(c, rev)
}
