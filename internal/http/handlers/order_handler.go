package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fefe/internal/domain"
	applog "fefe/internal/log"
	"fefe/internal/services"
	"fefe/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

// loadOwned fetches the order and enforces user-or-admin access.
func (h *OrderHandler) loadOwned(c *fiber.Ctx) (*domain.Order, error) {
	o, err := h.Orders.Get(c.Params("id"))
	if err != nil {
		return nil, err
	}
	u := currentUser(c)
	if o.UserID != u.ID && !u.IsAdmin() {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": o.ID})
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var body struct {
		Items []struct {
			ProductID string `json:"productId"`
			Size      string `json:"size"`
			Color     string `json:"color"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
		ShippingAddress struct {
			Name       string `json:"name"`
			Line1      string `json:"line1"`
			City       string `json:"city"`
			State      string `json:"state"`
			PostalCode string `json:"postalCode"`
			Country    string `json:"country"`
		} `json:"shippingAddress"`
		Currency string `json:"currency"`
		Notes    string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	currency, curOK := validate.Currency(body.Currency)
	if !curOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported currency"})
	}
	if _, pcOK := validate.Postal(body.ShippingAddress.PostalCode); !pcOK {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid postal code"})
	}

	in := services.CreateOrderInput{
		Currency: currency,
		Notes:    body.Notes,
		ShippingAddr: domain.Address{
			Name:       body.ShippingAddress.Name,
			Line1:      body.ShippingAddress.Line1,
			City:       body.ShippingAddress.City,
			State:      body.ShippingAddress.State,
			PostalCode: body.ShippingAddress.PostalCode,
			Country:    body.ShippingAddress.Country,
		},
	}
	for _, it := range body.Items {
		if !validate.Qty(it.Quantity) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quantity out of range"})
		}
		in.Items = append(in.Items, services.OrderItemInput{
			ProductID: it.ProductID, Size: it.Size, Color: it.Color, Quantity: it.Quantity,
		})
	}

	u := currentUser(c)
	o, err := h.Orders.Create(c.Context(), u.ID, in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.create", map[string]any{
		"order_id": o.ID, "order_number": o.OrderNumber, "total": o.Pricing.Total.String(),
	})
	return created(c, o)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	o, err := h.loadOwned(c)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, o)
}

func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	u := currentUser(c)
	orders, total, err := h.Orders.ListByUser(
		u.ID, c.Query("status"), c.QueryInt("page", 1), c.QueryInt("limit", 10),
	)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"orders": orders, "total": total})
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.loadOwned(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	o, err = h.Orders.Cancel(c.Context(), o.ID, body.Reason)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID, "reason": body.Reason})
	return ok(c, o)
}

// UpdateStatus is the admin fulfillment endpoint.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	var body struct {
		Status         string `json:"status"`
		Notes          string `json:"notes"`
		TrackingNumber string `json:"trackingNumber"`
		Carrier        string `json:"carrier"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	o, err := h.Orders.UpdateStatus(c.Context(), c.Params("id"),
		domain.OrderStatus(body.Status), body.Notes, body.TrackingNumber, body.Carrier)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.status.update", map[string]any{"order_id": o.ID, "status": body.Status})
	return ok(c, o)
}
