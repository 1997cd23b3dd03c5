package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
	applog "fefe/internal/log"
	"fefe/internal/services"
)

type PaymentHandler struct {
	Payments *services.PaymentService
	Orders   *services.OrderService
}

// CreateIntent opens a provider payment intent for an unpaid order.
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var body struct {
		OrderID string `json:"orderId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	o, err := h.Orders.Get(body.OrderID)
	if err != nil {
		return fail(c, err)
	}
	u := currentUser(c)
	if o.UserID != u.ID && !u.IsAdmin() {
		applog.Security(c, "access.denied.payment", map[string]any{"order_id": o.ID})
		return fail(c, domain.ErrForbidden)
	}

	secret, err := h.Payments.CreateIntent(c.Context(), o)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "payment.intent.create", map[string]any{"order_id": o.ID})
	return ok(c, fiber.Map{"clientSecret": secret, "paymentIntentId": o.Payment.IntentID})
}

// Confirm is the client-driven confirmation path: verify the intent with the
// provider and mark the order paid.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	var body struct {
		OrderID         string `json:"orderId"`
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	o, err := h.Orders.Get(body.OrderID)
	if err != nil {
		return fail(c, err)
	}
	u := currentUser(c)
	if o.UserID != u.ID && !u.IsAdmin() {
		applog.Security(c, "access.denied.payment", map[string]any{"order_id": o.ID})
		return fail(c, domain.ErrForbidden)
	}

	o, err = h.Payments.Confirm(c.Context(), body.OrderID, body.PaymentIntentID)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "payment.confirm", map[string]any{"order_id": o.ID})
	return ok(c, o)
}

// Webhook consumes provider events. Signature check happens on the raw body
// before anything is parsed; failures must not leak why.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	payload := c.Body()
	sig := c.Get("Stripe-Signature")

	if err := h.Payments.HandleEvent(c.Context(), payload, sig); err != nil {
		applog.Security(c, "payment.webhook.reject", nil)
		return fail(c, err)
	}
	return ok(c, fiber.Map{"received": true})
}

// Refund is admin-only.
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var body struct {
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	amount := decimal.Zero
	if body.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(body.Amount)
		if err != nil || amount.IsNegative() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid amount"})
		}
	}

	o, rf, err := h.Payments.Refund(c.Context(), c.Params("id"), amount, body.Reason)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "payment.refund", map[string]any{
		"order_id": o.ID, "refund_id": rf.ID, "amount": body.Amount, "reason": body.Reason,
	})
	return ok(c, fiber.Map{"order": o, "refund": rf})
}
