package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "fefe/internal/log"
	"fefe/internal/services"
	"fefe/internal/validate"
)

// AdminHandler serves the server-rendered back-office pages plus the JSON
// admin endpoints.
type AdminHandler struct {
	Orders  *services.OrderService
	Catalog *services.CatalogService
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.Orders.Stats()
	if err != nil {
		applog.Error(c, "admin.stats.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load stats"})
	}
	return render(c, "admin_dashboard", fiber.Map{"Stats": stats})
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	orders, total, err := h.Orders.ListAll(c.Query("status"), "", "", 1, 100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": orders, "Total": total})
}

// GET /admin/inventory
func (h *AdminHandler) InventoryPage(c *fiber.Ctx) error {
	products, err := h.Catalog.List("", "", 1, 50)
	if err != nil {
		applog.Error(c, "admin.inventory.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load inventory"})
	}
	return render(c, "admin_inventory", fiber.Map{"Products": products})
}

// POST /admin/inventory
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	pid, pidOK := validate.ID(c.FormValue("product_id"))
	sku := c.FormValue("sku")
	stock, err := strconv.Atoi(c.FormValue("stock"))
	if !pidOK || sku == "" || err != nil || stock < 0 {
		return c.Status(400).SendString("invalid input")
	}
	if err := h.Catalog.Restock(pid, sku, stock); err != nil {
		applog.Error(c, "admin.inventory.save.fail", err, map[string]any{"product": pid, "sku": sku})
		return c.Status(400).SendString("could not save stock")
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"product": pid, "sku": sku, "stock": stock})
	return c.Redirect("/admin/inventory")
}

// ListOrders serves the filtered admin order list as JSON.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	orders, total, err := h.Orders.ListAll(
		c.Query("status"), c.Query("startDate"), c.Query("endDate"),
		c.QueryInt("page", 1), c.QueryInt("limit", 20),
	)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"orders": orders, "total": total})
}

// GET /api/admin/orders/stats
func (h *AdminHandler) OrderStats(c *fiber.Ctx) error {
	stats, err := h.Orders.Stats()
	if err != nil {
		return fail(c, err)
	}
	return ok(c, stats)
}
