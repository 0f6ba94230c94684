package handlers

import (
	"ecofinds/internal/handlers/response"
	"ecofinds/internal/middleware"
	"ecofinds/internal/models"
	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the cart, checkout and purchases.
type CartHandler struct {
	service *services.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers the cart and purchase routes. All of them need auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cartRoutes := router.Group("/cart", auth)
	cartRoutes.Get("/", h.GetCart)
	cartRoutes.Delete("/", h.ClearCart)
	cartRoutes.Post("/items", h.AddItem)
	cartRoutes.Patch("/items/:id", h.UpdateItem)
	cartRoutes.Delete("/items/:id", h.RemoveItem)
	cartRoutes.Post("/checkout", h.Checkout)

	router.Get("/purchases", auth, h.GetPurchases)
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest is the body of PATCH /cart/items/:id. Quantity is
// required; a body without it never removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func cartMeta(items []models.CartItem) fiber.Map {
	total := 0.0
	units := 0
	for _, it := range items {
		total += it.Subtotal()
		units += it.Quantity
	}
	return fiber.Map{"total": total, "count": len(items), "units": units}
}

// GetCart returns the signed-in user's cart with its running total.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	items, err := h.service.GetCart(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return response.Fail(c, "Could not fetch cart", err)
	}
	return c.JSON(response.Success("Cart retrieved", items, cartMeta(items)))
}

// AddItem adds a product to the cart or increments its line.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid request body", err.Error()))
	}
	if req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Validation failed", map[string]string{
			"ProductID": "Field 'ProductID' failed on the 'required' tag",
		}))
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.service.AddToCart(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return response.Fail(c, "Could not add to cart", err)
	}
	return c.Status(fiber.StatusCreated).JSON(response.Success("Added to cart", item, nil))
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid request body", err.Error()))
	}
	if req.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Validation failed", map[string]string{
			"Quantity": "Field 'Quantity' failed on the 'required' tag",
		}))
	}

	item, err := h.service.UpdateQuantity(c.UserContext(), middleware.UserID(c), c.Params("id"), *req.Quantity)
	if err != nil {
		return response.Fail(c, "Could not update cart item", err)
	}
	if item == nil {
		return c.JSON(response.Success("Removed from cart", nil, nil))
	}
	return c.JSON(response.Success("Cart item updated", item, nil))
}

// RemoveItem deletes a cart line. Deleting a missing line succeeds.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return response.Fail(c, "Could not remove cart item", err)
	}
	return c.JSON(response.Success("Removed from cart", nil, nil))
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	if err := h.service.ClearCart(c.UserContext(), middleware.UserID(c)); err != nil {
		return response.Fail(c, "Could not clear cart", err)
	}
	return c.JSON(response.Success("Cart cleared", nil, nil))
}

// Checkout turns the cart into purchases.
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	result, err := h.service.Checkout(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return response.Fail(c, "Checkout failed", err)
	}
	if result.CheckoutID == "" {
		return c.JSON(response.Success("Cart is empty", result, nil))
	}

	var meta interface{}
	if result.Warning != nil {
		meta = fiber.Map{"warning": result.Warning.Error()}
	}
	return c.Status(fiber.StatusCreated).JSON(response.Success("Checkout complete", result, meta))
}

// GetPurchases lists the purchase history, newest first. ?grouped=true
// groups lines by checkout.
func (h *CartHandler) GetPurchases(c *fiber.Ctx) error {
	purchases, err := h.service.ListPurchases(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return response.Fail(c, "Could not fetch purchases", err)
	}
	if c.QueryBool("grouped") {
		groups := models.GroupPurchases(purchases)
		return c.JSON(response.Success("Purchases retrieved", groups, fiber.Map{"count": len(groups)}))
	}
	return c.JSON(response.Success("Purchases retrieved", purchases, fiber.Map{"count": len(purchases)}))
}
