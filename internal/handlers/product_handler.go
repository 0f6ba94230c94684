package handlers

import (
	"mime/multipart"
	"strconv"
	"strings"

	"ecofinds/internal/handlers/response"
	"ecofinds/internal/middleware"
	"ecofinds/internal/models"
	"ecofinds/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ProductHandler handles HTTP requests for listings.
type ProductHandler struct {
	service *services.CatalogService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.CatalogService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes registers the listing routes. Browsing is public; every
// write and /mine go through auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.GetAllProducts)
	productRoutes.Get("/categories", h.GetCategories)
	productRoutes.Get("/mine", auth, h.GetMyProducts)
	productRoutes.Get("/:id", h.GetProductByID)
	productRoutes.Post("/", auth, h.CreateProduct)
	productRoutes.Put("/:id", auth, h.UpdateProduct)
	productRoutes.Delete("/:id", auth, h.DeleteProduct)
}

// GetAllProducts lists listings filtered by ?search= and ?category=.
func (h *ProductHandler) GetAllProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return response.Fail(c, "Could not fetch products", err)
	}
	products = services.FilterProducts(products, c.Query("search"), c.Query("category"))
	return c.JSON(response.Success("Products retrieved", products, fiber.Map{"count": len(products)}))
}

// GetCategories lists the category filter values, "All" first.
func (h *ProductHandler) GetCategories(c *fiber.Ctx) error {
	return c.JSON(response.Success("Categories retrieved", append([]string{models.CategoryAll}, models.Categories...), nil))
}

// GetMyProducts lists the signed-in user's own listings.
func (h *ProductHandler) GetMyProducts(c *fiber.Ctx) error {
	products, err := h.service.ListMine(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return response.Fail(c, "Could not fetch your products", err)
	}
	return c.JSON(response.Success("Products retrieved", products, fiber.Map{"count": len(products)}))
}

// GetProductByID returns one listing.
func (h *ProductHandler) GetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.Fail(c, "Could not fetch product", err)
	}
	return c.JSON(response.Success("Product retrieved", product, nil))
}

// parseDraft reads the listing fields of a multipart form.
func parseDraft(form *multipart.Form) (services.ProductDraft, map[string]string) {
	var draft services.ProductDraft
	if v := formValue(form, "name"); v != nil {
		draft.Name = *v
	}
	if v := formValue(form, "description"); v != nil {
		draft.Description = *v
	}
	if v := formValue(form, "category"); v != nil {
		draft.Category = *v
	}
	if v := formValue(form, "price"); v != nil {
		price, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
		if err != nil {
			return draft, map[string]string{"Price": "Field 'Price' must be a number"}
		}
		draft.Price = price
	}
	return draft, nil
}

// CreateProduct creates a listing from a multipart form with one or more
// files under "images".
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid form", err.Error()))
	}
	draft, bad := parseDraft(form)
	if bad != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Validation failed", bad))
	}
	images, err := formUploads(form, "images")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid images", err.Error()))
	}

	product, err := h.service.Create(c.UserContext(), middleware.UserID(c), draft, images)
	if err != nil {
		return response.Fail(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(response.Success("Product created", product, nil))
}

// UpdateProduct edits a listing. New files go under "images"; URLs of images
// to drop are sent as repeated "removed_images" fields.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid form", err.Error()))
	}
	draft, bad := parseDraft(form)
	if bad != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Validation failed", bad))
	}
	added, err := formUploads(form, "images")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response.Error("Invalid images", err.Error()))
	}

	product, err := h.service.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), draft, added, form.Value["removed_images"])
	if err != nil {
		return response.Fail(c, "Could not update product", err)
	}
	return c.JSON(response.Success("Product updated", product, nil))
}

// DeleteProduct removes a listing.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	result, err := h.service.Delete(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return response.Fail(c, "Could not delete product", err)
	}

	meta := fiber.Map{"cart_lines_removed": result.CartLinesRemoved}
	if len(result.Warnings) > 0 {
		warnings := make([]string, 0, len(result.Warnings))
		for _, w := range result.Warnings {
			warnings = append(warnings, w.Error())
		}
		meta["warnings"] = warnings
		logrus.WithField("product_id", id).WithField("warnings", len(warnings)).Warn("Product deleted with cleanup warnings")
	}
	return c.JSON(response.Success("Product deleted", nil, meta))
}
