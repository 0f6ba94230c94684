package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecofinds/internal/blob"
	"ecofinds/internal/models"
	"ecofinds/internal/repositories"

	"github.com/sirupsen/logrus"
)

// CatalogService handles business logic related to listings.
type CatalogService struct {
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	cartRepo    repositories.CartRepository
	blobs       blob.Store
	events      EventPublisher
}

// NewCatalogService creates a new CatalogService. events may be nil.
func NewCatalogService(
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	cartRepo repositories.CartRepository,
	blobs blob.Store,
	events EventPublisher,
) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		userRepo:    userRepo,
		cartRepo:    cartRepo,
		blobs:       blobs,
		events:      events,
	}
}

// ProductDraft carries the editable fields of a listing.
type ProductDraft struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"required,max=2000"`
	Price       float64 `json:"price" validate:"gt=0"`
	Category    string  `json:"category" validate:"required,category"`
}

func (d ProductDraft) normalized() ProductDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	return d
}

// DeleteResult reports the side effects of deleting a listing.
// Warnings hold cleanup failures that did not stop the delete.
type DeleteResult struct {
	CartLinesRemoved int
	Warnings         []error
}

// List returns every listing, newest first, with its seller resolved.
func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.productRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	s.resolveSellers(ctx, products)
	return products, nil
}

// ListMine returns the listings of userID only.
func (s *CatalogService) ListMine(ctx context.Context, userID string) ([]models.Product, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	products, err := s.productRepo.GetBySeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Backends filter for us; this keeps the guarantee independent of them.
	mine := products[:0]
	for _, p := range products {
		if p.SellerID == userID {
			mine = append(mine, p)
		}
	}
	s.resolveSellers(ctx, mine)
	return mine, nil
}

// GetByID returns a single listing with its seller.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveSeller(ctx, product, nil)
	return product, nil
}

// Create validates the draft, uploads the images, then inserts the listing.
// No row is written unless every image was stored.
func (s *CatalogService) Create(ctx context.Context, sellerID string, draft ProductDraft, images []Upload) (*models.Product, error) {
	if sellerID == "" {
		return nil, ErrNotSignedIn
	}
	draft = draft.normalized()
	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, newValidationError("Images", "At least one image is required")
	}
	if _, err := s.userRepo.GetByID(ctx, sellerID); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("seller %s does not exist: %w", sellerID, repositories.ErrConstraintViolation)
		}
		return nil, err
	}

	urls, err := storeImages(ctx, s.blobs, "products/"+sellerID, images)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerID:    sellerID,
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Category:    draft.Category,
		Images:      urls,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		for _, rmErr := range removeImages(ctx, s.blobs, urls) {
			logrus.WithError(rmErr).Warn("Failed to remove images of rejected listing")
		}
		return nil, err
	}

	publish(s.events, EventListingCreated, map[string]interface{}{
		"productID": product.ID,
		"sellerID":  product.SellerID,
		"name":      product.Name,
		"price":     product.Price,
		"category":  product.Category,
	}, logrus.Fields{"product_id": product.ID})

	s.resolveSeller(ctx, product, nil)
	return product, nil
}

// Update edits a listing owned by userID.
//
// Images in removed are released from blob storage first, then the added
// uploads are stored. The final image list keeps the surviving images in
// their original order followed by the new ones.
func (s *CatalogService) Update(ctx context.Context, userID, id string, draft ProductDraft, added []Upload, removed []string) (*models.Product, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	draft = draft.normalized()
	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != userID {
		return nil, fmt.Errorf("update product %s: %w", id, ErrForbidden)
	}

	current := make(map[string]bool, len(product.Images))
	for _, img := range product.Images {
		current[img] = true
	}
	drop := make(map[string]bool, len(removed))
	for _, ref := range removed {
		if !current[ref] {
			return nil, newValidationError("RemovedImages", fmt.Sprintf("Image %s is not part of this listing", ref))
		}
		drop[ref] = true
	}
	remaining := make([]string, 0, len(product.Images))
	for _, img := range product.Images {
		if !drop[img] {
			remaining = append(remaining, img)
		}
	}
	if len(remaining)+len(added) == 0 {
		return nil, newValidationError("Images", "At least one image is required")
	}
	// Non-images are rejected before any released blob is removed.
	if err := checkImages("Images", added); err != nil {
		return nil, err
	}

	dropped := make([]string, 0, len(drop))
	for _, img := range product.Images {
		if drop[img] {
			dropped = append(dropped, img)
		}
	}
	for _, rmErr := range removeImages(ctx, s.blobs, dropped) {
		logrus.WithError(rmErr).WithField("product_id", id).Warn("Failed to remove listing image")
	}

	urls, err := storeImages(ctx, s.blobs, "products/"+userID, added)
	if err != nil {
		// The released images are gone either way; stop referencing them.
		if len(dropped) > 0 {
			product.Images = remaining
			if upErr := s.productRepo.Update(ctx, product); upErr != nil {
				logrus.WithError(upErr).WithField("product_id", id).Error("Failed to drop released images from listing")
			}
		}
		return nil, err
	}

	product.Name = draft.Name
	product.Description = draft.Description
	product.Price = draft.Price
	product.Category = draft.Category
	product.Images = append(remaining, urls...)
	if err := s.productRepo.Update(ctx, product); err != nil {
		for _, rmErr := range removeImages(ctx, s.blobs, urls) {
			logrus.WithError(rmErr).WithField("product_id", id).Warn("Failed to remove images of rejected update")
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a listing owned by userID, the cart lines that reference it
// and its images. Purchases keep their snapshot and are never touched.
func (s *CatalogService) Delete(ctx context.Context, userID, id string) (*DeleteResult, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != userID {
		return nil, fmt.Errorf("delete product %s: %w", id, ErrForbidden)
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	fields := logrus.Fields{"product_id": id, "seller_id": userID}
	if s.cartRepo != nil {
		n, err := s.cartRepo.DeleteByProduct(ctx, id)
		if err != nil {
			logrus.WithFields(fields).WithError(err).Warn("Failed to remove cart lines of deleted listing")
			result.Warnings = append(result.Warnings, err)
		}
		result.CartLinesRemoved = n
	}
	for _, rmErr := range removeImages(ctx, s.blobs, product.Images) {
		logrus.WithFields(fields).WithError(rmErr).Warn("Failed to remove image of deleted listing")
		result.Warnings = append(result.Warnings, rmErr)
	}

	publish(s.events, EventListingDeleted, map[string]interface{}{
		"productID": id,
		"sellerID":  userID,
	}, fields)
	return result, nil
}

func (s *CatalogService) resolveSellers(ctx context.Context, products []models.Product) {
	cache := make(map[string]*models.User)
	for i := range products {
		s.resolveSeller(ctx, &products[i], cache)
	}
}

func (s *CatalogService) resolveSeller(ctx context.Context, p *models.Product, cache map[string]*models.User) {
	if s.userRepo == nil {
		return
	}
	if cache != nil {
		if u, ok := cache[p.SellerID]; ok {
			p.Seller = u
			return
		}
	}
	var seller *models.User
	u, err := s.userRepo.GetByID(ctx, p.SellerID)
	switch {
	case err == nil:
		public := u.Public()
		seller = &public
	case !errors.Is(err, repositories.ErrNotFound):
		logrus.WithError(err).WithField("seller_id", p.SellerID).Warn("Failed to resolve seller")
	}
	if cache != nil {
		cache[p.SellerID] = seller
	}
	p.Seller = seller
}

// FilterProducts keeps products whose name contains search (case-insensitive)
// and whose category equals category. An empty search matches everything, as
// does an empty category or "All". search is matched as typed, spaces included.
func FilterProducts(products []models.Product, search, category string) []models.Product {
	needle := strings.ToLower(search)
	anyCategory := category == "" || category == models.CategoryAll
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !anyCategory && p.Category != category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}
