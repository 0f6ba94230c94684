package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecofinds/internal/models"
	"ecofinds/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CartService owns cart lines and turns them into purchases at checkout.
type CartService struct {
	cartRepo     repositories.CartRepository
	productRepo  repositories.ProductRepository
	purchaseRepo repositories.PurchaseRepository
	events       EventPublisher
	now          func() time.Time
}

// NewCartService creates a new CartService. events may be nil.
func NewCartService(
	cartRepo repositories.CartRepository,
	productRepo repositories.ProductRepository,
	purchaseRepo repositories.PurchaseRepository,
	events EventPublisher,
) *CartService {
	return &CartService{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		purchaseRepo: purchaseRepo,
		events:       events,
		now:          time.Now,
	}
}

// CheckoutResult is the outcome of a committed checkout.
type CheckoutResult struct {
	CheckoutID string            `json:"checkout_id,omitempty"`
	Purchases  []models.Purchase `json:"purchases"`
	Total      float64           `json:"total"`
	// Warning is set when the purchases were recorded but the cart could not
	// be cleared. The sale stands.
	Warning error `json:"-"`
}

// GetCart returns the user's cart lines with their products. Lines whose
// product no longer exists are left out.
func (s *CartService) GetCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	lines, err := s.cartRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resolved, _, err := s.resolveLines(ctx, lines)
	return resolved, err
}

// resolveLines attaches products to lines and splits off orphans.
func (s *CartService) resolveLines(ctx context.Context, lines []models.CartItem) ([]models.CartItem, []models.CartItem, error) {
	resolved := make([]models.CartItem, 0, len(lines))
	var orphans []models.CartItem
	for _, line := range lines {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if IsNotFound(err) {
			orphans = append(orphans, line)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		line.Product = product
		resolved = append(resolved, line)
	}
	return resolved, orphans, nil
}

// AddToCart adds quantity units of a product, incrementing the existing line
// if there is one. Quantities below 1 count as 1.
func (s *CartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	if quantity < 1 {
		quantity = 1
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Re-read the cart so a second add never creates a duplicate line.
	item, err := s.increment(ctx, userID, productID, quantity)
	if err != nil || item != nil {
		return withProduct(item, product), err
	}

	item = &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.cartRepo.Create(ctx, item); err != nil {
		if !errors.Is(err, repositories.ErrConstraintViolation) {
			return nil, err
		}
		// Someone created the line between our read and write.
		item, err = s.increment(ctx, userID, productID, quantity)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("cart line for product %s vanished: %w", productID, repositories.ErrNotFound)
		}
	}
	return withProduct(item, product), nil
}

func (s *CartService) increment(ctx context.Context, userID, productID string, quantity int) (*models.CartItem, error) {
	lines, err := s.cartRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.ProductID != productID {
			continue
		}
		line.Quantity += quantity
		if err := s.cartRepo.UpdateQuantity(ctx, line.ID, line.Quantity); err != nil {
			return nil, err
		}
		return &line, nil
	}
	return nil, nil
}

func withProduct(item *models.CartItem, product *models.Product) *models.CartItem {
	if item != nil {
		item.Product = product
	}
	return item
}

// ownedItem loads a cart line and checks it belongs to userID.
func (s *CartService) ownedItem(ctx context.Context, userID, itemID string) (*models.CartItem, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	item, err := s.cartRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, fmt.Errorf("cart item %s: %w", itemID, ErrForbidden)
	}
	return item, nil
}

// UpdateQuantity sets a line's quantity. A quantity below 1 removes the line,
// in which case the returned item is nil.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, s.RemoveItem(ctx, userID, itemID)
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.UpdateQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	if product, err := s.productRepo.GetByID(ctx, item.ProductID); err == nil {
		item.Product = product
	}
	return item, nil
}

// RemoveItem deletes a cart line. Removing a line that is already gone is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := s.cartRepo.Delete(ctx, itemID); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// ClearCart deletes every line of the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotSignedIn
	}
	lines, err := s.cartRepo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.DeleteByIDs(ctx, lineIDs(lines))
}

func lineIDs(lines []models.CartItem) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	return ids
}

// Checkout converts the user's cart into purchase records.
//
// The cart is snapshotted once; prices and quantities are copied from that
// snapshot. Purchases are recorded before the cart is cleared. If recording
// fails the cart is left untouched. If clearing fails afterwards the checkout
// still succeeds and CheckoutResult.Warning carries the error.
//
// An empty cart writes nothing and returns an empty result.
func (s *CartService) Checkout(ctx context.Context, userID string) (*CheckoutResult, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	lines, err := s.cartRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return &CheckoutResult{Purchases: []models.Purchase{}}, nil
	}

	snapshot, orphans, err := s.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{"user_id": userID}
	if len(orphans) > 0 {
		logrus.WithFields(fields).WithField("lines", len(orphans)).Warn("Dropping cart lines of deleted listings at checkout")
	}

	result := &CheckoutResult{Purchases: []models.Purchase{}}
	if len(snapshot) > 0 {
		checkoutID := uuid.New().String()
		at := s.now().UTC()
		purchases := make([]models.Purchase, 0, len(snapshot))
		for _, line := range snapshot {
			purchases = append(purchases, models.Purchase{
				ID:          uuid.New().String(),
				CheckoutID:  checkoutID,
				UserID:      userID,
				ProductID:   line.ProductID,
				ProductName: line.Product.Name,
				ImageURL:    line.Product.Thumbnail(),
				Price:       line.Product.Price,
				Quantity:    line.Quantity,
				PurchasedAt: at,
			})
		}
		if err := s.purchaseRepo.CreateBatch(ctx, purchases); err != nil {
			logrus.WithFields(fields).WithError(err).Error("Checkout failed; cart left intact")
			return nil, fmt.Errorf("checkout failed: %w", err)
		}
		result.CheckoutID = checkoutID
		result.Purchases = purchases
		for _, p := range purchases {
			result.Total += p.Total()
		}
		fields["checkout_id"] = checkoutID
		logrus.WithFields(fields).WithFields(logrus.Fields{
			"lines": len(purchases),
			"total": result.Total,
		}).Info("Checkout committed")
	}

	// Only the snapshotted lines are removed; anything added since stays.
	if err := s.cartRepo.DeleteByIDs(ctx, append(lineIDs(snapshot), lineIDs(orphans)...)); err != nil {
		result.Warning = fmt.Errorf("purchases recorded but cart not cleared: %w", err)
		logrus.WithFields(fields).WithError(err).Warn("Cart could not be cleared after checkout")
	}

	if result.CheckoutID != "" {
		publish(s.events, EventPurchaseCreated, purchaseEvent(userID, result), fields)
	}
	return result, nil
}

func purchaseEvent(userID string, result *CheckoutResult) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(result.Purchases))
	for _, p := range result.Purchases {
		items = append(items, map[string]interface{}{
			"productID": p.ProductID,
			"name":      p.ProductName,
			"price":     p.Price,
			"quantity":  p.Quantity,
		})
	}
	return map[string]interface{}{
		"checkoutID": result.CheckoutID,
		"userID":     userID,
		"items":      items,
		"total":      result.Total,
	}
}

// ListPurchases returns the user's purchases, most recent first. Product is
// set when the listing still exists; the recorded price never changes.
func (s *CartService) ListPurchases(ctx context.Context, userID string) ([]models.Purchase, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	purchases, err := s.purchaseRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cache := make(map[string]*models.Product)
	for i := range purchases {
		pid := purchases[i].ProductID
		product, seen := cache[pid]
		if !seen {
			p, err := s.productRepo.GetByID(ctx, pid)
			if err != nil && !IsNotFound(err) {
				return nil, err
			}
			product = p
			cache[pid] = product
		}
		purchases[i].Product = product
	}
	return purchases, nil
}
