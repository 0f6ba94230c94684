package services_test

import (
	"errors"
	"testing"

	"ecofinds/internal/models"
	"ecofinds/internal/repositories"
	"ecofinds/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddToCart(t *testing.T) {
	m := newMarketplace(t)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	p := m.listing(t, seller, "Camera", 75)

	item, err := m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	require.NotNil(t, item.Product)
	assert.Equal(t, "Camera", item.Product.Name)

	item, err = m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity, "a second add increments the line")

	item, err = m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity, "quantities below 1 count as 1")

	lines, err := m.cart.GetCart(m.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, 300.0, lines[0].Subtotal())

	_, err = m.cart.AddToCart(m.ctx, buyer.ID, "missing", 1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = m.cart.AddToCart(m.ctx, "", p.ID, 1)
	assert.ErrorIs(t, err, services.ErrNotSignedIn)
}

func TestCartService_AddToCartLostRace(t *testing.T) {
	m := newMarketplace(t)
	carts := new(MockCartRepository)
	cart := services.NewCartService(carts, m.products, m.purchases, nil)
	seller := m.user(t, "seller")
	p := m.listing(t, seller, "Camera", 75)

	existing := models.CartItem{ID: "line-1", UserID: "u1", ProductID: p.ID, Quantity: 1}
	carts.On("GetByUser", mock.Anything, "u1").Return([]models.CartItem{}, nil).Once()
	carts.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrConstraintViolation).Once()
	carts.On("GetByUser", mock.Anything, "u1").Return([]models.CartItem{existing}, nil).Once()
	carts.On("UpdateQuantity", mock.Anything, "line-1", 3).Return(nil).Once()

	item, err := cart.AddToCart(m.ctx, "u1", p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "line-1", item.ID)
	assert.Equal(t, 3, item.Quantity)
	carts.AssertExpectations(t)
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	m := newMarketplace(t)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	intruder := m.user(t, "intruder")
	p := m.listing(t, seller, "Jacket", 40)

	item, err := m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)

	updated, err := m.cart.UpdateQuantity(m.ctx, buyer.ID, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	_, err = m.cart.UpdateQuantity(m.ctx, intruder.ID, item.ID, 9)
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.ErrorIs(t, m.cart.RemoveItem(m.ctx, intruder.ID, item.ID), services.ErrForbidden)

	lines, _ := m.cart.GetCart(m.ctx, buyer.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	removed, err := m.cart.UpdateQuantity(m.ctx, buyer.ID, item.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, removed, "quantity 0 removes the line")
	lines, _ = m.cart.GetCart(m.ctx, buyer.ID)
	assert.Empty(t, lines)

	again, err := m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)
	removed, err = m.cart.UpdateQuantity(m.ctx, buyer.ID, again.ID, -5)
	require.NoError(t, err)
	assert.Nil(t, removed, "a negative quantity removes the line")
	lines, _ = m.cart.GetCart(m.ctx, buyer.ID)
	assert.Empty(t, lines)

	// Removing twice is fine.
	assert.NoError(t, m.cart.RemoveItem(m.ctx, buyer.ID, item.ID))
	assert.NoError(t, m.cart.RemoveItem(m.ctx, buyer.ID, "never-existed"))
}

func TestCartService_ClearCart(t *testing.T) {
	m := newMarketplace(t)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	other := m.user(t, "other")
	a := m.listing(t, seller, "A", 1)
	b := m.listing(t, seller, "B", 2)

	for _, p := range []*models.Product{a, b} {
		_, err := m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 1)
		require.NoError(t, err)
	}
	_, err := m.cart.AddToCart(m.ctx, other.ID, a.ID, 1)
	require.NoError(t, err)

	require.NoError(t, m.cart.ClearCart(m.ctx, buyer.ID))
	lines, _ := m.cart.GetCart(m.ctx, buyer.ID)
	assert.Empty(t, lines)
	lines, _ = m.cart.GetCart(m.ctx, other.ID)
	assert.Len(t, lines, 1, "other carts are untouched")
}

func TestCartService_Checkout(t *testing.T) {
	m := newMarketplace(t)
	events := new(MockEventPublisher)
	cart := services.NewCartService(m.carts, m.products, m.purchases, events)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	mug := m.listing(t, seller, "Mug", 10)
	plate := m.listing(t, seller, "Plate", 5)

	_, err := cart.AddToCart(m.ctx, buyer.ID, mug.ID, 1)
	require.NoError(t, err)
	_, err = cart.AddToCart(m.ctx, buyer.ID, plate.ID, 3)
	require.NoError(t, err)

	var payload map[string]interface{}
	events.On("Publish", services.EventPurchaseCreated, mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(1).(map[string]interface{}) }).
		Return(nil).Once()

	res, err := cart.Checkout(m.ctx, buyer.ID)
	require.NoError(t, err)
	assert.NoError(t, res.Warning)
	assert.NotEmpty(t, res.CheckoutID)
	assert.Equal(t, 25.0, res.Total)
	require.Len(t, res.Purchases, 2)
	for _, p := range res.Purchases {
		assert.Equal(t, res.CheckoutID, p.CheckoutID)
		assert.Equal(t, buyer.ID, p.UserID)
		assert.Equal(t, res.Purchases[0].PurchasedAt, p.PurchasedAt)
	}
	events.AssertExpectations(t)
	assert.Equal(t, res.CheckoutID, payload["checkoutID"])
	assert.Equal(t, 25.0, payload["total"])

	lines, err := cart.GetCart(m.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "the cart is cleared")

	history, err := cart.ListPurchases(m.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Later price changes do not touch recorded purchases.
	_, err = m.catalog.Update(m.ctx, seller.ID, mug.ID, services.ProductDraft{
		Name: "Mug", Description: mug.Description, Price: 99, Category: mug.Category,
	}, nil, nil)
	require.NoError(t, err)
	history, err = cart.ListPurchases(m.ctx, buyer.ID)
	require.NoError(t, err)
	for _, p := range history {
		if p.ProductID == mug.ID {
			assert.Equal(t, 10.0, p.Price)
			require.NotNil(t, p.Product)
			assert.Equal(t, 99.0, p.Product.Price)
		}
	}

	groups := models.GroupPurchases(history)
	require.Len(t, groups, 1)
	assert.Equal(t, 25.0, groups[0].Total)
}

func TestCartService_CheckoutHistoryNewestFirst(t *testing.T) {
	m := newMarketplace(t)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	first := m.listing(t, seller, "First", 1)
	second := m.listing(t, seller, "Second", 2)

	_, err := m.cart.AddToCart(m.ctx, buyer.ID, first.ID, 1)
	require.NoError(t, err)
	_, err = m.cart.Checkout(m.ctx, buyer.ID)
	require.NoError(t, err)
	_, err = m.cart.AddToCart(m.ctx, buyer.ID, second.ID, 1)
	require.NoError(t, err)
	_, err = m.cart.Checkout(m.ctx, buyer.ID)
	require.NoError(t, err)

	history, err := m.cart.ListPurchases(m.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Second", history[0].ProductName)
	assert.Equal(t, "First", history[1].ProductName)
	assert.Len(t, models.GroupPurchases(history), 2)
}

func TestCartService_CheckoutEmptyCart(t *testing.T) {
	m := newMarketplace(t)
	purchases := new(MockPurchaseRepository)
	cart := services.NewCartService(m.carts, m.products, purchases, nil)
	buyer := m.user(t, "buyer")

	res, err := cart.Checkout(m.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, res.CheckoutID)
	assert.Empty(t, res.Purchases)
	assert.Zero(t, res.Total)
	purchases.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)

	_, err = cart.Checkout(m.ctx, "")
	assert.ErrorIs(t, err, services.ErrNotSignedIn)
}

func TestCartService_CheckoutLedgerFailureKeepsCart(t *testing.T) {
	m := newMarketplace(t)
	purchases := new(MockPurchaseRepository)
	cart := services.NewCartService(m.carts, m.products, purchases, nil)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	p := m.listing(t, seller, "Vase", 30)

	_, err := cart.AddToCart(m.ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)

	purchases.On("CreateBatch", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	_, err = cart.Checkout(m.ctx, buyer.ID)
	assert.Error(t, err)
	purchases.AssertExpectations(t)

	lines, err := cart.GetCart(m.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1, "the cart is left as it was")
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCartService_CheckoutClearFailureIsAWarning(t *testing.T) {
	m := newMarketplace(t)
	carts := new(MockCartRepository)
	cart := services.NewCartService(carts, m.products, m.purchases, nil)
	seller := m.user(t, "seller")
	p := m.listing(t, seller, "Vase", 30)

	line := models.CartItem{ID: "line-1", UserID: "u1", ProductID: p.ID, Quantity: 2}
	carts.On("GetByUser", mock.Anything, "u1").Return([]models.CartItem{line}, nil).Once()
	carts.On("DeleteByIDs", mock.Anything, []string{"line-1"}).Return(errors.New("timeout")).Once()

	res, err := cart.Checkout(m.ctx, "u1")
	require.NoError(t, err, "the sale stands")
	require.Error(t, res.Warning)
	assert.Equal(t, 60.0, res.Total)
	carts.AssertExpectations(t)

	history, err := m.purchases.GetByUser(m.ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCartService_OrphanLines(t *testing.T) {
	m := newMarketplace(t)
	seller := m.user(t, "seller")
	buyer := m.user(t, "buyer")
	gone := m.listing(t, seller, "Gone", 5)
	kept := m.listing(t, seller, "Kept", 7)

	for _, p := range []*models.Product{gone, kept} {
		_, err := m.cart.AddToCart(m.ctx, buyer.ID, p.ID, 1)
		require.NoError(t, err)
	}
	// Deleted behind the catalog's back, so no cascade ran.
	require.NoError(t, m.products.Delete(m.ctx, gone.ID))

	lines, err := m.cart.GetCart(m.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, kept.ID, lines[0].ProductID)

	res, err := m.cart.Checkout(m.ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, res.Purchases, 1)
	assert.Equal(t, 7.0, res.Total)

	raw, err := m.carts.GetByUser(m.ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, raw, "orphan lines are dropped at checkout")
}
