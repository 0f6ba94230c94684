package services_test

import (
	"context"
	"testing"

	"ecofinds/internal/blob"
	"ecofinds/internal/models"
	"ecofinds/internal/repositories"
	"ecofinds/internal/services"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// marketplace wires the services over in-memory repositories and an
// in-memory upload directory.
type marketplace struct {
	ctx       context.Context
	fs        afero.Fs
	blobs     *blob.FSStore
	users     *repositories.MockUserRepository
	products  *repositories.MockProductRepository
	carts     *repositories.MockCartRepository
	purchases *repositories.MockPurchaseRepository
	catalog   *services.CatalogService
	cart      *services.CartService
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	m := &marketplace{
		ctx:       context.Background(),
		fs:        afero.NewMemMapFs(),
		users:     repositories.NewMockUserRepository(),
		products:  repositories.NewMockProductRepository(),
		carts:     repositories.NewMockCartRepository(),
		purchases: repositories.NewMockPurchaseRepository(),
	}
	m.blobs = blob.NewFSStore(m.fs, "/uploads", "http://localhost:8080/uploads")
	m.catalog = services.NewCatalogService(m.products, m.users, m.carts, m.blobs, nil)
	m.cart = services.NewCartService(m.carts, m.products, m.purchases, nil)
	return m
}

func (m *marketplace) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, m.users.Create(m.ctx, u))
	return u
}

func (m *marketplace) listing(t *testing.T, seller *models.User, name string, price float64) *models.Product {
	t.Helper()
	p, err := m.catalog.Create(m.ctx, seller.ID, services.ProductDraft{
		Name:        name,
		Description: name + " in good condition",
		Price:       price,
		Category:    models.CategoryOther,
	}, []services.Upload{{Filename: "photo.png", Data: pngBytes}})
	require.NoError(t, err)
	return p
}

func (m *marketplace) blobExists(t *testing.T, url string) bool {
	t.Helper()
	p, ok := m.blobs.PathFromURL(url)
	require.True(t, ok, "not a local upload: %s", url)
	exists, err := afero.Exists(m.fs, "/uploads/"+p)
	require.NoError(t, err)
	return exists
}

func png() []services.Upload {
	return []services.Upload{{Filename: "photo.png", Data: pngBytes}}
}
