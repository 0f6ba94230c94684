package storage

import (
	"context"
	"errors"
	"fmt"

	"ecofinds/internal/models"
	"ecofinds/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DemoSellerEmail identifies the account that owns the demo catalog.
const DemoSellerEmail = "demo@ecofinds.local"

var demoProducts = []models.Product{
	{Name: "Vintage Leather Sofa", Description: "A beautiful and comfortable vintage leather sofa, perfect for any living room. Minor wear consistent with age.", Price: 450, Category: models.CategoryFurniture, Images: []string{"https://picsum.photos/seed/sofa/600/400"}},
	{Name: "Retro Polaroid Camera", Description: "Classic Polaroid 600 instant camera. Tested and working. A great item for photography enthusiasts.", Price: 75, Category: models.CategoryElectronics, Images: []string{"https://picsum.photos/seed/camera/600/400"}},
	{Name: "Classic Denim Jacket", Description: "A timeless denim jacket in great condition. Size Medium. No stains or tears.", Price: 40, Category: models.CategoryClothing, Images: []string{"https://picsum.photos/seed/jacket/600/400"}},
	{Name: "Hardcover Novel Set", Description: "A collection of 5 popular hardcover novels. All in excellent, like-new condition.", Price: 25, Category: models.CategoryBooks, Images: []string{"https://picsum.photos/seed/books/600/400"}},
	{Name: "Antique Wooden Chair", Description: "Hand-carved wooden chair with intricate details. A stunning accent piece. Structurally sound.", Price: 120, Category: models.CategoryFurniture, Images: []string{"https://picsum.photos/seed/chair/600/400"}},
	{Name: "Modern Coffee Maker", Description: "Barely used drip coffee maker with a thermal carafe. Makes great coffee. Clean and descaled.", Price: 35, Category: models.CategoryHomeGoods, Images: []string{"https://picsum.photos/seed/coffee/600/400"}},
}

// Seed creates the demo seller and its listings unless the seller already
// has listings. It returns the number of listings created.
func Seed(ctx context.Context, repos *Repositories) (int, error) {
	seller, err := repos.Users.GetByEmail(ctx, DemoSellerEmail)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return 0, err
	}
	if err != nil {
		seller = &models.User{
			Username: "EcoFindsDemo",
			Email:    DemoSellerEmail,
			// Not a bcrypt hash, so nobody can sign in as the demo seller.
			PasswordHash: "!" + uuid.New().String(),
		}
		if err := repos.Users.Create(ctx, seller); err != nil {
			return 0, fmt.Errorf("create demo seller: %w", err)
		}
	}

	existing, err := repos.Products.GetBySeller(ctx, seller.ID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, p := range demoProducts {
		product := p
		product.SellerID = seller.ID
		product.Images = append([]string(nil), p.Images...)
		if err := repos.Products.Create(ctx, &product); err != nil {
			logrus.WithError(err).WithField("name", product.Name).Error("Error seeding product")
			continue
		}
		logrus.WithFields(logrus.Fields{"name": product.Name, "id": product.ID}).Info("Seeded product")
		created++
	}
	return created, nil
}
