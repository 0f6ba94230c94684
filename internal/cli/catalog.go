package cli

import (
	"fmt"
	"path/filepath"

	"ecofinds/internal/models"
	"ecofinds/internal/services"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newProductsCommand(rt *runtime) *cobra.Command {
	var search, category string
	var mine bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var products []models.Product
			if mine {
				c, err := rt.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.listings.Err(); err != nil {
					return err
				}
				products = c.listings.Data()
			} else {
				a, err := rt.open(cmd.Context())
				if err != nil {
					return err
				}
				products, err = a.Catalog.List(cmd.Context())
				if err != nil {
					return err
				}
			}
			products = services.FilterProducts(products, search, category)
			return rt.emit(products, func() { rt.printProducts(products) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&search, "search", "", "Only names containing this text")
	f.StringVar(&category, "category", models.CategoryAll, "Only this category")
	f.BoolVar(&mine, "mine", false, "Only your own listings")

	cmd.AddCommand(
		newProductShowCommand(rt),
		newProductEditCommand(rt),
		newProductDeleteCommand(rt),
		newCategoriesCommand(rt),
	)
	return cmd
}

func newCategoriesCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range models.Categories {
				rt.printf("%s\n", c)
			}
			return nil
		},
	}
}

func newProductShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.Catalog.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.emit(p, func() { rt.printProduct(p) })
		},
	}
}

// readImages loads image files named on the command line.
func (rt *runtime) readImages(paths []string) ([]services.Upload, error) {
	uploads := make([]services.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(rt.fs, p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		uploads = append(uploads, services.Upload{Filename: filepath.Base(p), Data: data})
	}
	return uploads, nil
}

func newSellCommand(rt *runtime) *cobra.Command {
	var draft services.ProductDraft
	var images []string
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "List an item for sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			uploads, err := rt.readImages(images)
			if err != nil {
				return err
			}
			p, err := c.Catalog.Create(cmd.Context(), c.holder.UserID(), draft, uploads)
			if err != nil {
				return err
			}
			return rt.emit(p, func() {
				rt.printf("Listed %s for %s (id %s).\n", p.Name, money(p.Price), p.ID)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&draft.Name, "name", "", "Title of the listing")
	f.StringVar(&draft.Description, "description", "", "Description")
	f.Float64Var(&draft.Price, "price", 0, "Price")
	f.StringVar(&draft.Category, "category", models.CategoryOther, "Category")
	f.StringArrayVar(&images, "image", nil, "Image file (repeatable, at least one)")
	return cmd
}

func newProductEditCommand(rt *runtime) *cobra.Command {
	var added, removed []string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			current, err := c.Catalog.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			// Unset flags keep the listing's current values.
			draft := services.ProductDraft{
				Name:        current.Name,
				Description: current.Description,
				Price:       current.Price,
				Category:    current.Category,
			}
			f := cmd.Flags()
			if f.Changed("name") {
				draft.Name, _ = f.GetString("name")
			}
			if f.Changed("description") {
				draft.Description, _ = f.GetString("description")
			}
			if f.Changed("price") {
				draft.Price, _ = f.GetFloat64("price")
			}
			if f.Changed("category") {
				draft.Category, _ = f.GetString("category")
			}

			uploads, err := rt.readImages(added)
			if err != nil {
				return err
			}
			p, err := c.Catalog.Update(cmd.Context(), c.holder.UserID(), args[0], draft, uploads, removed)
			if err != nil {
				return err
			}
			return rt.emit(p, func() { rt.printProduct(p) })
		},
	}
	f := cmd.Flags()
	f.String("name", "", "New title")
	f.String("description", "", "New description")
	f.Float64("price", 0, "New price")
	f.String("category", "", "New category")
	f.StringArrayVar(&added, "add-image", nil, "Image file to add (repeatable)")
	f.StringArrayVar(&removed, "remove-image", nil, "Image URL to remove (repeatable)")
	return cmd
}

func newProductDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.Catalog.Delete(cmd.Context(), c.holder.UserID(), args[0])
			if err != nil {
				return err
			}
			rt.printf("Deleted listing %s.\n", args[0])
			if res.CartLinesRemoved > 0 {
				rt.printf("Removed it from %d cart(s).\n", res.CartLinesRemoved)
			}
			for _, w := range res.Warnings {
				rt.printf("warning: %v\n", w)
			}
			return nil
		},
	}
}
