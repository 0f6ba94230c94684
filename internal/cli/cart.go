package cli

import (
	"fmt"
	"strconv"

	"ecofinds/internal/models"

	"github.com/spf13/cobra"
)

func newCartCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show your cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.cart.Err(); err != nil {
				return err
			}
			items := c.cart.Data()
			return rt.emit(items, func() { rt.printCart(items) })
		},
	}
	cmd.AddCommand(
		newCartAddCommand(rt),
		newCartSetCommand(rt),
		newCartRemoveCommand(rt),
		newCartClearCommand(rt),
	)
	return cmd
}

// showCart refreshes the cart view after a change and prints it.
func (rt *runtime) showCart(cmd *cobra.Command, c *client) error {
	if err := c.cart.Refresh(cmd.Context()); err != nil {
		return err
	}
	items := c.cart.Data()
	return rt.emit(items, func() { rt.printCart(items) })
}

func newCartAddCommand(rt *runtime) *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to your cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := c.Cart.AddToCart(cmd.Context(), c.holder.UserID(), args[0], qty); err != nil {
				return err
			}
			return rt.showCart(cmd, c)
		},
	}
	cmd.Flags().IntVarP(&qty, "quantity", "q", 1, "Units to add")
	return cmd
}

func newCartSetCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set <item-id> <quantity>",
		Short: "Change a line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a whole number: %q", args[1])
			}
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := c.Cart.UpdateQuantity(cmd.Context(), c.holder.UserID(), args[0], qty); err != nil {
				return err
			}
			return rt.showCart(cmd, c)
		},
	}
}

func newCartRemoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a line from your cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Cart.RemoveItem(cmd.Context(), c.holder.UserID(), args[0]); err != nil {
				return err
			}
			return rt.showCart(cmd, c)
		},
	}
}

func newCartClearCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty your cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Cart.ClearCart(cmd.Context(), c.holder.UserID()); err != nil {
				return err
			}
			return rt.showCart(cmd, c)
		},
	}
}

func newCheckoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Buy everything in your cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.Cart.Checkout(cmd.Context(), c.holder.UserID())
			if err != nil {
				return err
			}
			return rt.emit(res, func() {
				if res.CheckoutID == "" {
					rt.printf("Your cart is empty.\n")
					return
				}
				rt.printf("Purchased %d item(s) for %s.\n", len(res.Purchases), money(res.Total))
				if res.Warning != nil {
					rt.printf("warning: %v\n", res.Warning)
				}
			})
		},
	}
}

func newPurchasesCommand(rt *runtime) *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "purchases",
		Short: "Show your purchase history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.purchases.Err(); err != nil {
				return err
			}
			purchases := c.purchases.Data()
			if grouped {
				groups := models.GroupPurchases(purchases)
				return rt.emit(groups, func() { rt.printPurchaseGroups(groups) })
			}
			return rt.emit(purchases, func() { rt.printPurchases(purchases) })
		},
	}
	cmd.Flags().BoolVar(&grouped, "grouped", true, "Group lines by checkout")
	return cmd
}
