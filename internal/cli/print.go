package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"ecofinds/internal/models"
)

func (rt *runtime) printf(format string, args ...interface{}) {
	fmt.Fprintf(rt.out, format, args...)
}

// emit prints v as JSON when --json is set and otherwise calls text.
func (rt *runtime) emit(v interface{}, text func()) error {
	if !rt.jsonOut {
		text()
		return nil
	}
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (rt *runtime) table(header string, rows [][]string) {
	w := tabwriter.NewWriter(rt.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func sellerName(p models.Product) string {
	if p.Seller == nil {
		return "unknown"
	}
	return p.Seller.Username
}

func (rt *runtime) printProducts(products []models.Product) {
	if len(products) == 0 {
		rt.printf("No products found.\n")
		return
	}
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{p.ID, p.Name, p.Category, money(p.Price), sellerName(p)})
	}
	rt.table("ID\tNAME\tCATEGORY\tPRICE\tSELLER", rows)
}

func (rt *runtime) printProduct(p *models.Product) {
	rt.printf("%s\n", p.Name)
	rt.printf("  id:        %s\n", p.ID)
	rt.printf("  price:     %s\n", money(p.Price))
	rt.printf("  category:  %s\n", p.Category)
	rt.printf("  seller:    %s\n", sellerName(*p))
	for _, img := range p.Images {
		rt.printf("  image:     %s\n", img)
	}
	if p.Description != "" {
		rt.printf("\n  %s\n", p.Description)
	}
}

func (rt *runtime) printUser(u *models.User) {
	rt.printf("%s <%s>\n", u.Username, u.Email)
	rt.printf("  id:      %s\n", u.ID)
	if u.Gender != "" {
		rt.printf("  gender:  %s\n", u.Gender)
	}
	if u.Address != "" {
		rt.printf("  address: %s\n", u.Address)
	}
	if u.AvatarURL != "" {
		rt.printf("  avatar:  %s\n", u.AvatarURL)
	}
	if u.Bio != "" {
		rt.printf("  bio:     %s\n", u.Bio)
	}
}

func (rt *runtime) printCart(items []models.CartItem) {
	if len(items) == 0 {
		rt.printf("Your cart is empty.\n")
		return
	}
	total := 0.0
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		name := it.ProductID
		price := 0.0
		if it.Product != nil {
			name, price = it.Product.Name, it.Product.Price
		}
		total += it.Subtotal()
		rows = append(rows, []string{it.ID, name, fmt.Sprint(it.Quantity), money(price), money(it.Subtotal())})
	}
	rt.table("ITEM\tPRODUCT\tQTY\tPRICE\tSUBTOTAL", rows)
	rt.printf("Total: %s\n", money(total))
}

func (rt *runtime) printPurchaseGroups(groups []models.PurchaseGroup) {
	if len(groups) == 0 {
		rt.printf("No purchases yet.\n")
		return
	}
	for _, g := range groups {
		rt.printf("%s  %s  total %s\n", g.PurchasedAt.Local().Format("2006-01-02 15:04"), g.CheckoutID, money(g.Total))
		for _, p := range g.Items {
			rt.printf("    %d x %s @ %s\n", p.Quantity, p.ProductName, money(p.Price))
		}
	}
}

func (rt *runtime) printPurchases(purchases []models.Purchase) {
	if len(purchases) == 0 {
		rt.printf("No purchases yet.\n")
		return
	}
	rows := make([][]string, 0, len(purchases))
	for _, p := range purchases {
		rows = append(rows, []string{
			p.PurchasedAt.Local().Format("2006-01-02 15:04"),
			p.ProductName,
			fmt.Sprint(p.Quantity),
			money(p.Price),
			money(p.Total()),
		})
	}
	rt.table("DATE\tPRODUCT\tQTY\tPRICE\tTOTAL", rows)
}
