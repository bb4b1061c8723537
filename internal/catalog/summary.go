package catalog

import (
	"fmt"
	"strings"

	"dinein-system/internal/database/models"
)

// Summarize renders the menu as plain text, one product per line grouped by
// category, stopping after maxItems products. maxItems <= 0 means no bound.
func Summarize(menu *Menu, maxItems int) string {
	if menu == nil {
		return ""
	}

	var b strings.Builder
	written := 0
	full := func() bool { return maxItems > 0 && written >= maxItems }

	writeProducts := func(title string, products []models.Product) {
		if len(products) == 0 || full() {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, p := range products {
			if full() {
				return
			}
			fmt.Fprintf(&b, "- %s %s %s", p.Name, p.BasePrice.StringFixed(2), menu.Restaurant.Currency)
			if len(p.Variants) > 0 {
				names := make([]string, len(p.Variants))
				for i, v := range p.Variants {
					names[i] = v.Name
				}
				fmt.Fprintf(&b, " (%s)", strings.Join(names, ", "))
			}
			b.WriteString("\n")
			written++
		}
	}

	for _, c := range menu.Categories {
		writeProducts(c.Name, c.Products)
	}
	writeProducts("Other", menu.Uncategorized)

	if full() && total(menu) > written {
		fmt.Fprintf(&b, "...and %d more\n", total(menu)-written)
	}
	return strings.TrimRight(b.String(), "\n")
}

func total(menu *Menu) int {
	n := len(menu.Uncategorized)
	for _, c := range menu.Categories {
		n += len(c.Products)
	}
	return n
}
