package cart

import (
	"fmt"
	"io"

	"github.com/noah-isme/toko-cart/internal/catalog"
)

// RenderProducts prints the catalog listing shown before shopping starts.
func RenderProducts(w io.Writer, heading string, products []catalog.Product) {
	fmt.Fprintln(w, heading)
	fmt.Fprintln(w, "----------------------")
	for _, p := range products {
		fmt.Fprintf(w, "%s: $%s\n", p.Title, p.Price.String())
	}
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintln(w)
}

// RenderSnapshot prints cart contents followed by the totals block.
func RenderSnapshot(w io.Writer, heading string, s Snapshot) {
	fmt.Fprintln(w, heading)
	fmt.Fprintln(w, "-------------------")
	for _, it := range s.Items {
		fmt.Fprintf(w, "%s: %d x $%s\n", it.Title, it.Quantity, it.Price.String())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cart Totals:")
	fmt.Fprintf(w, "Subtotal = $%s\n", s.Subtotal.String())
	fmt.Fprintf(w, "Tax = $%s\n", s.Tax.String())
	fmt.Fprintf(w, "Total = $%s\n", s.Total.String())
}
