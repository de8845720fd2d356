// Package console runs the terminal shopping flows behind cmd/demo and cmd/shop.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
)

// Streams bundles the terminal endpoints.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// DemoStep is one scripted add.
type DemoStep struct {
	ProductID string
	Quantity  int
}

// DemoScript is the fixed sequence cmd/demo adds.
var DemoScript = []DemoStep{
	{ProductID: "cornflakes", Quantity: 1},
	{ProductID: "shreddies", Quantity: 1},
	{ProductID: "weetabix", Quantity: 1},
	{ProductID: "weetabix", Quantity: 3},
}

// Demo lists the catalog, adds script to c and prints the final cart. The
// first failure is printed as "Error: <message>" and returned.
func Demo(ctx context.Context, s Streams, c *cart.Cart, products catalog.Lister, script []DemoStep) error {
	list, err := products.Products(ctx)
	if err != nil {
		return report(s, err)
	}
	cart.RenderProducts(s.Out, "All Available Products:", list)

	for i, step := range script {
		fmt.Fprintf(s.Out, "%d. Added %s (Quantity: %d)\n", i+1, step.ProductID, step.Quantity)
		if _, err := c.AddProduct(ctx, step.ProductID, step.Quantity); err != nil {
			return report(s, err)
		}
	}

	fmt.Fprintln(s.Out)
	cart.RenderSnapshot(s.Out, "Final Cart Contents:", c.State())
	return nil
}

// Shop runs the interactive loop: prompt for a product and a quantity, add
// it, show the cart, repeat until the user types "done" or input ends. An
// add failure ends the loop; the final cart is printed either way.
func Shop(ctx context.Context, s Streams, c *cart.Cart, products catalog.Lister) error {
	fmt.Fprintln(s.Out, "Shopping Cart Example")
	list, err := products.Products(ctx)
	if err != nil {
		return report(s, err)
	}
	fmt.Fprintln(s.Out)
	cart.RenderProducts(s.Out, "All Available Products:", list)

	p := prompter{r: bufio.NewReader(s.In), w: s.Out}
	addErr := shopLoop(ctx, s, p, c)

	showCart(s.Out, c.State())
	return addErr
}

func shopLoop(ctx context.Context, s Streams, p prompter, c *cart.Cart) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, ok := p.ask("Enter product name: ")
		if !ok {
			return nil
		}
		rawQty, ok := p.ask("Enter quantity: ")
		if !ok {
			return nil
		}
		qty, err := cart.ParseQuantity(rawQty)
		if err != nil {
			fmt.Fprintln(s.Out, "Please enter a valid quantity!")
			fmt.Fprintln(s.Out)
			continue
		}

		snap, err := c.AddProduct(ctx, strings.ToLower(name), qty)
		if err != nil {
			return report(s, err)
		}
		showCart(s.Out, snap)

		answer, ok := p.ask(`Type "done" to finish or any other key to continue shopping: `)
		if !ok || strings.EqualFold(answer, "done") {
			return nil
		}
	}
}

func showCart(w io.Writer, snap cart.Snapshot) {
	fmt.Fprintln(w)
	cart.RenderSnapshot(w, "Current Cart Contents:", snap)
	fmt.Fprintln(w)
}

func report(s Streams, err error) error {
	fmt.Fprintf(s.Err, "Error: %s\n", err.Error())
	return err
}

type prompter struct {
	r *bufio.Reader
	w io.Writer
}

// ask prints question and reads one line without its terminator. ok is false
// once input is exhausted and nothing was typed.
func (p prompter) ask(question string) (string, bool) {
	fmt.Fprint(p.w, question)
	line, err := p.r.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, true
		}
		fmt.Fprintln(p.w)
		return "", false
	}
	return line, true
}
