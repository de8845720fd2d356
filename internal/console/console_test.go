package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/console"
)

type fakeCatalog map[string]catalog.Product

func (f fakeCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f fakeCatalog) Products(context.Context) ([]catalog.Product, error) {
	return []catalog.Product{f["cornflakes"], f["shreddies"], f["weetabix"]}, nil
}

type brokenLister struct{}

func (brokenLister) Products(context.Context) ([]catalog.Product, error) {
	return nil, errors.New("catalog: list products: connection refused")
}

func breakfast() fakeCatalog {
	d := decimal.RequireFromString
	return fakeCatalog{
		"cornflakes": {ID: "cornflakes", Title: "Corn Flakes", Price: d("2.52")},
		"shreddies":  {ID: "shreddies", Title: "Shreddies", Price: d("4.68")},
		"weetabix":   {ID: "weetabix", Title: "Weetabix", Price: d("9.98")},
	}
}

func streams(in string) (console.Streams, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return console.Streams{In: strings.NewReader(in), Out: &out, Err: &errOut}, &out, &errOut
}

func TestDemoPrintsFinalCart(t *testing.T) {
	cat := breakfast()
	s, out, errOut := streams("")

	err := console.Demo(context.Background(), s, cart.New(cart.WithLookup(cat)), cat, console.DemoScript)
	require.NoError(t, err)
	require.Empty(t, errOut.String())

	want := "All Available Products:\n" +
		"----------------------\n" +
		"Corn Flakes: $2.52\n" +
		"Shreddies: $4.68\n" +
		"Weetabix: $9.98\n" +
		"----------------------\n\n" +
		"1. Added cornflakes (Quantity: 1)\n" +
		"2. Added shreddies (Quantity: 1)\n" +
		"3. Added weetabix (Quantity: 1)\n" +
		"4. Added weetabix (Quantity: 3)\n" +
		"\n" +
		"Final Cart Contents:\n" +
		"-------------------\n" +
		"Corn Flakes: 1 x $2.52\n" +
		"Shreddies: 1 x $4.68\n" +
		"Weetabix: 4 x $9.98\n" +
		"\n" +
		"Cart Totals:\n" +
		"Subtotal = $47.12\n" +
		"Tax = $5.89\n" +
		"Total = $53.01\n"
	require.Equal(t, want, out.String())
}

func TestDemoStopsAtFirstError(t *testing.T) {
	cat := breakfast()
	delete(cat, "shreddies")
	s, out, errOut := streams("")

	err := console.Demo(context.Background(), s, cart.New(cart.WithLookup(cat)), cat, console.DemoScript)
	require.Error(t, err)
	require.Equal(t, "Error: Failed to add product: Product not found: shreddies\n", errOut.String())
	require.NotContains(t, out.String(), "Final Cart Contents:")
}

func TestShopLoopUntilDone(t *testing.T) {
	cat := breakfast()
	input := "Cornflakes\n2\nagain\nweetabix\nzero\nweetabix\n1\ndone\n"
	s, out, errOut := streams(input)

	c := cart.New(cart.WithLookup(cat))
	require.NoError(t, console.Shop(context.Background(), s, c, cat))
	require.Empty(t, errOut.String())

	text := out.String()
	require.True(t, strings.HasPrefix(text, "Shopping Cart Example\n\nAll Available Products:\n"))
	require.Contains(t, text, "Please enter a valid quantity!\n")
	require.Contains(t, text, "Corn Flakes: 2 x $2.52\n")
	require.Equal(t, 3, strings.Count(text, "Current Cart Contents:"))
	require.True(t, strings.HasSuffix(text, "Total = $16.9\n\n"), text)

	snap := c.State()
	require.Len(t, snap.Items, 2)
	require.Equal(t, "cornflakes", snap.Items[0].ID)
}

func TestShopErrorEndsLoopAndShowsCart(t *testing.T) {
	cat := breakfast()
	input := "cornflakes\n1\nmore\ngranola\n1\nweetabix\n1\ndone\n"
	s, out, errOut := streams(input)

	c := cart.New(cart.WithLookup(cat))
	err := console.Shop(context.Background(), s, c, cat)
	require.Error(t, err)
	require.Equal(t, "Error: Failed to add product: Product not found: granola\n", errOut.String())
	require.True(t, strings.HasSuffix(out.String(), "Total = $2.84\n\n"), out.String())
	require.Equal(t, 1, c.Len())
}

func TestShopEndOfInputFinishes(t *testing.T) {
	cat := breakfast()
	s, out, _ := streams("shreddies\n3")

	c := cart.New(cart.WithLookup(cat))
	require.NoError(t, console.Shop(context.Background(), s, c, cat))
	require.Contains(t, out.String(), "Shreddies: 3 x $4.68\n")
	require.Equal(t, 3, c.State().Items[0].Quantity)
}

func TestShopListingFailure(t *testing.T) {
	s, out, errOut := streams("")
	err := console.Shop(context.Background(), s, cart.New(cart.WithLookup(breakfast())), brokenLister{})
	require.Error(t, err)
	require.Equal(t, "Error: catalog: list products: connection refused\n", errOut.String())
	require.Equal(t, "Shopping Cart Example\n", out.String())
}
