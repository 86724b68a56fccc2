// Package catalog describes the products a coverage provider serves and how
// layer identifiers map onto them.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownProduct = errors.New("catalog: unknown product")

// Product is one soil property. Unit is nil for categorical products.
type Product struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Unit        *string `json:"unit"`
}

type Catalog struct {
	products map[string]Product
	order    []string
}

func New(products ...Product) *Catalog {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if _, dup := c.products[p.Code]; !dup {
			c.order = append(c.order, p.Code)
		}
		c.products[p.Code] = p
	}
	sort.Strings(c.order)
	return c
}

// ProductCode returns the part of layer before the first underscore.
func ProductCode(layer string) string {
	code, _, _ := strings.Cut(layer, "_")
	return code
}

// Lookup resolves a layer id such as "soc_0-5cm_mean" to its product.
func (c *Catalog) Lookup(layer string) (Product, error) {
	code := ProductCode(layer)
	p, ok := c.products[code]
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, code)
	}
	return p, nil
}

func (c *Catalog) Product(code string) (Product, bool) {
	p, ok := c.products[code]
	return p, ok
}

// Products returns all products ordered by code.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.products[code])
	}
	return out
}

// UnitString renders a nil unit as the empty string.
func (p Product) UnitString() string {
	if p.Unit == nil {
		return ""
	}
	return *p.Unit
}
