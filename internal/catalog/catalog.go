package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

type Sort string

const (
	SortNewest    Sort = "Newest"
	SortPriceAsc  Sort = "Price: Low to High"
	SortPriceDesc Sort = "Price: High to Low"
	SortNameAsc   Sort = "Name: A-Z"

	AllCategories = "All Categories"
)

var sorts = []Sort{SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc}

// ParseSort accepts the display name or a short alias.
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest":
		return SortNewest, nil
	case "price", "price-asc":
		return SortPriceAsc, nil
	case "price-desc":
		return SortPriceDesc, nil
	case "name":
		return SortNameAsc, nil
	}
	for _, known := range sorts {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

type Query struct {
	Search   string
	Category string
	Sort     Sort
}

type Source interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

type Catalog struct {
	source Source
}

func New(source Source) *Catalog {
	return &Catalog{source: source}
}

func (c *Catalog) List(ctx context.Context, q Query) ([]domain.Product, error) {
	products, err := c.source.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return Filter(products, q), nil
}

// Filter matches the search text against name and brand, keeps one category
// unless AllCategories (or nothing) is asked for, and sorts. The input is not
// modified.
func Filter(products []domain.Product, q Query) []domain.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := strings.TrimSpace(q.Category)
	if category == AllCategories {
		category = ""
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Brand), search) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}

	slices.SortStableFunc(out, compareBy(q.Sort))
	return out
}

func compareBy(s Sort) func(a, b domain.Product) int {
	switch s {
	case SortPriceAsc:
		return func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		return func(a, b domain.Product) int { return b.Price.Cmp(a.Price) }
	case SortNameAsc:
		return func(a, b domain.Product) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	default:
		return func(a, b domain.Product) int { return cmp.Compare(b.ID, a.ID) }
	}
}

// Categories lists the distinct categories in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		key := strings.ToLower(p.Category)
		if p.Category == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
