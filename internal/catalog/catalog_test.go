package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

func product(id int64, name, brand, category, price string) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     name,
		Brand:    brand,
		Category: category,
		Price:    decimal.RequireFromString(price),
	}
}

var fixture = []domain.Product{
	product(1, "Whey Protein", "Optimum", "Supplements", "2499"),
	product(2, "adjustable Bench", "IronCo", "Equipment", "8999.50"),
	product(3, "Creatine", "MuscleBlaze", "supplements", "899"),
	product(4, "Lifting Straps", "IronCo", "Accessories", "349"),
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []int64
	}{
		{name: "default is newest first", query: Query{}, want: []int64{4, 3, 2, 1}},
		{name: "search matches name", query: Query{Search: "whey"}, want: []int64{1}},
		{name: "search matches brand", query: Query{Search: "ironco"}, want: []int64{4, 2}},
		{name: "category ignores case", query: Query{Category: "SUPPLEMENTS"}, want: []int64{3, 1}},
		{name: "all categories", query: Query{Category: AllCategories}, want: []int64{4, 3, 2, 1}},
		{name: "price ascending", query: Query{Sort: SortPriceAsc}, want: []int64{4, 3, 1, 2}},
		{name: "price descending", query: Query{Sort: SortPriceDesc}, want: []int64{2, 1, 3, 4}},
		{name: "name a-z", query: Query{Sort: SortNameAsc}, want: []int64{2, 3, 4, 1}},
		{name: "no match", query: Query{Search: "kettlebell"}, want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(fixture, tt.query)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	in := make([]domain.Product, 0, 20)
	for i := range 20 {
		in = append(in, domain.Product{
			ID:    int64(i + 1),
			Name:  gofakeit.ProductName(),
			Brand: gofakeit.Company(),
			Price: decimal.NewFromFloat(gofakeit.Price(10, 10000)).Round(2),
		})
	}
	before := ids(in)

	out := Filter(in, Query{Sort: SortPriceAsc})

	assert.Equal(t, before, ids(in))
	require.Len(t, out, 20)
	for i := 1; i < len(out); i++ {
		assert.True(t, out[i-1].Price.LessThanOrEqual(out[i].Price))
	}
}

func TestParseSort(t *testing.T) {
	for in, want := range map[string]Sort{
		"":                   SortNewest,
		"price":              SortPriceAsc,
		"price-desc":         SortPriceDesc,
		"Name: A-Z":          SortNameAsc,
		"price: high to low": SortPriceDesc,
	} {
		got, err := ParseSort(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSort("rating")
	assert.Error(t, err)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Supplements", "Equipment", "Accessories"}, Categories(fixture))
}

type sourceFunc func(ctx context.Context) ([]domain.Product, error)

func (f sourceFunc) Products(ctx context.Context) ([]domain.Product, error) { return f(ctx) }

func TestList(t *testing.T) {
	c := New(sourceFunc(func(context.Context) ([]domain.Product, error) { return fixture, nil }))

	got, err := c.List(context.Background(), Query{Search: "strap"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(got))

	boom := errors.New("boom")
	c = New(sourceFunc(func(context.Context) ([]domain.Product, error) { return nil, boom }))
	_, err = c.List(context.Background(), Query{})
	assert.ErrorIs(t, err, boom)
}
