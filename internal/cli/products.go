package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/cart-client/internal/catalog"
	"github.com/fjod/go_cart/cart-client/internal/domain"
)

func (a *app) productsCmd() *cobra.Command {
	var search, category, sortBy string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the product catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sort, err := catalog.ParseSort(sortBy)
			if err != nil {
				return err
			}

			list, err := catalog.New(a.client).List(cmd.Context(), catalog.Query{
				Search:   search,
				Category: category,
				Sort:     sort,
			})
			if err != nil {
				return a.fail("Failed to load products. Please try again.", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No products found. Try adjusting your search or filters.")
				return nil
			}

			tw := newTable(a.out, "ID", "NAME", "BRAND", "CATEGORY", "PRICE")
			for _, p := range list {
				tw.row(
					fmt.Sprint(p.ID),
					p.Name,
					p.Brand,
					p.Category,
					domain.Money{Amount: p.Price, Currency: a.currency}.String(),
				)
			}
			tw.flush()
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "match product name or brand")
	cmd.Flags().StringVarP(&category, "category", "c", catalog.AllCategories, "only this category")
	cmd.Flags().StringVar(&sortBy, "sort", string(catalog.SortNewest),
		`"Newest", "Price: Low to High", "Price: High to Low" or "Name: A-Z" (aliases: newest, price, price-desc, name)`)
	return cmd
}
