package main

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/3lprints/storefront/internal/models"
)

func seedProductsCmd(v *viper.Viper) *cobra.Command {
	var count int
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed-products",
		Short: "Insert fake catalog products for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > 1000 {
				return fmt.Errorf("count must be between 1 and 1000")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			gofakeit.Seed(seed)

			ctx := cmd.Context()
			a, err := openApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.Close()

			for i := 0; i < count; i++ {
				p := fakeProduct()
				if err := a.Repos.Products.Create(ctx, p); err != nil {
					return fmt.Errorf("product %d: %w", i+1, err)
				}
				fmt.Printf("%-40s %8.0f  /%s\n", p.Name, p.Price, p.Slug)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of products")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	return cmd
}

func fakeProduct() *models.Product {
	images := make([]string, gofakeit.Number(1, 4))
	for i := range images {
		images[i] = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	discount := 0.0
	if gofakeit.Number(1, 4) == 1 {
		discount = float64(gofakeit.Number(5, 40))
	}

	return &models.Product{
		Name:            "3D Printed " + gofakeit.ProductName(),
		Description:     gofakeit.ProductDescription(),
		Price:           math.Round(gofakeit.Price(149, 4999)),
		DiscountPercent: discount,
		Stock:           gofakeit.Number(0, 120),
		Images:          models.JSON[[]string]{V: images},
		IsCustomizable:  gofakeit.Bool(),
		IsActive:        true,
	}
}
