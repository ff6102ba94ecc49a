package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"booking-system/internal/clock"
	"booking-system/internal/config"
	"booking-system/internal/logger"
	"booking-system/internal/models"
	"booking-system/internal/repository"
	"booking-system/internal/services"
)

// quoteFixture описание офлайн-расчёта: ресурс, промокоды и запрос.
// ResourceID в запросе подставляется автоматически.
type quoteFixture struct {
	Now        *time.Time                      `json:"now,omitempty"`
	Resource   models.CreateResourceRequest    `json:"resource"`
	PromoCodes []models.CreatePromoCodeRequest `json:"promo_codes,omitempty"`
	Request    models.QuoteRequest             `json:"request"`
}

func quoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a booking from a fixture file using in-memory storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("fixture")
			commit, _ := cmd.Flags().GetBool("commit")

			fixture, err := loadFixture(path)
			if err != nil {
				return err
			}

			quote, err := runQuote(cmd.Context(), fixture, commit)
			if err != nil {
				return err
			}
			return writeQuote(cmd.OutOrStdout(), quote)
		},
	}

	cmd.Flags().String("fixture", "", "Path to a JSON fixture")
	cmd.Flags().Bool("commit", false, "Apply the promo code as a checkout instead of a preview")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

func loadFixture(path string) (*quoteFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var fixture quoteFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &fixture, nil
}

func runQuote(ctx context.Context, fixture *quoteFixture, commit bool) (*models.PriceQuote, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "text"})

	var clk clock.Clock = clock.NewRealClock()
	if fixture.Now != nil {
		clk = clock.NewMockClock(fixture.Now.UTC())
	}

	resources := services.NewResourceService(repository.NewMemoryResourceRepository(), nil, nil, log, clk, 0)
	promos := services.NewPromoService(repository.NewMemoryPromoRepository(), nil, nil, log, clk, nil)
	checkout := services.NewCheckoutService(services.NewPricingService(resources, log, 0), promos, nil, log)

	res, err := resources.CreateResource(ctx, &fixture.Resource)
	if err != nil {
		return nil, fmt.Errorf("fixture resource: %w", err)
	}
	for i := range fixture.PromoCodes {
		if _, err := promos.CreatePromoCode(ctx, &fixture.PromoCodes[i]); err != nil {
			return nil, fmt.Errorf("fixture promo code %q: %w", fixture.PromoCodes[i].Code, err)
		}
	}

	req := fixture.Request
	req.ResourceID = res.ID
	if commit {
		return checkout.Checkout(ctx, &req)
	}
	return checkout.Quote(ctx, &req)
}

func writeQuote(w io.Writer, quote *models.PriceQuote) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(quote)
}
