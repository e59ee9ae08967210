package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"gorm.io/datatypes"
)

// PlanWriter is the subset of the billing repository the seeder writes through.
type PlanWriter interface {
	UpsertProduct(ctx context.Context, product *billingdomain.Product) error
	UpsertPrice(ctx context.Context, price *billingdomain.Price) error
}

type devPlan struct {
	key        string
	name       string
	amount     int64
	quality    string
	resolution string
	streams    string
	downloads  string
	badge      string
}

var devPlans = []devPlan{
	{key: "basic", name: "Basic", amount: 999, quality: "Good", resolution: "720p", streams: "1", downloads: "1"},
	{key: "standard", name: "Standard", amount: 1549, quality: "Better", resolution: "1080p", streams: "2", downloads: "2"},
	{key: "premium", name: "Premium", amount: 2299, quality: "Best", resolution: "4K+HDR", streams: "4", downloads: "6", badge: "Most Popular"},
}

// EnsureDevPlans upserts a fixed three-tier plan catalog for local use where
// no billing provider pushes products. Rerunning it restores the seeded rows.
func EnsureDevPlans(ctx context.Context, writer PlanWriter, now time.Time) (int, error) {
	if writer == nil {
		return 0, errors.New("seed plan writer is required")
	}
	now = now.UTC()

	for i, plan := range devPlans {
		productID := "prod_dev_" + plan.key
		description := fmt.Sprintf("%s streaming plan", plan.name)
		metadata := datatypes.JSONMap{
			"quality":    plan.quality,
			"resolution": plan.resolution,
			"streams":    plan.streams,
			"downloads":  plan.downloads,
			"sort":       fmt.Sprint(i + 1),
		}
		if plan.badge != "" {
			metadata["badge"] = plan.badge
		}

		if err := writer.UpsertProduct(ctx, &billingdomain.Product{
			ID:          productID,
			Name:        plan.name,
			Description: &description,
			Active:      true,
			Metadata:    metadata,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return i, fmt.Errorf("seed product %s: %w", productID, err)
		}

		amount := plan.amount
		interval := "month"
		nickname := plan.name + " monthly"
		if err := writer.UpsertPrice(ctx, &billingdomain.Price{
			ID:            "price_dev_" + plan.key,
			ProductID:     productID,
			Active:        true,
			Currency:      "usd",
			UnitAmount:    &amount,
			Nickname:      &nickname,
			Interval:      &interval,
			IntervalCount: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}); err != nil {
			return i, fmt.Errorf("seed price for %s: %w", productID, err)
		}
	}
	return len(devPlans), nil
}
