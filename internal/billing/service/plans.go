package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/streamgate/internal/billing/domain"
)

const (
	defaultPlanSort  = 999
	priceNotFound    = "Price not found"
	premiumNameToken = "premium"
)

// ListPlans builds the plan selection list from active products and prices.
func (s *Service) ListPlans(ctx context.Context) (domain.PlanList, error) {
	products, err := s.repo.ListActiveProducts(ctx)
	if err != nil {
		return domain.PlanList{}, err
	}
	if len(products) == 0 {
		return domain.PlanList{Plans: []domain.Plan{}, Notice: domain.NoticeNoPlans}, nil
	}

	ids := make([]string, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}
	prices, err := s.repo.ListActivePrices(ctx, ids)
	if err != nil {
		return domain.PlanList{}, err
	}
	byProduct := map[string][]domain.Price{}
	for _, price := range prices {
		byProduct[price.ProductID] = append(byProduct[price.ProductID], price)
	}

	plans := make([]domain.Plan, 0, len(products))
	for _, product := range products {
		plans = append(plans, buildPlan(product, byProduct[product.ID]))
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].SortOrder != plans[j].SortOrder {
			return plans[i].SortOrder < plans[j].SortOrder
		}
		return amountOf(plans[i]) < amountOf(plans[j])
	})
	markDefault(plans)

	return domain.PlanList{Plans: plans}, nil
}

// ResolvePrice accepts either a price id or a product id; a product resolves
// to its cheapest active price.
func (s *Service) ResolvePrice(ctx context.Context, planOrPriceID string) (*domain.Price, error) {
	id := strings.TrimSpace(planOrPriceID)
	if id == "" {
		return nil, domain.ErrPlanUnavailable
	}

	price, err := s.repo.FindPrice(ctx, id)
	if err != nil {
		return nil, err
	}
	if price != nil {
		if !price.Active {
			return nil, domain.ErrPlanUnavailable
		}
		return price, nil
	}

	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrPlanNotFound
	}
	if !product.Active {
		return nil, domain.ErrPlanUnavailable
	}
	prices, err := s.repo.ListActivePrices(ctx, []string{product.ID})
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, domain.ErrPlanUnavailable
	}
	return &prices[0], nil
}

func buildPlan(product domain.Product, prices []domain.Price) domain.Plan {
	plan := domain.Plan{
		ID:          product.ID,
		Slug:        slug.Make(product.Name),
		Name:        product.Name,
		Description: deref(product.Description),
		PriceLabel:  priceNotFound,
		Features:    readFeatures(product.Metadata),
		SortOrder:   readSort(product.Metadata),
	}
	if plan.Slug == "" {
		plan.Slug = slug.Make(product.ID)
	}
	if len(prices) == 0 {
		return plan
	}

	price := prices[0]
	plan.PriceID = price.ID
	plan.UnitAmount = price.UnitAmount
	plan.Currency = price.Currency
	plan.Available = true
	plan.PriceLabel = priceLabel(price)
	return plan
}

func priceLabel(price domain.Price) string {
	if price.UnitAmount == nil {
		return priceNotFound
	}
	return fmt.Sprintf("$%.2f / month", float64(*price.UnitAmount)/100)
}

func readFeatures(metadata map[string]any) domain.PlanFeatures {
	quality := metadataString(metadata, "quality")
	if quality == "" {
		quality = metadataString(metadata, "videoQuality")
	}
	return domain.PlanFeatures{
		Quality:    quality,
		Resolution: metadataString(metadata, "resolution"),
		Streams:    metadataString(metadata, "streams"),
		Downloads:  metadataString(metadata, "downloads"),
		Badge:      metadataString(metadata, "badge"),
	}
}

func readSort(metadata map[string]any) float64 {
	raw := metadataString(metadata, "sort")
	if raw == "" {
		return defaultPlanSort
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return defaultPlanSort
	}
	return value
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	switch cast := metadata[key].(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		return strconv.FormatFloat(cast, 'f', -1, 64)
	default:
		return ""
	}
}

func amountOf(plan domain.Plan) int64 {
	if plan.UnitAmount == nil {
		return 0
	}
	return *plan.UnitAmount
}

func markDefault(plans []domain.Plan) {
	if len(plans) == 0 {
		return
	}
	for i := range plans {
		if strings.Contains(strings.ToLower(plans[i].Name), premiumNameToken) {
			plans[i].DefaultSelected = true
			return
		}
	}
	plans[len(plans)-1].DefaultSelected = true
}
