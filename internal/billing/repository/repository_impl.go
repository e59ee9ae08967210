package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/streamgate/internal/billing/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultEventPageSize = 50

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

// ListSubscriptions returns records newest first; ties on created fall back to id.
func (r *repo) ListSubscriptions(ctx context.Context, principalID string) ([]domain.SubscriptionRecord, error) {
	var items []domain.SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("created DESC").
		Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpsertSubscription(ctx context.Context, record *domain.SubscriptionRecord) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO billing_subscriptions (
			id, principal_id, provider_customer_id, status, price_id, product_id,
			plan_name, current_period_end, cancel_at_period_end, created, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			principal_id = excluded.principal_id,
			provider_customer_id = COALESCE(excluded.provider_customer_id, billing_subscriptions.provider_customer_id),
			status = excluded.status,
			price_id = COALESCE(excluded.price_id, billing_subscriptions.price_id),
			product_id = COALESCE(excluded.product_id, billing_subscriptions.product_id),
			plan_name = COALESCE(excluded.plan_name, billing_subscriptions.plan_name),
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			updated_at = excluded.updated_at`,
		record.ID,
		record.PrincipalID,
		record.ProviderCustomerID,
		string(record.Status),
		record.PriceID,
		record.ProductID,
		record.PlanName,
		record.CurrentPeriodEnd,
		record.CancelAtPeriodEnd,
		record.Created,
		record.UpdatedAt,
	).Error
}

func (r *repo) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	var items []domain.Product
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListActivePrices returns active prices ordered by ascending unit amount.
func (r *repo) ListActivePrices(ctx context.Context, productIDs []string) ([]domain.Price, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []domain.Price
	err := r.db.WithContext(ctx).
		Where("active = ? AND product_id IN ?", true, productIDs).
		Order("unit_amount ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	var item domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindPrice(ctx context.Context, id string) (*domain.Price, error) {
	var item domain.Price
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) UpsertProduct(ctx context.Context, product *domain.Product) error {
	metadata := product.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO billing_products (id, name, description, active, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			active = excluded.active,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		product.ID,
		product.Name,
		product.Description,
		product.Active,
		metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) UpsertPrice(ctx context.Context, price *domain.Price) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO billing_prices (
			id, product_id, active, currency, unit_amount, nickname, "interval", interval_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			product_id = excluded.product_id,
			active = excluded.active,
			currency = excluded.currency,
			unit_amount = excluded.unit_amount,
			nickname = excluded.nickname,
			"interval" = excluded."interval",
			interval_count = excluded.interval_count,
			updated_at = excluded.updated_at`,
		price.ID,
		price.ProductID,
		price.Active,
		price.Currency,
		price.UnitAmount,
		price.Nickname,
		price.Interval,
		price.IntervalCount,
		price.CreatedAt,
		price.UpdatedAt,
	).Error
}

func (r *repo) DeactivateProduct(ctx context.Context, id string, now time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE billing_products SET active = ?, updated_at = ? WHERE id = ?`,
		false, now, id,
	).Error
}

func (r *repo) DeactivatePrice(ctx context.Context, id string, now time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE billing_prices SET active = ?, updated_at = ? WHERE id = ?`,
		false, now, id,
	).Error
}

func (r *repo) FindCustomerByPrincipal(ctx context.Context, principalID string) (*domain.Customer, error) {
	return r.findCustomer(ctx, "principal_id = ?", principalID)
}

func (r *repo) FindCustomerByProviderID(ctx context.Context, providerCustomerID string) (*domain.Customer, error) {
	return r.findCustomer(ctx, "provider_customer_id = ?", providerCustomerID)
}

func (r *repo) findCustomer(ctx context.Context, where string, arg string) (*domain.Customer, error) {
	var item domain.Customer
	err := r.db.WithContext(ctx).Where(where, arg).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) UpsertCustomer(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO billing_customers (principal_id, provider_customer_id, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (principal_id) DO UPDATE SET
			provider_customer_id = excluded.provider_customer_id,
			email = COALESCE(excluded.email, billing_customers.email),
			updated_at = excluded.updated_at`,
		customer.PrincipalID,
		customer.ProviderCustomerID,
		customer.Email,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) InsertEvent(ctx context.Context, event *domain.Event) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO billing_events (id, provider, provider_event_id, type, outcome, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.Type,
		event.Outcome,
		event.Payload,
		event.ReceivedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateEventOutcome(ctx context.Context, id int64, outcome string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE billing_events SET outcome = ? WHERE id = ?`,
		outcome, id,
	).Error
}

func (r *repo) ListEvents(ctx context.Context, req domain.ListEventsRequest) ([]domain.Event, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultEventPageSize
	}
	stmt := r.db.WithContext(ctx).Model(&domain.Event{})
	if req.BeforeID > 0 {
		stmt = stmt.Where("id < ?", req.BeforeID)
	}
	var items []domain.Event
	if err := stmt.Order("id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
