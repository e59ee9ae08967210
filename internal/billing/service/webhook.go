package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/smallbiznis/streamgate/internal/changefeed"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// IngestWebhook verifies, records and applies one provider event. Replayed
// events are recorded once and never re-applied. Ignored event types return
// a nil event.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*domain.Event, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, domain.ErrInvalidPayload
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.metrics.RecordWebhookEvent(ctx, provider, "unknown", "rejected")
		return nil, err
	}

	evt, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent(ctx, provider, "unsupported", domain.EventOutcomeIgnored)
			return nil, nil
		}
		return nil, err
	}

	record := &domain.Event{
		ID:              s.genID.Generate().Int64(),
		Provider:        provider,
		ProviderEventID: evt.ProviderEventID,
		Type:            evt.ProviderType,
		Outcome:         domain.EventOutcomeReceived,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      s.now(),
	}
	inserted, err := s.repo.InsertEvent(ctx, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		record.Outcome = domain.EventOutcomeDuplicate
		s.metrics.RecordWebhookEvent(ctx, provider, evt.Type, record.Outcome)
		s.log.Info("billing webhook replay skipped",
			zap.String("provider", provider),
			zap.String("provider_event_id", evt.ProviderEventID),
		)
		return record, nil
	}

	outcome, err := s.apply(ctx, evt)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, provider, evt.Type, "failed")
		return nil, err
	}
	record.Outcome = outcome
	if err := s.repo.UpdateEventOutcome(ctx, record.ID, outcome); err != nil {
		s.log.Warn("failed to record webhook outcome", zap.Int64("event_id", record.ID), zap.Error(err))
	}
	s.metrics.RecordWebhookEvent(ctx, provider, evt.Type, outcome)
	return record, nil
}

func (s *Service) apply(ctx context.Context, evt *domain.WebhookEvent) (string, error) {
	switch evt.Type {
	case domain.EventSubscriptionUpsert, domain.EventSubscriptionDelete:
		return s.applySubscription(ctx, evt)
	case domain.EventProductUpsert:
		if err := s.repo.UpsertProduct(ctx, evt.Product); err != nil {
			return "", err
		}
	case domain.EventProductDelete:
		if err := s.repo.DeactivateProduct(ctx, evt.Product.ID, s.now()); err != nil {
			return "", err
		}
	case domain.EventPriceUpsert:
		if err := s.repo.UpsertPrice(ctx, evt.Price); err != nil {
			return "", err
		}
	case domain.EventPriceDelete:
		if err := s.repo.DeactivatePrice(ctx, evt.Price.ID, s.now()); err != nil {
			return "", err
		}
	case domain.EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, evt.Checkout)
	default:
		return domain.EventOutcomeIgnored, nil
	}
	s.publish(ctx, changefeed.ProductsTopic, changefeed.KindUpsert)
	return domain.EventOutcomeApplied, nil
}

func (s *Service) applySubscription(ctx context.Context, evt *domain.WebhookEvent) (string, error) {
	sub := evt.Subscription
	principalID, err := s.resolvePrincipal(ctx, sub.PrincipalID, sub.ProviderCustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalUnresolved) {
			s.log.Warn("subscription event without principal mapping",
				zap.String("subscription_id", sub.ID),
				zap.String("provider_customer_id", sub.ProviderCustomerID),
			)
			return domain.EventOutcomeUnresolved, nil
		}
		return "", err
	}

	now := s.now()
	if sub.PrincipalID != "" && sub.ProviderCustomerID != "" {
		if err := s.linkCustomer(ctx, principalID, sub.ProviderCustomerID, ""); err != nil {
			s.log.Warn("failed to link billing customer", zap.String("principal_id", principalID), zap.Error(err))
		}
	}

	record := &domain.SubscriptionRecord{
		ID:                 sub.ID,
		PrincipalID:        principalID,
		ProviderCustomerID: optional(sub.ProviderCustomerID),
		Status:             sub.Status,
		PriceID:            optional(sub.PriceID),
		ProductID:          optional(sub.ProductID),
		PlanName:           optional(sub.PlanName),
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Created:            sub.Created,
		UpdatedAt:          now,
	}
	if err := s.repo.UpsertSubscription(ctx, record); err != nil {
		return "", err
	}

	kind := changefeed.KindUpsert
	if evt.Type == domain.EventSubscriptionDelete {
		kind = changefeed.KindDelete
	}
	s.publish(ctx, changefeed.SubscriptionsTopic(principalID), kind)
	return domain.EventOutcomeApplied, nil
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, checkout *domain.CheckoutCompleted) (string, error) {
	if checkout.PrincipalID == "" || checkout.ProviderCustomerID == "" {
		s.log.Warn("checkout completion without principal or customer", zap.String("session_id", checkout.SessionID))
		return domain.EventOutcomeUnresolved, nil
	}
	if err := s.linkCustomer(ctx, checkout.PrincipalID, checkout.ProviderCustomerID, checkout.Email); err != nil {
		return "", err
	}
	s.publish(ctx, changefeed.SubscriptionsTopic(checkout.PrincipalID), changefeed.KindUpsert)
	return domain.EventOutcomeApplied, nil
}

func (s *Service) resolvePrincipal(ctx context.Context, principalID, providerCustomerID string) (string, error) {
	if principalID = strings.TrimSpace(principalID); principalID != "" {
		return principalID, nil
	}
	if strings.TrimSpace(providerCustomerID) == "" {
		return "", domain.ErrPrincipalUnresolved
	}
	customer, err := s.repo.FindCustomerByProviderID(ctx, providerCustomerID)
	if err != nil {
		if isNotFound(err) {
			return "", domain.ErrPrincipalUnresolved
		}
		return "", err
	}
	return customer.PrincipalID, nil
}

func (s *Service) linkCustomer(ctx context.Context, principalID, providerCustomerID, email string) error {
	now := s.now()
	return s.repo.UpsertCustomer(ctx, &domain.Customer{
		PrincipalID:        principalID,
		ProviderCustomerID: providerCustomerID,
		Email:              optional(email),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}
