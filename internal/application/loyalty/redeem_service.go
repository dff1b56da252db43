package loyalty

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/application/state"
	"github.com/pos/backend/internal/domain/customer"
	"github.com/pos/backend/internal/domain/shared"
)

// RedeemService spends a customer's loyalty points on rewards
type RedeemService struct {
	store  *state.Store
	bus    shared.EventPublisher
	logger *zap.Logger
}

// NewRedeemService creates a redemption service
func NewRedeemService(store *state.Store, bus shared.EventPublisher, logger *zap.Logger) *RedeemService {
	return &RedeemService{store: store, bus: bus, logger: logger.Named("loyalty")}
}

// Redeem deducts points from the customer's balance. Redeeming more points
// than held fails with INSUFFICIENT_POINTS; crossing a tier breakpoint
// downward demotes the customer and emits customer:tier_changed.
func (s *RedeemService) Redeem(ctx context.Context, customerID uuid.UUID, points int, reward string) (customer.Customer, error) {
	cust, ok := s.store.Customer(customerID)
	if !ok {
		return customer.Customer{}, shared.ErrNotFound
	}

	oldTier := cust.Tier
	if err := cust.RedeemPoints(points); err != nil {
		return customer.Customer{}, err
	}

	if err := s.store.DispatchSync(ctx, state.UpdateCustomer{Customer: cust}); err != nil {
		return customer.Customer{}, err
	}

	s.bus.Publish(ctx, shared.EventLoyaltyPointsRedeemed, customer.PointsRedeemedPayload{
		CustomerID: cust.ID,
		Points:     points,
		Reward:     reward,
		NewBalance: cust.Points,
		Tier:       cust.Tier,
	}, shared.PublishOptions{Source: sourceLoyalty})

	if cust.Tier != oldTier {
		s.bus.Publish(ctx, shared.EventCustomerTierChanged, customer.TierChangedPayload{
			CustomerID: cust.ID,
			OldTier:    oldTier,
			NewTier:    cust.Tier,
		}, shared.PublishOptions{Source: sourceLoyalty})
	}

	s.logger.Info("points redeemed",
		zap.String("customer_id", cust.ID.String()),
		zap.Int("points", points),
		zap.Int("balance", cust.Points),
	)
	return cust, nil
}
