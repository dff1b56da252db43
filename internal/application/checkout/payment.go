package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentProcessor collects a payment during settlement. A returned error
// aborts the settlement attempt with the cart preserved.
type PaymentProcessor interface {
	Process(ctx context.Context, amount decimal.Decimal, method string) error
}

// SimulatedProcessor approves every payment after a fixed delay, standing in
// for a real terminal integration. It honors context cancellation during the
// delay.
type SimulatedProcessor struct {
	Delay time.Duration
}

func (p SimulatedProcessor) Process(ctx context.Context, amount decimal.Decimal, method string) error {
	if p.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
