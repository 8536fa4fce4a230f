package escrow

import (
	"context"

	"github.com/google/uuid"
)

// Demo issues synthetic orders so the checkout can be exercised without
// gateway credentials.
type Demo struct {
	KeyID    string
	Merchant string
}

func (d Demo) CreateOrder(ctx context.Context, order Order) (*Checkout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merchant := d.Merchant
	if merchant == "" {
		merchant = DefaultMerchant
	}

	return &Checkout{
		KeyID:       d.KeyID,
		OrderID:     "order_demo_" + uuid.NewString(),
		Amount:      order.AmountMinor,
		Currency:    order.Currency,
		Name:        merchant,
		Description: order.Description,
		Prefill:     order.Prefill,
		ThemeColor:  DefaultThemeColor,
	}, nil
}
