package escrow

import "context"

const (
	CurrencyINR = "INR"

	DepositDescription = "Escrow Deposit / Wallet Load"
	DefaultMerchant    = "Work Hive"
	DefaultThemeColor  = "#FACC15"
)

// MinorUnits converts rupees to paise.
func MinorUnits(rupees int) int64 {
	return int64(rupees) * 100
}

// Order is what the platform asks the gateway to collect.
type Order struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Description string
	Prefill     Payer
	Notes       map[string]string
}

// Checkout carries everything a client-side checkout widget needs to open
// the payment dialog for an order.
type Checkout struct {
	KeyID       string `json:"key"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prefill     Payer  `json:"prefill"`
	ThemeColor  string `json:"themeColor,omitempty"`
}

// Gateway creates checkout orders. Money movement, verification and
// reconciliation stay with the gateway.
type Gateway interface {
	CreateOrder(ctx context.Context, order Order) (*Checkout, error)
}
