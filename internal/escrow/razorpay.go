package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	razorpayAPIURL = "https://api.razorpay.com"
	contentType    = "application/json"
)

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	APIURL    string
	Merchant  string
}

// Razorpay creates orders through the Razorpay Orders API.
type Razorpay struct {
	keyID     string
	keySecret string
	merchant  string
	logger    *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

func NewRazorpay(cfg RazorpayConfig, logger *zap.Logger) (*Razorpay, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("razorpay key id and key secret are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = razorpayAPIURL
	}

	merchant := strings.TrimSpace(cfg.Merchant)
	if merchant == "" {
		merchant = DefaultMerchant
	}

	return &Razorpay{
		keyID:     strings.TrimSpace(cfg.KeyID),
		keySecret: strings.TrimSpace(cfg.KeySecret),
		merchant:  merchant,
		logger:    logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: apiURL,
	}, nil
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, order Order) (*Checkout, error) {
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   order.AmountMinor,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Notes:    order.Notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.APIURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(r.keyID, r.keySecret)
	req.Header.Set("Content-Type", contentType)

	r.logger.Debug("make request", zap.String("url", req.URL.String()), zap.Int64("amount", order.AmountMinor))
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr razorpayError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("bad status: %s: %s", resp.Status, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var created razorpayOrder
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if created.ID == "" {
		return nil, errors.New("razorpay returned an order without id")
	}

	r.logger.Info("razorpay order created", zap.String("order_id", created.ID), zap.String("receipt", order.Receipt))

	return &Checkout{
		KeyID:       r.keyID,
		OrderID:     created.ID,
		Amount:      created.Amount,
		Currency:    created.Currency,
		Name:        r.merchant,
		Description: order.Description,
		Prefill:     order.Prefill,
		ThemeColor:  DefaultThemeColor,
	}, nil
}
