package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"oriyet/internal/domain"
)

const (
	APIKeyHeader   = "RT-UDDOKTAPAY-API-KEY"
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// UddoktaPayConfig holds the checkout and verify endpoints and the API key.
type UddoktaPayConfig struct {
	APIKey      string
	CheckoutURL string
	VerifyURL   string
}

type uddoktaPayClient struct {
	client *http.Client
	config UddoktaPayConfig
}

// NewUddoktaPay returns a PaymentGateway backed by the UddoktaPay hosted checkout.
// A nil client gets a default one with a 30 second timeout.
func NewUddoktaPay(config UddoktaPayConfig, client *http.Client) domain.PaymentGateway {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &uddoktaPayClient{client: client, config: config}
}

type checkoutRequest struct {
	FullName    string                 `json:"full_name"`
	Email       string                 `json:"email"`
	Amount      string                 `json:"amount"`
	Metadata    domain.PaymentMetadata `json:"metadata"`
	RedirectURL string                 `json:"redirect_url"`
	ReturnType  string                 `json:"return_type"`
	CancelURL   string                 `json:"cancel_url"`
	WebhookURL  string                 `json:"webhook_url"`
}

type checkoutResponse struct {
	Status     bool   `json:"status"`
	Message    string `json:"message"`
	PaymentURL string `json:"payment_url"`
}

// verificationPayload is the verify-payment response and the webhook body.
// Amounts arrive as decimal strings.
type verificationPayload struct {
	FullName      string                 `json:"full_name"`
	Email         string                 `json:"email"`
	Amount        string                 `json:"amount"`
	InvoiceID     string                 `json:"invoice_id"`
	Metadata      domain.PaymentMetadata `json:"metadata"`
	PaymentMethod string                 `json:"payment_method"`
	SenderNumber  string                 `json:"sender_number"`
	TransactionID string                 `json:"transaction_id"`
	Status        string                 `json:"status"`
}

func (c *uddoktaPayClient) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	body := checkoutRequest{
		FullName:    req.FullName,
		Email:       req.Email,
		Amount:      strconv.FormatFloat(req.Amount, 'f', 2, 64),
		Metadata:    req.Metadata,
		RedirectURL: req.RedirectURL,
		ReturnType:  "GET",
		CancelURL:   req.CancelURL,
		WebhookURL:  req.WebhookURL,
	}
	raw, err := c.post(ctx, c.config.CheckoutURL, body)
	if err != nil {
		return nil, err
	}
	var resp checkoutResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if !resp.Status || resp.PaymentURL == "" {
		return nil, fmt.Errorf("checkout rejected: %s", resp.Message)
	}
	return &domain.Charge{PaymentURL: resp.PaymentURL}, nil
}

func (c *uddoktaPayClient) Verify(ctx context.Context, invoiceID string) (*domain.GatewayVerification, error) {
	raw, err := c.post(ctx, c.config.VerifyURL, map[string]string{"invoice_id": invoiceID})
	if err != nil {
		return nil, err
	}
	return DecodeVerification(raw)
}

func (c *uddoktaPayClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status: %d", resp.StatusCode)
	}
	return raw, nil
}

// DecodeVerification parses a verify-payment response or webhook body. The raw
// bytes are kept for the audit trail.
func DecodeVerification(raw []byte) (*domain.GatewayVerification, error) {
	var p verificationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode verification: %w", err)
	}
	v := &domain.GatewayVerification{
		FullName:      p.FullName,
		Email:         p.Email,
		InvoiceID:     p.InvoiceID,
		Metadata:      p.Metadata,
		PaymentMethod: p.PaymentMethod,
		SenderNumber:  p.SenderNumber,
		TransactionID: p.TransactionID,
		Status:        domain.GatewayStatus(strings.ToUpper(p.Status)),
		Raw:           json.RawMessage(raw),
	}
	if p.Amount != "" {
		amount, err := strconv.ParseFloat(p.Amount, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", p.Amount, err)
		}
		v.Amount = amount
	}
	switch v.Status {
	case domain.GatewayCompleted, domain.GatewayPending, domain.GatewayError:
	default:
		return nil, errors.New("unknown verification status " + p.Status)
	}
	return v, nil
}
