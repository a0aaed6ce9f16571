package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"parking/internal/models"
)

type PaymentClient struct {
	cfg        PaymentConfig
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL         string
	TeamSlug        string
	Password        string
	Currency        string
	SuccessURL      string
	FailURL         string
	NotificationURL string
	Timeout         time.Duration
}

// Payment gateway models
type PaymentInitRequest struct {
	TeamSlug        string `json:"teamSlug"`
	Token           string `json:"token"`
	Amount          int64  `json:"amount"`
	OrderID         string `json:"orderId"`
	Currency        string `json:"currency"`
	Description     string `json:"description,omitempty"`
	SuccessURL      string `json:"successURL,omitempty"`
	FailURL         string `json:"failURL,omitempty"`
	NotificationURL string `json:"notificationURL,omitempty"`
	Language        string `json:"language,omitempty"`
}

type PaymentInitResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	PaymentURL string `json:"paymentURL"`
	ExpiresAt  string `json:"expiresAt"`
	Message    string `json:"message,omitempty"`
}

type paymentCancelRequest struct {
	TeamSlug  string `json:"teamSlug"`
	Token     string `json:"token"`
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason,omitempty"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "VND"
	}

	return &PaymentClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateToken signs params: values sorted by key, joined, SHA-256.
// TeamSlug and Password always take part in the signature.
func (pc *PaymentClient) generateToken(params map[string]string) string {
	signed := make(map[string]string, len(params)+2)
	for k, v := range params {
		signed[k] = v
	}
	signed["TeamSlug"] = pc.cfg.TeamSlug
	signed["Password"] = pc.cfg.Password

	keys := make([]string, 0, len(signed))
	for k := range signed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(signed[key])
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

func (pc *PaymentClient) InitPayment(ctx context.Context, amount int64, orderID, description string) (*PaymentInitResponse, error) {
	token := pc.generateToken(map[string]string{
		"Amount":   strconv.FormatInt(amount, 10),
		"Currency": pc.cfg.Currency,
		"OrderId":  orderID,
	})

	req := PaymentInitRequest{
		TeamSlug:        pc.cfg.TeamSlug,
		Token:           token,
		Amount:          amount,
		OrderID:         orderID,
		Currency:        pc.cfg.Currency,
		Description:     description,
		SuccessURL:      pc.cfg.SuccessURL,
		FailURL:         pc.cfg.FailURL,
		NotificationURL: pc.cfg.NotificationURL,
		Language:        "en",
	}

	var result PaymentInitResponse
	if err := pc.post(ctx, "/api/v1/PaymentInit/init", req, &result); err != nil {
		return nil, fmt.Errorf("failed to init payment: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("payment init failed: %s", result.Message)
	}

	return &result, nil
}

func (pc *PaymentClient) CancelPayment(ctx context.Context, paymentID, reason string) error {
	req := paymentCancelRequest{
		TeamSlug:  pc.cfg.TeamSlug,
		Token:     pc.generateToken(map[string]string{"PaymentId": paymentID}),
		PaymentID: paymentID,
		Reason:    reason,
	}

	if err := pc.post(ctx, "/api/v1/PaymentCancel/cancel", req, nil); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	return nil
}

// VerifyNotification checks the webhook token. Without a configured
// password the gateway runs unsigned and every notification is accepted.
func (pc *PaymentClient) VerifyNotification(n *models.PaymentNotificationPayload) bool {
	if pc.cfg.Password == "" {
		return true
	}
	expected := pc.generateToken(map[string]string{
		"Amount":    strconv.FormatInt(n.Amount, 10),
		"OrderId":   n.OrderID,
		"PaymentId": n.PaymentID,
		"Status":    n.Status,
	})
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.Token)) == 1
}

// NotificationToken signs a notification the way the gateway does. Used by
// tests and local tooling that simulate the gateway.
func (pc *PaymentClient) NotificationToken(n *models.PaymentNotificationPayload) string {
	return pc.generateToken(map[string]string{
		"Amount":    strconv.FormatInt(n.Amount, 10),
		"OrderId":   n.OrderID,
		"PaymentId": n.PaymentID,
		"Status":    n.Status,
	})
}

func (pc *PaymentClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
