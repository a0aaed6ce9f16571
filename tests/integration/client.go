//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"parking/internal/models"
)

// TestClient provides methods for testing the API
type TestClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewTestClient creates a new test client authenticated with token
func NewTestClient(baseURL, token string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest makes an HTTP request and returns the response
func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// expect decodes the body into out when the status matches, fails otherwise
func (c *TestClient) expect(t *testing.T, resp *http.Response, status int, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", status, resp.StatusCode, string(body))
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// HealthCheck checks the API health endpoint
func (c *TestClient) HealthCheck(t *testing.T) {
	c.expect(t, c.makeRequest(t, http.MethodGet, "/health", nil), http.StatusOK, nil)
}

// ListZones lists all zones
func (c *TestClient) ListZones(t *testing.T) models.ListZonesResponse {
	var zones models.ListZonesResponse
	c.expect(t, c.makeRequest(t, http.MethodGet, "/api/zones", nil), http.StatusOK, &zones)
	return zones
}

// ZoneAvailability returns the availability of a zone
func (c *TestClient) ZoneAvailability(t *testing.T, zoneID int64) *models.ZoneAvailabilityResponse {
	var resp models.ZoneAvailabilityResponse
	c.expect(t, c.makeRequest(t, http.MethodGet, zonePath(zoneID)+"/availability", nil), http.StatusOK, &resp)
	return &resp
}

// Hold tries to hold a slot and returns the raw response
func (c *TestClient) Hold(t *testing.T, req models.CreateHoldRequest) *http.Response {
	return c.makeRequest(t, http.MethodPost, "/api/reservations", req)
}

// MustHold holds a slot and fails the test on any other outcome
func (c *TestClient) MustHold(t *testing.T, req models.CreateHoldRequest) *models.CreateHoldResponse {
	var resp models.CreateHoldResponse
	c.expect(t, c.Hold(t, req), http.StatusCreated, &resp)
	return &resp
}

// Patch calls a reservation action such as cancel or check-in
func (c *TestClient) Patch(t *testing.T, reservationID int64, action string, status int) {
	c.expect(t, c.makeRequest(t, http.MethodPatch, reservationPath(reservationID)+"/"+action, nil), status, nil)
}

// InitiatePayment opens a gateway payment for the reservation
func (c *TestClient) InitiatePayment(t *testing.T, reservationID int64) *models.InitiatePaymentResponse {
	var resp models.InitiatePaymentResponse
	c.expect(t, c.makeRequest(t, http.MethodPost, reservationPath(reservationID)+"/payment", nil), http.StatusOK, &resp)
	return &resp
}

// PaymentStatus reads the payment state of the reservation
func (c *TestClient) PaymentStatus(t *testing.T, reservationID int64) *models.PaymentStatusResponse {
	var resp models.PaymentStatusResponse
	c.expect(t, c.makeRequest(t, http.MethodGet, reservationPath(reservationID)+"/payment", nil), http.StatusOK, &resp)
	return &resp
}

// Notify sends a gateway webhook
func (c *TestClient) Notify(t *testing.T, n models.PaymentNotificationPayload, status int) {
	c.expect(t, c.makeRequest(t, http.MethodPost, "/payments/notifications", n), status, nil)
}
