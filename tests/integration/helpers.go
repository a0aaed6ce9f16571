//go:build integration

package integration

import (
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"parking/internal/external"
	"parking/internal/identity"
	"parking/internal/models"
)

// API поверх Postgres, наполненного cmd/generator (демо-водитель и его машина)
var (
	APIBaseURL  = getEnv("PARKING_API_URL", "http://localhost:8081")
	jwtSecret   = getEnv("JWT_SECRET", "dev-secret-change-me")
	jwtIssuer   = getEnv("JWT_ISSUER", "parking")
	demoUser    = getEnvInt("INTEGRATION_USER_ID", 1)
	demoVehicle = getEnvInt("INTEGRATION_VEHICLE_ID", 1)
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}

// NewDemoClient returns a client authenticated as the seeded demo driver
func NewDemoClient(t *testing.T) *TestClient {
	t.Helper()
	provider := identity.NewJWTProvider(identity.Config{Secret: jwtSecret, Issuer: jwtIssuer, TokenTTL: time.Hour})
	token, err := provider.IssueToken(demoUser)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return NewTestClient(APIBaseURL, token)
}

// SignedNotification signs a webhook the way the gateway does
func SignedNotification(n models.PaymentNotificationPayload) models.PaymentNotificationPayload {
	client := external.NewPaymentClient(external.PaymentConfig{
		TeamSlug: os.Getenv("PAYMENT_TEAM_SLUG"),
		Password: os.Getenv("PAYMENT_PASSWORD"),
	})
	n.Token = client.NotificationToken(&n)
	return n
}

// FindAvailableSlot returns the first available slot of the zone
func FindAvailableSlot(t *testing.T, a *models.ZoneAvailabilityResponse) models.SlotStatusItem {
	t.Helper()
	for _, s := range a.Slots {
		if s.Status == models.SlotAvailable {
			return s
		}
	}
	t.Fatalf("Zone %d has no available slot", a.ZoneID)
	return models.SlotStatusItem{}
}

// FutureWindow returns a window starting in `from` hours, unique per test run
func FutureWindow(from, hours int) (time.Time, time.Time) {
	start := time.Now().Add(time.Duration(from) * time.Hour).Truncate(time.Hour)
	return start, start.Add(time.Duration(hours) * time.Hour)
}

func zonePath(id int64) string        { return fmt.Sprintf("/api/zones/%d", id) }
func reservationPath(id int64) string { return fmt.Sprintf("/api/reservations/%d", id) }

// LogTestStep logs a test step for better readability
func LogTestStep(t *testing.T, step string) {
	t.Logf("=== %s ===", step)
}
