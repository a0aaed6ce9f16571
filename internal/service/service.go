package service

import (
	"context"
	"time"

	"parking/internal/external"
	"parking/internal/metrics"
	"parking/internal/models"
	"parking/internal/notifier"
	"parking/internal/repository"
)

// Policy holds the reservation timing and fee rules.
type Policy struct {
	HoldTTL                time.Duration
	SweepInterval          time.Duration
	SweepBatchSize         int
	ShortNoticeWindow      time.Duration
	CancellationFeePercent int
}

func DefaultPolicy() Policy {
	return Policy{
		HoldTTL:                10 * time.Minute,
		SweepInterval:          60 * time.Second,
		SweepBatchSize:         500,
		ShortNoticeWindow:      2 * time.Hour,
		CancellationFeePercent: 50,
	}
}

// Clock returns the current time. Tests substitute a controllable one.
type Clock func() time.Time

// PaymentGateway is the slice of the payment provider the core relies on.
type PaymentGateway interface {
	InitPayment(ctx context.Context, amount int64, orderID, description string) (*external.PaymentInitResponse, error)
	CancelPayment(ctx context.Context, paymentID, reason string) error
	VerifyNotification(n *models.PaymentNotificationPayload) bool
}

// Deps are the collaborators shared by all services. Only Store is required.
type Deps struct {
	Store     repository.Store
	Gateway   PaymentGateway
	Publisher notifier.Publisher
	Cache     AvailabilityCache
	Search    ZoneSearcher
	Metrics   *metrics.Metrics
	Clock     Clock
}

type Services struct {
	Holds        *HoldManager
	Availability *Aggregator
	Payments     *PaymentService
	Zones        *ZoneService
}

func NewServices(deps Deps, policy Policy) *Services {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}

	aggregator := NewAggregator(deps.Store, deps.Cache, deps.Metrics, deps.Clock)
	holds := NewHoldManager(deps, aggregator, policy)

	return &Services{
		Holds:        holds,
		Availability: aggregator,
		Payments:     NewPaymentService(deps.Store, holds, deps.Gateway, deps.Clock),
		Zones:        NewZoneService(deps.Store, deps.Search, aggregator),
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(...models.Event) {}
