package models

import (
	"time"
)

// CreateHoldRequest - запрос на временное удержание места
type CreateHoldRequest struct {
	VehicleID   int64       `json:"vehicle_id" binding:"required"`
	SlotID      int64       `json:"slot_id" binding:"required"`
	StartTime   time.Time   `json:"start_time" binding:"required"`
	EndTime     time.Time   `json:"end_time" binding:"required"`
	BookingKind BookingKind `json:"booking_kind"`
}

// CreateHoldResponse - ответ при создании удержания
type CreateHoldResponse struct {
	ReservationID int64             `json:"reservation_id"`
	Status        ReservationStatus `json:"status"`
	ExpiresAt     time.Time         `json:"expires_at"`
	Reference     string            `json:"reference"`
	Price         int64             `json:"price"`
	Window        Window            `json:"window"`
}

// RescheduleRequest - перенос брони на другое окно
type RescheduleRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// CancelReservationResponse - результат отмены
type CancelReservationResponse struct {
	Status          ReservationStatus `json:"status"`
	CancellationFee int64             `json:"cancellation_fee"`
}

// StatusResponse - результат check-in / check-out
type StatusResponse struct {
	ReservationID int64             `json:"reservation_id"`
	Status        ReservationStatus `json:"status"`
}

// ListReservationsResponse - список броней пользователя
type ListReservationsResponse []Reservation

// InitiatePaymentResponse - ссылка на оплату
type InitiatePaymentResponse struct {
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
}

// PaymentStatusResponse - состояние оплаты брони
type PaymentStatusResponse struct {
	ReservationID      int64             `json:"reservation_id"`
	Status             ReservationStatus `json:"status"`
	PaymentStatus      PaymentStatus     `json:"payment_status"`
	Amount             int64             `json:"amount"`
	RefundAmount       int64             `json:"refund_amount"`
	IsPaymentCompleted bool              `json:"is_payment_completed"`
}

// SlotStatusItem - состояние места в зоне
type SlotStatusItem struct {
	ID     int64     `json:"id"`
	Code   string    `json:"code"`
	Status SlotState `json:"status"`
}

// ZoneAvailabilityResponse - доступность зоны
type ZoneAvailabilityResponse struct {
	ZoneID         int64            `json:"zone_id"`
	TotalSlots     int              `json:"total_slots"`
	AvailableSlots int              `json:"available_slots"`
	Slots          []SlotStatusItem `json:"slots"`
}

// ListZonesResponseItem - элемент списка зон
type ListZonesResponseItem struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	TotalSlots     int    `json:"total_slots"`
	AvailableSlots int    `json:"available_slots"`
}

// ListZonesResponse - список зон
type ListZonesResponse []ListZonesResponseItem

// ZoneLayout - сетка зоны для отображения
type ZoneLayout struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// SlotLayoutItem - место с координатами на сетке
type SlotLayoutItem struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	PositionX int       `json:"position_x"`
	PositionY int       `json:"position_y"`
	Status    SlotState `json:"status"`
}

// ZoneDetailsResponse - зона с раскладкой мест
type ZoneDetailsResponse struct {
	ListZonesResponseItem
	Layout ZoneLayout       `json:"layout"`
	Slots  []SlotLayoutItem `json:"slots"`
}

// PaymentNotificationPayload - webhook уведомление от платежного шлюза
type PaymentNotificationPayload struct {
	PaymentID string `json:"paymentId" binding:"required"`
	OrderID   string `json:"orderId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Amount    int64  `json:"amount"`
	TeamSlug  string `json:"teamSlug"`
	Token     string `json:"token"`
	Timestamp string `json:"timestamp"`
}

// Succeeded reports whether the gateway status means the money was captured.
func (p *PaymentNotificationPayload) Succeeded() bool {
	switch p.Status {
	case "completed", "CONFIRMED", "AUTHORIZED":
		return true
	}
	return false
}

// Failed reports whether the gateway gave up on the payment.
func (p *PaymentNotificationPayload) Failed() bool {
	switch p.Status {
	case "failed", "REJECTED", "CANCELLED", "DEADLINE_EXPIRED":
		return true
	}
	return false
}
