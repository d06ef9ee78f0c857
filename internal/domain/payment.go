package domain

import "time"

// PaymentMethod represents how a rider pays.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// Valid reports whether m is a recognised payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodWallet:
		return true
	}
	return false
}

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Payment is the single payment attached to a ride.
type Payment struct {
	ID           int64         `json:"paymentId"`
	RideID       int64         `json:"rideId"`
	PayerID      int64         `json:"payerId"`
	AccountID    *int64        `json:"accountId"`
	AmountCents  int64         `json:"amountCents"`
	Method       PaymentMethod `json:"method"`
	Status       PaymentStatus `json:"status"`
	AuthorizedAt time.Time     `json:"authorizedTs"`
	CapturedAt   *time.Time    `json:"capturedTs,omitempty"`
	RefundedAt   *time.Time    `json:"refundedTs,omitempty"`
}
