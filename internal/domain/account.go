package domain

import "time"

// AccountStatus represents whether a bank account can be used.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

// AccountKind separates customer accounts from the platform's own account.
type AccountKind string

const (
	AccountKindPersonal  AccountKind = "personal"
	AccountKindOperating AccountKind = "operating"
)

// BankAccount is a funding source owned by a Person.
type BankAccount struct {
	ID           int64
	PersonID     int64
	BankNum      string
	BalanceCents int64
	Currency     string
	Status       AccountStatus
	Kind         AccountKind
}

// LedgerEntryType names the movement a ledger entry belongs to.
type LedgerEntryType string

const (
	LedgerEntryCapture LedgerEntryType = "capture"
	LedgerEntryRefund  LedgerEntryType = "refund"
)

// LedgerEntry is one side of a double-entry money movement. The entries of a
// movement sum to zero.
type LedgerEntry struct {
	ID          int64
	RideID      int64
	PaymentID   int64
	AccountID   int64
	AmountCents int64
	Type        LedgerEntryType
	CreatedAt   time.Time
}
