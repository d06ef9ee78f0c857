package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/repository"
)

// PaymentAuthorizer creates the payment of a ride and, for cards, moves the
// money from the payer to the platform operating account.
//
// A card movement is written in two legs. The payer leg is written by
// Authorize or Refund; the operating leg by Settle, which callers run as the
// last write of their transaction so the shared operating row is held only
// until commit.
type PaymentAuthorizer struct {
	log *logger.Logger
	now func() time.Time
}

// NewPaymentAuthorizer creates a new PaymentAuthorizer.
func NewPaymentAuthorizer(log *logger.Logger) *PaymentAuthorizer {
	return &PaymentAuthorizer{log: log, now: time.Now}
}

// AuthorizeRequest contains the parameters for authorizing a ride payment.
type AuthorizeRequest struct {
	RideID      int64
	PayerID     int64
	Method      string
	AmountCents int64
}

// ParsePaymentMethod normalizes a caller-supplied method. ok is false for
// empty or unrecognized methods.
func ParsePaymentMethod(s string) (domain.PaymentMethod, bool) {
	m := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Authorize records the payment of a ride. Unrecognized methods are a no-op
// returning a nil payment. Must run inside the booking transaction, which
// must call Settle before it commits.
func (a *PaymentAuthorizer) Authorize(ctx context.Context, repos repository.Repositories, req AuthorizeRequest) (*domain.Payment, error) {
	method, ok := ParsePaymentMethod(req.Method)
	if !ok {
		return nil, nil
	}

	payment := &domain.Payment{
		RideID:      req.RideID,
		PayerID:     req.PayerID,
		AmountCents: req.AmountCents,
		Method:      method,
		Status:      domain.PaymentStatusAuthorized,
	}

	switch method {
	case domain.PaymentMethodCard:
		return a.captureCard(ctx, repos, payment)

	case domain.PaymentMethodWallet:
		account, err := repos.Accounts.GetActiveForPerson(ctx, req.PayerID)
		switch {
		case err == nil:
			payment.AccountID = &account.ID
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("wallet account: %w", err)
		}
	}

	if err := repos.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

func (a *PaymentAuthorizer) captureCard(ctx context.Context, repos repository.Repositories, payment *domain.Payment) (*domain.Payment, error) {
	source, err := repos.Accounts.GetActiveForPersonForUpdate(ctx, payment.PayerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoFundingSource
		}
		return nil, fmt.Errorf("funding account: %w", err)
	}
	payment.AccountID = &source.ID

	if err := repos.Payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if source.BalanceCents < payment.AmountCents {
		return nil, fmt.Errorf("%w: balance %d, fare %d", ErrInsufficientFunds, source.BalanceCents, payment.AmountCents)
	}

	if err := a.post(ctx, repos, payment, source.ID, domain.LedgerEntryCapture, -payment.AmountCents); err != nil {
		return nil, fmt.Errorf("debit payer: %w", err)
	}

	capturedAt := a.now().UTC()
	if err := repos.Payments.MarkCaptured(ctx, payment.ID, capturedAt); err != nil {
		return nil, fmt.Errorf("capture payment: %w", err)
	}
	payment.Status = domain.PaymentStatusCaptured
	payment.CapturedAt = &capturedAt
	return payment, nil
}

// Refund reverses a payment. A captured card payment moves its money back
// to the payer; an authorization is released without moving money. The
// caller must call Settle before it commits.
func (a *PaymentAuthorizer) Refund(ctx context.Context, repos repository.Repositories, payment *domain.Payment) error {
	if moved(payment) {
		if err := a.post(ctx, repos, payment, *payment.AccountID, domain.LedgerEntryRefund, payment.AmountCents); err != nil {
			return fmt.Errorf("credit payer: %w", err)
		}
	}

	refundedAt := a.now().UTC()
	if err := repos.Payments.MarkRefunded(ctx, payment.ID, refundedAt); err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	payment.Status = domain.PaymentStatusRefunded
	payment.RefundedAt = &refundedAt
	return nil
}

// Settle writes the operating leg that balances the payer leg written by
// Authorize or Refund. It is a no-op for payments that moved no money.
func (a *PaymentAuthorizer) Settle(ctx context.Context, repos repository.Repositories, payment *domain.Payment) error {
	if !moved(payment) {
		return nil
	}

	entryType, delta := domain.LedgerEntryCapture, payment.AmountCents
	if payment.Status == domain.PaymentStatusRefunded {
		entryType, delta = domain.LedgerEntryRefund, -payment.AmountCents
	}

	operating, err := repos.Accounts.GetOperating(ctx)
	if err != nil {
		return fmt.Errorf("operating account: %w", err)
	}
	if err := a.post(ctx, repos, payment, operating.ID, entryType, delta); err != nil {
		return fmt.Errorf("settle operating account: %w", err)
	}
	return nil
}

// moved reports whether the payment debited a payer account.
func moved(payment *domain.Payment) bool {
	return payment != nil && payment.AccountID != nil && payment.CapturedAt != nil
}

// post adjusts one account balance and records the matching ledger entry.
func (a *PaymentAuthorizer) post(
	ctx context.Context,
	repos repository.Repositories,
	payment *domain.Payment,
	accountID int64,
	entryType domain.LedgerEntryType,
	deltaCents int64,
) error {
	if err := repos.Accounts.AdjustBalance(ctx, accountID, deltaCents); err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	entry := &domain.LedgerEntry{
		RideID:      payment.RideID,
		PaymentID:   payment.ID,
		AccountID:   accountID,
		AmountCents: deltaCents,
		Type:        entryType,
	}
	if err := repos.Ledger.CreateEntries(ctx, []*domain.LedgerEntry{entry}); err != nil {
		return fmt.Errorf("ledger entry: %w", err)
	}

	a.log.WithContext(ctx).WithFields(map[string]any{
		"ride_id":      payment.RideID,
		"payment_id":   payment.ID,
		"account_id":   accountID,
		"amount_cents": deltaCents,
		"entry_type":   entryType,
	}).Debug("ledger entry posted")
	return nil
}
